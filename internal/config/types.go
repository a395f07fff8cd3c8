package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Reminders RemindersConfig `json:"reminders"`

	// Storage controls the optional audit-trail persistence layer.
	Storage *StorageConfig `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RemindersConfig controls the reminder store and the due-reminder
// scheduler.
//
// Defaults (when fields are omitted/zero):
//   - path: "./db/reminders.json"
//   - tick_spec: "* * * * *" (every minute)
//   - lookahead: "15m"
//   - notify_rate_per_sec: 3
//   - notify_timeout: "10s"
type RemindersConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`

	// TickSpec is a cron expression driving the due scan.
	TickSpec string `json:"tick_spec,omitempty"`
	// Lookahead is a Go duration string; reminders strictly inside
	// (now, now+lookahead) are fired.
	Lookahead string `json:"lookahead,omitempty"`

	NotifyRatePerSec int `json:"notify_rate_per_sec,omitempty"`
	// NotifyTimeout bounds a single delivery attempt (Go duration string).
	NotifyTimeout string `json:"notify_timeout,omitempty"`
}

// StorageConfig controls the optional persistence layer for the audit
// trail.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./remindbot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
