package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Event records one reminder lifecycle transition.
// Keep it compact and schema-stable.
type Event struct {
	At         time.Time
	Type       string // created | deleted | completed | fired | notify_failed
	Owner      string
	ReminderID string
	Title      string
	TriggerAt  time.Time
	Error      string
}
