package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoMatch means the text contains no recognized time expression.
	// The caller surfaces a format hint; nothing is retried.
	ErrNoMatch = errors.New("no time expression recognized")

	// ErrNotFound covers both a nonexistent id and an id owned by someone
	// else; the two are deliberately indistinguishable.
	ErrNotFound = errors.New("reminder not found")
)

// Reminder is the sole persisted entity. JSON field names match the
// pre-existing data files, so stored collections stay readable.
type Reminder struct {
	ID        string    `json:"id"`
	Owner     string    `json:"userId"`
	Title     string    `json:"title"`
	TriggerAt Timestamp `json:"dateTime"`
	Notes     string    `json:"notes"`
	Fired     bool      `json:"isCompleted"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Timestamp marshals as UTC ISO-8601 with millisecond precision
// ("2006-01-02T15:04:05.000Z"), the format already present in stored
// collections. Parsing is lenient about precision and zone.
type Timestamp struct {
	time.Time
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(isoMillis) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
