package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration parses a Go duration string from a config field. An empty or
// all-whitespace value means "unset" and yields zero without error;
// negative durations are rejected. field names the offending key in
// errors ("reminders.lookahead: ...").
func Duration(field, raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: bad duration %q: %w", field, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", field, raw)
	}
	return d, nil
}

// DurationDefault is Duration with def substituted when the field is
// unset.
func DurationDefault(field, raw string, def time.Duration) (time.Duration, error) {
	d, err := Duration(field, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
