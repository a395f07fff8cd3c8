// Package storage provides an optional append-only trail of reminder
// lifecycle events (created/deleted/completed/fired/notify_failed).
//
// The reminder collection itself is NOT stored here; it lives in the
// reminder package's own JSON document so existing data files stay
// readable.
package storage
