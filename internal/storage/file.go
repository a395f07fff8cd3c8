package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "remindbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend: an append-only JSON
// Lines file at <prefix>.events.jsonl.
type fileStore struct {
	log logx.Logger

	mu        sync.Mutex
	eventFile *os.File
}

type eventRecord struct {
	At         string `json:"at"`
	Type       string `json:"type"`
	Owner      string `json:"owner"`
	ReminderID string `json:"reminderId"`
	Title      string `json:"title,omitempty"`
	TriggerAt  string `json:"triggerAt,omitempty"`
	Error      string `json:"error,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(prefix+".events.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{log: log, eventFile: f}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventFile == nil {
		return nil
	}
	err := s.eventFile.Close()
	s.eventFile = nil
	return err
}

func (s *fileStore) AppendEvent(ctx context.Context, e Event) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	rec := eventRecord{
		At:         e.At.UTC().Format(time.RFC3339Nano),
		Type:       e.Type,
		Owner:      e.Owner,
		ReminderID: e.ReminderID,
		Title:      e.Title,
		Error:      e.Error,
	}
	if !e.TriggerAt.IsZero() {
		rec.TriggerAt = e.TriggerAt.UTC().Format(time.RFC3339Nano)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventFile == nil {
		return errors.New("event file closed")
	}
	return json.NewEncoder(s.eventFile).Encode(rec)
}
