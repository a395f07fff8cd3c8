package reminder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	logx "remindbot/pkg/logx"
)

// document is the on-disk layout: one JSON object holding the whole
// collection. Every mutation rewrites the entire document.
type document struct {
	Reminders []Reminder `json:"reminders"`
}

// Store is a durable reminder collection with owner-scoped operations.
//
// All mutations run under one exclusive lock and are flushed to disk
// before they become visible in memory; a failed write leaves both the
// file and the in-memory state untouched. Single-process, single-writer
// by design.
type Store struct {
	path string
	log  logx.Logger

	mu     sync.Mutex
	items  []Reminder
	index  map[string]int
	lastID int64
}

// OpenStore loads the collection at path, creating the directory and an
// empty document if absent.
func OpenStore(path string, log logx.Logger) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{path: path, log: log}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("reminder store: %w", err)
	}

	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := s.persistLocked(nil); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("reminder store: %w", err)
	default:
		var doc document
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("reminder store: decode %s: %w", path, err)
		}
		s.items = doc.Reminders
	}

	s.reindexLocked()
	for _, r := range s.items {
		if n, err := strconv.ParseInt(r.ID, 10, 64); err == nil && n > s.lastID {
			s.lastID = n
		}
	}
	log.Debug("store opened", logx.String("path", path), logx.Int("count", len(s.items)))
	return s, nil
}

// All returns the full collection in insertion order. Used by the
// scheduler's scan; callers get a copy.
func (s *Store) All() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Reminder(nil), s.items...)
}

// ForOwner returns the owner's reminders in insertion order.
func (s *Store) ForOwner(owner string) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reminder
	for _, r := range s.items {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	return out
}

// Add appends a new reminder and persists the collection.
func (s *Store) Add(owner, title string, triggerAt time.Time, notes string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec := Reminder{
		ID:        s.nextIDLocked(now),
		Owner:     owner,
		Title:     title,
		TriggerAt: Timestamp{triggerAt},
		Notes:     notes,
		CreatedAt: Timestamp{now},
	}

	next := append(append([]Reminder(nil), s.items...), rec)
	if err := s.persistLocked(next); err != nil {
		return Reminder{}, err
	}
	s.items = next
	s.reindexLocked()
	return rec, nil
}

// Delete removes the reminder only when both id and owner match. A
// mismatched owner reports false exactly like a nonexistent id, so the
// existence of other users' reminders never leaks.
func (s *Store) Delete(owner, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.lookupLocked(owner, id)
	if !ok {
		return false, nil
	}

	next := append([]Reminder(nil), s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	if err := s.persistLocked(next); err != nil {
		return false, err
	}
	s.items = next
	s.reindexLocked()
	return true, nil
}

// SetFired updates the fired flag of an owned reminder and persists.
// A fired reminder never reverts: clearing the flag is a no-op that
// returns the record unchanged.
func (s *Store) SetFired(owner, id string, v bool) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.lookupLocked(owner, id)
	if !ok {
		return Reminder{}, ErrNotFound
	}
	cur := s.items[i]
	if cur.Fired == v || (cur.Fired && !v) {
		return cur, nil
	}

	next := append([]Reminder(nil), s.items...)
	next[i].Fired = v
	if err := s.persistLocked(next); err != nil {
		return Reminder{}, err
	}
	s.items = next
	return s.items[i], nil
}

func (s *Store) lookupLocked(owner, id string) (int, bool) {
	i, ok := s.index[id]
	if !ok || s.items[i].Owner != owner {
		return 0, false
	}
	return i, true
}

func (s *Store) reindexLocked() {
	idx := make(map[string]int, len(s.items))
	for i, r := range s.items {
		idx[r.ID] = i
	}
	s.index = idx
}

// nextIDLocked derives ids from the creation time (unix milliseconds,
// decimal) and bumps past the previous id so rapid calls never collide.
func (s *Store) nextIDLocked(now time.Time) string {
	n := now.UnixMilli()
	if n <= s.lastID {
		n = s.lastID + 1
	}
	s.lastID = n
	return strconv.FormatInt(n, 10)
}

// persistLocked rewrites the whole document via a temp file + rename so
// a crash mid-write never truncates the collection.
func (s *Store) persistLocked(items []Reminder) error {
	if items == nil {
		items = []Reminder{}
	}
	b, err := json.MarshalIndent(document{Reminders: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("reminder store: encode: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("reminder store: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("reminder store: rename: %w", err)
	}
	return nil
}
