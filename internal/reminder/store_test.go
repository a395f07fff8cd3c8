package reminder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "remindbot/pkg/logx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "db", "reminders.json"), logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return s
}

func TestStoreAddAndForOwner(t *testing.T) {
	s := newTestStore(t)

	at := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	rec, err := s.Add("42", "dentist", at, "bring card")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("empty id")
	}
	if rec.Fired {
		t.Fatal("new reminder already fired")
	}

	mine := s.ForOwner("42")
	if len(mine) != 1 {
		t.Fatalf("ForOwner = %d items, want 1", len(mine))
	}
	got := mine[0]
	if got.Owner != "42" || got.Title != "dentist" || got.Notes != "bring card" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.TriggerAt.Time.Equal(at) {
		t.Fatalf("trigger = %v, want %v", got.TriggerAt.Time, at)
	}

	if other := s.ForOwner("43"); len(other) != 0 {
		t.Fatalf("foreign owner sees %d items", len(other))
	}
}

func TestStoreDeleteOwnerScoped(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Add("42", "x", time.Now().Add(time.Hour), "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Wrong owner and unknown id are indistinguishable.
	for _, tc := range []struct{ owner, id string }{
		{"43", rec.ID},
		{"42", "nope"},
	} {
		ok, err := s.Delete(tc.owner, tc.id)
		if err != nil {
			t.Fatalf("Delete(%s,%s): %v", tc.owner, tc.id, err)
		}
		if ok {
			t.Fatalf("Delete(%s,%s) = true", tc.owner, tc.id)
		}
	}
	if len(s.All()) != 1 {
		t.Fatal("store changed by failed deletes")
	}

	ok, err := s.Delete("42", rec.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if len(s.All()) != 0 {
		t.Fatal("record survived delete")
	}
}

func TestStoreReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reminders.json")

	s1, err := OpenStore(path, logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	at := time.Date(2026, time.October, 2, 20, 15, 0, 0, time.UTC)
	rec, err := s1.Add("7", "concert", at, "gate B")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s1.SetFired("7", rec.ID, true); err != nil {
		t.Fatalf("SetFired: %v", err)
	}

	s2, err := OpenStore(path, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	items := s2.ForOwner("7")
	if len(items) != 1 {
		t.Fatalf("reloaded %d items, want 1", len(items))
	}
	got := items[0]
	if got.ID != rec.ID || got.Title != "concert" || got.Notes != "gate B" || !got.Fired {
		t.Fatalf("reloaded record: %+v", got)
	}
	if !got.TriggerAt.Time.Equal(at) {
		t.Fatalf("reloaded trigger = %v, want %v", got.TriggerAt.Time, at)
	}
}

func TestStoreDocumentShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reminders.json")

	s, err := OpenStore(path, logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if _, err := s.Add("9", "t", time.Now().Add(time.Hour), ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := doc["reminders"]; !ok {
		t.Fatalf("top-level key missing, got %s", raw)
	}

	var inner []map[string]any
	if err := json.Unmarshal(doc["reminders"], &inner); err != nil {
		t.Fatalf("decode array: %v", err)
	}
	for _, key := range []string{"id", "userId", "title", "dateTime", "notes", "isCompleted", "createdAt"} {
		if _, ok := inner[0][key]; !ok {
			t.Fatalf("field %q missing in %v", key, inner[0])
		}
	}
}

func TestStoreSetFiredMonotonic(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Add("42", "x", time.Now().Add(time.Hour), "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.SetFired("42", rec.ID, true)
	if err != nil {
		t.Fatalf("SetFired(true): %v", err)
	}
	if !got.Fired {
		t.Fatal("not fired after SetFired(true)")
	}

	// Clearing is a silent no-op.
	got, err = s.SetFired("42", rec.ID, false)
	if err != nil {
		t.Fatalf("SetFired(false): %v", err)
	}
	if !got.Fired {
		t.Fatal("fired flag reverted")
	}

	if _, err := s.SetFired("43", rec.ID, true); err != ErrNotFound {
		t.Fatalf("foreign owner SetFired err = %v, want ErrNotFound", err)
	}
}

func TestStorePersistFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reminders.json")

	s, err := OpenStore(path, logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	rec, err := s.Add("42", "kept", time.Now().Add(time.Hour), "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	// A directory squatting on the temp path makes every snapshot write
	// fail, so each mutation below must error out.
	if err := os.Mkdir(path+".tmp", 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	if _, err := s.Add("42", "lost", time.Now().Add(time.Hour), ""); err == nil {
		t.Fatal("Add succeeded with persistence broken")
	}
	if _, err := s.Delete("42", rec.ID); err == nil {
		t.Fatal("Delete succeeded with persistence broken")
	}
	if _, err := s.SetFired("42", rec.ID, true); err == nil {
		t.Fatal("SetFired succeeded with persistence broken")
	}

	// In-memory state is untouched by the failed mutations.
	items := s.All()
	if len(items) != 1 {
		t.Fatalf("store holds %d items, want 1", len(items))
	}
	if items[0].ID != rec.ID || items[0].Title != "kept" || items[0].Fired {
		t.Fatalf("surviving record changed: %+v", items[0])
	}

	// And so is the document on disk.
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("document changed despite failed persists:\n%s", after)
	}

	// Once writes work again the store picks up where it left off.
	if err := os.Remove(path + ".tmp"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Add("42", "recovered", time.Now().Add(time.Hour), ""); err != nil {
		t.Fatalf("Add after recovery: %v", err)
	}
	if len(s.All()) != 2 {
		t.Fatalf("store holds %d items after recovery, want 2", len(s.All()))
	}
}

func TestStoreIDsUnique(t *testing.T) {
	s := newTestStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		rec, err := s.Add("1", "t", time.Now().Add(time.Hour), "")
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}
