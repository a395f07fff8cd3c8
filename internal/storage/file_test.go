package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "remindbot/pkg/logx"
)

func TestFileStoreAppendEvent(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "remindbot_store")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	at := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{At: at, Type: "created", Owner: "42", ReminderID: "100", Title: "dentist", TriggerAt: at.Add(time.Hour)},
		{At: at.Add(time.Minute), Type: "notify_failed", Owner: "42", ReminderID: "100", Error: "send failed"},
	}
	for _, e := range events {
		if err := st.AppendEvent(context.Background(), e); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "remindbot_store.events.jsonl"))
	if err != nil {
		t.Fatalf("open events file: %v", err)
	}
	defer f.Close()

	var lines []eventRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec eventRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		lines = append(lines, rec)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Type != "created" || lines[0].Owner != "42" || lines[0].TriggerAt == "" {
		t.Fatalf("first record: %+v", lines[0])
	}
	if lines[1].Type != "notify_failed" || lines[1].Error != "send failed" {
		t.Fatalf("second record: %+v", lines[1])
	}
}

func TestFileStoreClosedAppendFails(t *testing.T) {
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "s")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.AppendEvent(context.Background(), Event{Type: "created"}); err == nil {
		t.Fatal("append after close succeeded")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "bolt", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
