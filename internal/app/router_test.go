package app

import (
	"strings"
	"testing"
	"time"

	"remindbot/internal/reminder"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in, cmd, rest string
	}{
		{"/list", "/list", ""},
		{"/delete 123", "/delete", "123"},
		{"/list@RemindBot", "/list", ""},
		{"/done@RemindBot  456 ", "/done", "456"},
		{"DELETE 9", "delete", "9"},
		{"remind me tomorrow at 8 x", "remind", "me tomorrow at 8 x"},
	}
	for _, tc := range cases {
		cmd, rest := splitCommand(tc.in)
		if cmd != tc.cmd || rest != tc.rest {
			t.Fatalf("splitCommand(%q) = %q, %q", tc.in, cmd, rest)
		}
	}
}

func TestHasReminderPrefix(t *testing.T) {
	for in, want := range map[string]bool{
		"remind me tomorrow at 8 x": true,
		"Remind tomorrow at 8 x":    true,
		"/remind me 12/25 9 x":      true,
		"reminders":                 true,
		"list":                      false,
		"tell me a joke":            false,
	} {
		if got := hasReminderPrefix(in); got != want {
			t.Fatalf("hasReminderPrefix(%q) = %v", in, got)
		}
	}
}

func TestRenderListSortsByTime(t *testing.T) {
	base := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)
	items := []reminder.Reminder{
		{ID: "2", Title: "later", TriggerAt: reminder.Timestamp{Time: base.Add(2 * time.Hour)}},
		{ID: "1", Title: "sooner", TriggerAt: reminder.Timestamp{Time: base.Add(time.Hour)}},
	}

	out := renderList(items)
	if strings.Index(out, "sooner") > strings.Index(out, "later") {
		t.Fatalf("list not time-ordered:\n%s", out)
	}
	// Input order is untouched.
	if items[0].ID != "2" {
		t.Fatal("renderList mutated its input")
	}
}

func TestRenderListEmpty(t *testing.T) {
	if out := renderList(nil); !strings.Contains(out, "no reminders") {
		t.Fatalf("empty list message: %q", out)
	}
}
