package app

import (
	"fmt"
	"sort"
	"strings"

	"remindbot/internal/reminder"
)

const (
	msgNotFound   = "Reminder not found."
	msgStoreError = "Something went wrong saving your reminders, please try again."
	msgUnknown    = "I didn't understand that. Send /help to see what I can do."

	timeLayout = "Mon 02 Jan 15:04"
)

func helpText() string {
	return strings.Join([]string{
		"I keep track of reminders for you.",
		"",
		"remind me tomorrow at 3pm pay phone bill",
		"remind me day after tomorrow 9:30 standup notes",
		"remind me 12/25 18:00 wrap presents",
		"",
		"/list — show your reminders",
		"/done <id> — mark one as done",
		"/delete <id> — remove one",
	}, "\n")
}

// formatHint is the reply for text that starts like a reminder but has
// no recognizable date.
func formatHint() string {
	return strings.Join([]string{
		"I couldn't find a date in that. Try one of:",
		"",
		"remind me tomorrow at 3pm pay phone bill",
		"remind me day after tomorrow 9:30 standup notes",
		"remind me 12/25 18:00 wrap presents",
	}, "\n")
}

func renderCreated(r reminder.Reminder) string {
	title := r.Title
	if title == "" {
		title = "(no title)"
	}
	return fmt.Sprintf("⏰ Got it. %q on %s\nid: %s",
		title, r.TriggerAt.Time.Format(timeLayout), r.ID)
}

// renderList shows the owner's reminders ordered by trigger time.
// Ordering here is presentation only; the store keeps insertion order.
func renderList(items []reminder.Reminder) string {
	if len(items) == 0 {
		return "You have no reminders."
	}
	sorted := make([]reminder.Reminder, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TriggerAt.Time.Before(sorted[j].TriggerAt.Time)
	})

	var b strings.Builder
	b.WriteString("Your reminders:\n")
	for _, r := range sorted {
		mark := "•"
		if r.Fired {
			mark = "✓"
		}
		title := r.Title
		if title == "" {
			title = "(no title)"
		}
		fmt.Fprintf(&b, "%s %s — %s (id %s)\n",
			mark, r.TriggerAt.Time.Format(timeLayout), title, r.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}
