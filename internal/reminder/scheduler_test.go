package reminder

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	logx "remindbot/pkg/logx"
)

type fakeSink struct {
	sent []string
	fail map[string]error
}

func (f *fakeSink) Notify(_ context.Context, r Reminder) error {
	if err := f.fail[r.ID]; err != nil {
		return err
	}
	f.sent = append(f.sent, r.ID)
	return nil
}

func ts(t time.Time) Timestamp { return Timestamp{t} }

func TestSelectDueWindow(t *testing.T) {
	now := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)
	lookahead := 15 * time.Minute

	items := []Reminder{
		{ID: "past", TriggerAt: ts(now.Add(-time.Minute))},
		{ID: "exactly-now", TriggerAt: ts(now)},
		{ID: "in-window", TriggerAt: ts(now.Add(10 * time.Minute))},
		{ID: "at-edge", TriggerAt: ts(now.Add(lookahead))},
		{ID: "beyond", TriggerAt: ts(now.Add(20 * time.Minute))},
		{ID: "fired", Fired: true, TriggerAt: ts(now.Add(5 * time.Minute))},
	}

	due := selectDue(items, now, lookahead)
	if len(due) != 1 || due[0].ID != "in-window" {
		ids := make([]string, len(due))
		for i, r := range due {
			ids[i] = r.ID
		}
		t.Fatalf("due = %v, want [in-window]", ids)
	}
}

func TestSelectDueBothBoundsExclusive(t *testing.T) {
	now := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)
	lookahead := 15 * time.Minute

	// One nanosecond inside either bound is selected; the bound itself
	// is not.
	inside := []Reminder{
		{ID: "a", TriggerAt: ts(now.Add(time.Nanosecond))},
		{ID: "b", TriggerAt: ts(now.Add(lookahead - time.Nanosecond))},
	}
	if due := selectDue(inside, now, lookahead); len(due) != 2 {
		t.Fatalf("inside bounds: %d due, want 2", len(due))
	}

	onBounds := []Reminder{
		{ID: "a", TriggerAt: ts(now)},
		{ID: "b", TriggerAt: ts(now.Add(lookahead))},
	}
	if due := selectDue(onBounds, now, lookahead); len(due) != 0 {
		t.Fatalf("on bounds: %d due, want 0", len(due))
	}
}

func newSchedStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "reminders.json"), logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return s
}

func TestCheckDueMarksFired(t *testing.T) {
	store := newSchedStore(t)
	now := time.Now()
	rec, err := store.Add("42", "due", now.Add(10*time.Minute), "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	sink := &fakeSink{}
	sched := NewScheduler(store, sink, nil, SchedulerConfig{}, logx.Nop())

	sched.checkDue(context.Background(), now)
	if len(sink.sent) != 1 || sink.sent[0] != rec.ID {
		t.Fatalf("sent = %v", sink.sent)
	}

	// Second scan must not re-send.
	sched.checkDue(context.Background(), now)
	if len(sink.sent) != 1 {
		t.Fatalf("re-sent: %v", sink.sent)
	}

	got := store.ForOwner("42")[0]
	if !got.Fired {
		t.Fatal("reminder not marked fired")
	}
}

func TestCheckDueFailedNotifyStillMarksFired(t *testing.T) {
	store := newSchedStore(t)
	now := time.Now()
	rec, err := store.Add("42", "due", now.Add(5*time.Minute), "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	sink := &fakeSink{fail: map[string]error{rec.ID: errors.New("send failed")}}
	sched := NewScheduler(store, sink, nil, SchedulerConfig{}, logx.Nop())

	sched.checkDue(context.Background(), now)
	if len(sink.sent) != 0 {
		t.Fatalf("sent = %v", sink.sent)
	}
	// Delivery is at most once; a failed attempt is not retried.
	if got := store.ForOwner("42")[0]; !got.Fired {
		t.Fatal("failed reminder not marked fired")
	}
	sched.checkDue(context.Background(), now)
	if len(sink.sent) != 0 {
		t.Fatalf("retried: %v", sink.sent)
	}
}

// blockingSink parks the first Notify until released; later calls
// return immediately so an overlap bug shows up as an extra call
// instead of a deadlock.
type blockingSink struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingSink) Notify(_ context.Context, _ Reminder) error {
	if b.calls.Add(1) == 1 {
		close(b.started)
		<-b.release
	}
	return nil
}

func TestTickSkippedWhileRunning(t *testing.T) {
	store := newSchedStore(t)
	now := time.Now()
	if _, err := store.Add("42", "due", now.Add(10*time.Minute), ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	sched := NewScheduler(store, sink, nil, SchedulerConfig{}, logx.Nop())

	done := make(chan struct{})
	go func() {
		sched.tick(context.Background())
		close(done)
	}()

	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first tick never reached the sink")
	}

	// With the first tick parked inside Notify, a second tick must
	// return without scanning or sending.
	sched.tick(context.Background())
	if n := sink.calls.Load(); n != 1 {
		t.Fatalf("sink called %d times during overlap, want 1", n)
	}

	close(sink.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first tick never finished")
	}

	if got := store.ForOwner("42")[0]; !got.Fired {
		t.Fatal("reminder not marked fired by the completed tick")
	}
	// The guard resets once the tick finishes.
	sched.tick(context.Background())
	if n := sink.calls.Load(); n != 1 {
		t.Fatalf("fired reminder re-sent after overlap: %d calls", n)
	}
}

func TestCheckDueSkipsMissedWindow(t *testing.T) {
	store := newSchedStore(t)
	now := time.Now()
	if _, err := store.Add("42", "missed", now.Add(-time.Minute), ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sink := &fakeSink{}
	sched := NewScheduler(store, sink, nil, SchedulerConfig{}, logx.Nop())
	sched.checkDue(context.Background(), now)

	if len(sink.sent) != 0 {
		t.Fatalf("missed reminder sent: %v", sink.sent)
	}
	// It stays unfired forever; nothing ever catches it up.
	if got := store.ForOwner("42")[0]; got.Fired {
		t.Fatal("missed reminder marked fired")
	}
}
