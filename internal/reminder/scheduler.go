package reminder

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/eventbus"
	logx "remindbot/pkg/logx"
)

// Sink delivers a due reminder. Failure is an outcome, not an
// exception: the scheduler logs it, records it, and moves on. Timeouts,
// if any, belong to the sink's own contract.
type Sink interface {
	Notify(ctx context.Context, r Reminder) error
}

type SchedulerConfig struct {
	// TickSpec is a cron expression; defaults to every minute.
	TickSpec string
	// Lookahead is the width of the open (now, now+lookahead) selection
	// window; defaults to 15 minutes.
	Lookahead time.Duration
}

// Scheduler periodically scans the store and fires reminders about to
// become due, at most once each.
//
// The tick interval is independent of tick duration; if a tick is still
// running when the next one starts, the new tick is skipped rather than
// allowing overlapping full-collection rewrites.
type Scheduler struct {
	store *Store
	sink  Sink
	bus   eventbus.Bus
	log   logx.Logger
	cfg   SchedulerConfig

	mu        sync.Mutex
	c         *cron.Cron
	runCtx    context.Context
	runCancel context.CancelFunc

	ticking atomic.Bool
}

func NewScheduler(store *Store, sink Sink, bus eventbus.Bus, cfg SchedulerConfig, log logx.Logger) *Scheduler {
	if strings.TrimSpace(cfg.TickSpec) == "" {
		cfg.TickSpec = "* * * * *"
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 15 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{store: store, sink: sink, bus: bus, cfg: cfg, log: log}
}

// Start begins ticking. Idempotent while running.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	s.runCtx, s.runCancel = context.WithCancel(ctx)
	runCtx := s.runCtx

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.TickSpec, func() { s.tick(runCtx) }); err != nil {
		s.runCancel()
		s.runCtx, s.runCancel = nil, nil
		return err
	}
	s.c = c
	c.Start()
	s.log.Info("scheduler started",
		logx.String("spec", s.cfg.TickSpec),
		logx.Duration("lookahead", s.cfg.Lookahead),
	)
	return nil
}

// Stop halts future ticks. An in-flight tick's notify loop runs to
// completion (bounded by ctx) before Stop returns.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCtx, s.runCancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	// cron.Stop's context completes once running jobs have returned.
	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out; tick still draining")
	}
	if cancel != nil {
		cancel()
	}
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.log.Warn("tick skipped; previous tick still running")
		return
	}
	defer s.ticking.Store(false)

	s.checkDue(ctx, time.Now())
}

// checkDue fires every unfired reminder strictly inside (now,
// now+lookahead), in scan order. The fired flag is set regardless of the
// delivery outcome: at-most-once beats retry spam here, so a failed
// notification is dropped from future consideration. Reminders whose
// trigger already passed are never selected.
func (s *Scheduler) checkDue(ctx context.Context, now time.Time) {
	due := selectDue(s.store.All(), now, s.cfg.Lookahead)
	if len(due) == 0 {
		return
	}
	s.log.Debug("due reminders selected", logx.Int("count", len(due)))

	for _, r := range due {
		if ctx.Err() != nil {
			return
		}

		err := s.sink.Notify(ctx, r)
		if err != nil {
			s.log.Warn("notify failed",
				logx.String("id", r.ID),
				logx.String("owner", r.Owner),
				logx.Err(err),
			)
			s.publish(EventNotifyFailed, r, err)
		} else {
			s.log.Info("reminder fired",
				logx.String("id", r.ID),
				logx.String("owner", r.Owner),
				logx.Time("trigger_at", r.TriggerAt.Time),
			)
			s.publish(EventFired, r, nil)
		}

		// Mark fired unconditionally so the next tick never re-sends.
		if _, err := s.store.SetFired(r.Owner, r.ID, true); err != nil {
			s.log.Error("mark fired failed", logx.String("id", r.ID), logx.Err(err))
		}
	}
}

// selectDue picks unfired reminders with now < triggerAt < now+lookahead,
// both bounds exclusive, preserving scan order.
func selectDue(items []Reminder, now time.Time, lookahead time.Duration) []Reminder {
	window := now.Add(lookahead)
	var due []Reminder
	for _, r := range items {
		if r.Fired {
			continue
		}
		at := r.TriggerAt.Time
		if at.After(now) && at.Before(window) {
			due = append(due, r)
		}
	}
	return due
}

func (s *Scheduler) publish(typ string, rec Reminder, cause error) {
	if s.bus == nil {
		return
	}
	ev := LifecycleEvent{Reminder: rec}
	if cause != nil {
		ev.Error = cause.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}
