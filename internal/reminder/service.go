package reminder

import (
	"errors"
	"time"

	"remindbot/internal/eventbus"
	logx "remindbot/pkg/logx"
)

// Lifecycle event types published on the bus.
const (
	EventCreated      = "reminder.created"
	EventDeleted      = "reminder.deleted"
	EventCompleted    = "reminder.completed"
	EventFired        = "reminder.fired"
	EventNotifyFailed = "reminder.notify_failed"
)

// LifecycleEvent is the bus payload for all reminder events.
type LifecycleEvent struct {
	Reminder Reminder
	Error    string
}

// Service exposes the caller-facing operations: parse-then-create,
// owner-scoped listing, removal and manual completion. The acting user's
// identity is supplied by the caller and trusted.
type Service struct {
	store *Store
	bus   eventbus.Bus
	log   logx.Logger
}

func NewService(store *Store, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, bus: bus, log: log}
}

func (s *Service) Store() *Store { return s.store }

// ParseAndCreate extracts a time expression from raw text and persists a
// new reminder. Returns ErrNoMatch when the text has no recognized time
// expression.
func (s *Service) ParseAndCreate(owner, raw string) (Reminder, error) {
	p, ok := Parse(raw)
	if !ok {
		return Reminder{}, ErrNoMatch
	}

	rec, err := s.store.Add(owner, p.Title, p.TriggerAt, "")
	if err != nil {
		return Reminder{}, err
	}
	s.log.Info("reminder created",
		logx.String("id", rec.ID),
		logx.String("owner", rec.Owner),
		logx.Time("trigger_at", rec.TriggerAt.Time),
	)
	s.publish(EventCreated, rec, nil)
	return rec, nil
}

// List returns the owner's reminders in insertion order.
func (s *Service) List(owner string) []Reminder {
	return s.store.ForOwner(owner)
}

// Remove deletes an owned reminder. false means "no such reminder" — a
// reminder owned by someone else looks exactly the same.
func (s *Service) Remove(owner, id string) (bool, error) {
	removed, err := s.store.Delete(owner, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Info("reminder deleted", logx.String("id", id), logx.String("owner", owner))
		s.publish(EventDeleted, Reminder{ID: id, Owner: owner}, nil)
	}
	return removed, nil
}

// Complete marks an owned reminder fired by explicit user action.
func (s *Service) Complete(owner, id string) (Reminder, error) {
	rec, err := s.store.SetFired(owner, id, true)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("complete failed", logx.String("id", id), logx.Err(err))
		}
		return Reminder{}, err
	}
	s.log.Info("reminder completed", logx.String("id", id), logx.String("owner", owner))
	s.publish(EventCompleted, rec, nil)
	return rec, nil
}

func (s *Service) publish(typ string, rec Reminder, cause error) {
	if s.bus == nil {
		return
	}
	ev := LifecycleEvent{Reminder: rec}
	if cause != nil {
		ev.Error = cause.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: ev})
}
