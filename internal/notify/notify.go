package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type Config struct {
	// RatePerSec caps outbound sends; defaults to 3.
	RatePerSec int
	// SendTimeout bounds a single delivery attempt; defaults to 10s.
	SendTimeout time.Duration
}

// Sender delivers due reminders through the chat adapter. It reports
// success or failure and nothing else; there are no retries at this
// layer.
type Sender struct {
	adapter kit.Adapter
	log     logx.Logger

	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Sender {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{
		adapter: adapter,
		log:     log,
		cfg:     cfg,
		// Token bucket: burst = rate per sec, so short spikes don't block.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// SetRate adjusts the send rate at runtime (config hot reload).
func (s *Sender) SetRate(perSec int) {
	if perSec <= 0 {
		perSec = 3
	}
	s.limiter.SetLimit(rate.Limit(perSec))
	s.limiter.SetBurst(perSec)
}

// Notify implements reminder.Sink.
func (s *Sender) Notify(ctx context.Context, r reminder.Reminder) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	chatID, err := strconv.ParseInt(r.Owner, 10, 64)
	if err != nil {
		return fmt.Errorf("notify: owner %q is not a chat id: %w", r.Owner, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	text := renderNotification(r)
	if err := s.adapter.SendText(callCtx, kit.ChatTarget{ChatID: chatID}, text, nil); err != nil {
		return err
	}
	s.log.Debug("notification sent", logx.String("id", r.ID), logx.String("owner", r.Owner))
	return nil
}

func renderNotification(r reminder.Reminder) string {
	title := r.Title
	if title == "" {
		title = "(no title)"
	}
	text := fmt.Sprintf("⏰ Reminder: %s\nDue at %s", title, r.TriggerAt.Local().Format("2006/01/02 15:04"))
	if r.Notes != "" {
		text += "\nNotes: " + r.Notes
	}
	return text
}
