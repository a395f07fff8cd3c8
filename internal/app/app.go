package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/eventbus"
	"remindbot/internal/notify"
	"remindbot/internal/reminder"
	rtsup "remindbot/internal/runtime/supervisor"
	"remindbot/internal/storage"
	"remindbot/internal/transport/telegram"
	logx "remindbot/pkg/logx"

	kit "remindbot/internal/transport"
)

// App owns the whole process: config, logging, the chat adapter, the
// reminder core and its scheduler, and the optional audit trail.
type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	bus     eventbus.Bus
	audit   storage.Store

	svc    *reminder.Service
	sched  *reminder.Scheduler
	sender *notify.Sender

	schedEnabled bool

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	pollTimeout, err := config.DurationDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()

	path := strings.TrimSpace(cfg.Reminders.Path)
	if path == "" {
		path = "./db/reminders.json"
	}
	store, err := reminder.OpenStore(path, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}

	svc := reminder.NewService(store, bus, log.With(logx.String("comp", "reminders")))

	notifyTimeout, err := config.DurationDefault("reminders.notify_timeout", cfg.Reminders.NotifyTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	sender := notify.New(notify.Config{
		RatePerSec:  cfg.Reminders.NotifyRatePerSec,
		SendTimeout: notifyTimeout,
	}, ad, log.With(logx.String("comp", "notify")))

	lookahead, err := config.DurationDefault("reminders.lookahead", cfg.Reminders.Lookahead, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	sched := reminder.NewScheduler(store, sender, bus, reminder.SchedulerConfig{
		TickSpec:  cfg.Reminders.TickSpec,
		Lookahead: lookahead,
	}, log.With(logx.String("comp", "scheduler")))

	var audit storage.Store
	if cfg.Storage != nil {
		busyTimeout, err := config.Duration("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		audit, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busyTimeout,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
	}

	return &App{
		cfgPath:      cfgPath,
		cfgm:         cfgm,
		log:          log,
		logs:         logSvc,
		adapter:      ad,
		bus:          bus,
		audit:        audit,
		svc:          svc,
		sched:        sched,
		sender:       sender,
		schedEnabled: cfg.Reminders.Enabled,
		updates:      make(chan kit.Update, 256),
	}, nil
}

func validateConfig(cfg *config.Config) error {
	if _, err := config.Duration("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := config.Duration("reminders.lookahead", cfg.Reminders.Lookahead); err != nil {
		return err
	}
	if _, err := config.Duration("reminders.notify_timeout", cfg.Reminders.NotifyTimeout); err != nil {
		return err
	}
	if cfg.Reminders.NotifyRatePerSec < 0 {
		return fmt.Errorf("reminders.notify_rate_per_sec must be >= 0")
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	if a.schedEnabled {
		if err := a.sched.Start(a.sup.Context()); err != nil {
			return err
		}
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.dispatchLoop(c, a.updates)
	})

	a.sup.Go0("audit.trail", func(c context.Context) {
		a.auditLoop(c)
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig applies the live-reloadable parts of a committed config:
// logging sinks, notify rate and scheduler enablement. Tick spec,
// lookahead and storage changes take effect on the next process start.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		return
	}

	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a.sender.SetRate(cfg.Reminders.NotifyRatePerSec)

	if a.schedEnabled && !cfg.Reminders.Enabled {
		a.log.Info("scheduler disabled via config")
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	} else if !a.schedEnabled && cfg.Reminders.Enabled {
		a.log.Info("scheduler enabled via config")
		if err := a.sched.Start(ctx); err != nil {
			a.log.Error("scheduler start failed", logx.Err(err))
		}
	}
	a.schedEnabled = cfg.Reminders.Enabled

	a.log.Info("config reloaded")
}

// auditLoop drains reminder lifecycle events into the optional audit
// store. Best-effort: failures are logged, never escalated.
func (a *App) auditLoop(ctx context.Context) {
	if a.audit == nil {
		return
	}
	events, unsub := a.bus.Subscribe(64)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, ok := ev.Data.(reminder.LifecycleEvent)
			if !ok {
				continue
			}
			rec := storage.Event{
				At:         ev.Time,
				Type:       strings.TrimPrefix(ev.Type, "reminder."),
				Owner:      data.Reminder.Owner,
				ReminderID: data.Reminder.ID,
				Title:      data.Reminder.Title,
				TriggerAt:  data.Reminder.TriggerAt.Time,
				Error:      data.Error,
			}
			wctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
			if err := a.audit.AppendEvent(wctx, rec); err != nil {
				a.log.Debug("audit append failed", logx.Err(err))
			}
			cancel()
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Run a shutdown step with an upper bound so one component can't stall
	// the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem > 0 && rem < max {
					max = rem
				}
			}
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	if a.audit != nil {
		step("storage", time.Second, func(context.Context) error { return a.audit.Close() })
	}

	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}
