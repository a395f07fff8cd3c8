package app

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

// dispatchLoop consumes adapter updates and routes text commands.
func (a *App) dispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Message == nil {
				continue
			}
			a.handleMessage(ctx, up.Message)
		}
	}
}

func (a *App) handleMessage(ctx context.Context, m *kit.Message) {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}

	// Reminders belong to the sender; notifications go to their private
	// chat even when the command was issued in a group.
	owner := strconv.FormatInt(m.FromID, 10)
	to := kit.ChatTarget{ChatID: m.ChatID}

	cmd, rest := splitCommand(text)
	switch cmd {
	case "/start", "/help", "help":
		a.reply(ctx, to, helpText())
	case "/list", "list", "reminders":
		a.reply(ctx, to, renderList(a.svc.List(owner)))
	case "/delete", "delete":
		a.handleDelete(ctx, to, owner, rest)
	case "/done", "done":
		a.handleDone(ctx, to, owner, rest)
	default:
		if hasReminderPrefix(text) {
			a.handleCreate(ctx, to, owner, text)
			return
		}
		// Anything else in a group chat is not for us.
		if !m.IsGroup {
			a.reply(ctx, to, msgUnknown)
		}
	}
}

func (a *App) handleCreate(ctx context.Context, to kit.ChatTarget, owner, text string) {
	rec, err := a.svc.ParseAndCreate(owner, text)
	switch {
	case errors.Is(err, reminder.ErrNoMatch):
		a.reply(ctx, to, formatHint())
	case err != nil:
		a.log.Error("create failed", logx.String("owner", owner), logx.Err(err))
		a.reply(ctx, to, msgStoreError)
	default:
		a.reply(ctx, to, renderCreated(rec))
	}
}

func (a *App) handleDelete(ctx context.Context, to kit.ChatTarget, owner, arg string) {
	id := strings.TrimSpace(arg)
	if id == "" {
		a.reply(ctx, to, "Usage: /delete <id>")
		return
	}
	ok, err := a.svc.Remove(owner, id)
	if err != nil {
		a.log.Error("delete failed", logx.String("owner", owner), logx.String("id", id), logx.Err(err))
		a.reply(ctx, to, msgStoreError)
		return
	}
	if !ok {
		a.reply(ctx, to, msgNotFound)
		return
	}
	a.reply(ctx, to, "🗑 Reminder deleted.")
}

func (a *App) handleDone(ctx context.Context, to kit.ChatTarget, owner, arg string) {
	id := strings.TrimSpace(arg)
	if id == "" {
		a.reply(ctx, to, "Usage: /done <id>")
		return
	}
	_, err := a.svc.Complete(owner, id)
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		a.reply(ctx, to, msgNotFound)
	case err != nil:
		a.log.Error("done failed", logx.String("owner", owner), logx.String("id", id), logx.Err(err))
		a.reply(ctx, to, msgStoreError)
	default:
		a.reply(ctx, to, "✅ Marked as done.")
	}
}

func (a *App) reply(ctx context.Context, to kit.ChatTarget, text string) {
	if err := a.adapter.SendText(ctx, to, text, &kit.SendOptions{DisablePreview: true}); err != nil {
		a.log.Warn("reply failed", logx.Int64("chat", to.ChatID), logx.Err(err))
	}
}

// splitCommand separates the first token from the remainder and strips
// a trailing @BotName from slash commands sent in groups.
func splitCommand(text string) (cmd, rest string) {
	cmd, rest, _ = strings.Cut(text, " ")
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	if strings.HasPrefix(cmd, "/") {
		if i := strings.IndexByte(cmd, '@'); i > 0 {
			cmd = cmd[:i]
		}
	}
	return cmd, strings.TrimSpace(rest)
}

func hasReminderPrefix(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimPrefix(t, "/")
	return strings.HasPrefix(t, "remind")
}
