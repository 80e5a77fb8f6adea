package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// Alerter pushes a short text to whoever watches the service. In
// production this is the Telegram admin chat.
type Alerter interface {
	SendMessage(msg string)
}

// alertHandler fans records at or above minLevel out to an Alerter while
// delegating everything to the wrapped handler.
type alertHandler struct {
	next     slog.Handler
	alerter  Alerter
	minLevel slog.Level
}

// SetupAlertHandler wraps a logger so records at minLevel and above are
// also pushed to the alerter.
func SetupAlertHandler(log *slog.Logger, alerter Alerter, minLevel slog.Level) *slog.Logger {
	return slog.New(&alertHandler{
		next:     log.Handler(),
		alerter:  alerter,
		minLevel: minLevel,
	})
}

func (h *alertHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *alertHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel && h.alerter != nil {
		text := fmt.Sprintf("[%s] %s", r.Level, r.Message)
		r.Attrs(func(a slog.Attr) bool {
			text += fmt.Sprintf("\n%s: %s", a.Key, a.Value)
			return true
		})
		go h.alerter.SendMessage(text)
	}
	return h.next.Handle(ctx, r)
}

func (h *alertHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &alertHandler{next: h.next.WithAttrs(attrs), alerter: h.alerter, minLevel: h.minLevel}
}

func (h *alertHandler) WithGroup(name string) slog.Handler {
	return &alertHandler{next: h.next.WithGroup(name), alerter: h.alerter, minLevel: h.minLevel}
}
