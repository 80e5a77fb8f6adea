// Package tracker is the error-tracking collaborator: anything a human
// should look at is logged with its payload context and, when a Telegram
// admin chat is configured, pushed there as a condensed report.
package tracker

import (
	"fmt"
	"log/slog"

	"zapdesk/internal/lib/sl"
)

// Notifier delivers a report to the admin channel.
type Notifier interface {
	SendMessage(msg string)
}

type Tracker struct {
	log      *slog.Logger
	notifier Notifier
}

// New creates a tracker. notifier may be nil; reports then only hit the log.
func New(log *slog.Logger, notifier Notifier) *Tracker {
	return &Tracker{
		log:      log.With(sl.Module("tracker")),
		notifier: notifier,
	}
}

// Report records an unexpected condition together with whatever context
// the call site can attach. Never blocks message processing.
func (t *Tracker) Report(what string, err error, context map[string]any) {
	attrs := make([]any, 0, len(context)+1)
	if err != nil {
		attrs = append(attrs, sl.Err(err))
	}
	for k, v := range context {
		attrs = append(attrs, slog.Any(k, v))
	}
	t.log.Error(what, attrs...)

	if t.notifier == nil {
		return
	}
	text := what
	if err != nil {
		text = fmt.Sprintf("%s: %v", what, err)
	}
	go t.notifier.SendMessage(text)
}
