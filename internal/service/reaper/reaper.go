// Package reaper sweeps idle tickets on a schedule: open tickets past
// the connection's idle timeout move to nps or closed, and abandoned
// rating prompts are force-closed.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/tickets"
)

// Events is the fan-out surface the reaper emits on.
type Events interface {
	TicketUpdate(ticket *entity.Ticket)
	TicketDelete(companyID, ticketID uint, fromStatus string)
}

type Reaper struct {
	log     *slog.Logger
	store   *database.Store
	updater *tickets.Updater
	events  Events
	cron    *cron.Cron
	now     func() time.Time
}

func New(store *database.Store, updater *tickets.Updater, events Events, log *slog.Logger) *Reaper {
	return &Reaper{
		log:     log.With(sl.Module("reaper")),
		store:   store,
		updater: updater,
		events:  events,
		cron:    cron.New(),
		now:     time.Now,
	}
}

// SetClock overrides the reaper's time source. Test hook.
func (r *Reaper) SetClock(now func() time.Time) { r.now = now }

// Start schedules the sweep every minute.
func (r *Reaper) Start() error {
	_, err := r.cron.AddFunc("* * * * *", func() {
		r.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for a running sweep.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep runs one pass over every connection. Errors are isolated per
// connection and per ticket; one bad row never stops the sweep.
func (r *Reaper) Sweep(ctx context.Context) {
	wpps, err := r.store.Whatsapps(ctx)
	if err != nil {
		r.log.Error("failed to list connections", sl.Err(err))
		return
	}

	for i := range wpps {
		r.sweepConnection(ctx, &wpps[i])
	}
}

func (r *Reaper) sweepConnection(ctx context.Context, wpp *entity.Whatsapp) {
	if wpp.ExpiresTicket > 0 {
		cutoff := r.now().Add(-time.Duration(wpp.ExpiresTicket) * time.Hour)
		idle, err := r.store.TicketsIdleSince(ctx, entity.StatusOpen, wpp.ID, cutoff)
		if err != nil {
			r.log.Error("failed to list idle open tickets",
				slog.Uint64("whatsapp_id", uint64(wpp.ID)), sl.Err(err))
		} else {
			for i := range idle {
				r.expireOpen(ctx, wpp, &idle[i])
			}
		}
	}

	if wpp.ExpiresTicketNPS > 0 {
		cutoff := r.now().Add(-time.Duration(wpp.ExpiresTicketNPS) * time.Minute)
		stale, err := r.store.TicketsIdleSince(ctx, entity.StatusNPS, wpp.ID, cutoff)
		if err != nil {
			r.log.Error("failed to list stale nps tickets",
				slog.Uint64("whatsapp_id", uint64(wpp.ID)), sl.Err(err))
			return
		}
		for i := range stale {
			// An abandoned rating prompt counts as implicit closure.
			if err := r.updater.ForceClose(ctx, &stale[i]); err != nil {
				r.log.Error("failed to close stale nps ticket",
					slog.Uint64("ticket_id", uint64(stale[i].ID)), sl.Err(err))
			}
		}
	}
}

// expireOpen moves an idle open ticket to nps when the connection uses
// the rating phase, else closes it outright.
func (r *Reaper) expireOpen(ctx context.Context, wpp *entity.Whatsapp, ticket *entity.Ticket) {
	if !wpp.UseNPS {
		if err := r.updater.ForceClose(ctx, ticket); err != nil {
			r.log.Error("failed to close idle ticket",
				slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		}
		return
	}

	oldStatus := ticket.Status
	ticket.Status = entity.StatusNPS
	ticket.UserID = nil
	ticket.UnreadMessages = 0
	if err := r.store.SaveTicket(ctx, ticket); err != nil {
		r.log.Error("failed to move ticket to nps",
			slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
		return
	}
	r.events.TicketDelete(ticket.CompanyID, ticket.ID, oldStatus)
	r.events.TicketUpdate(ticket)
}
