// Package tickets owns the conversation lifecycle: finding or creating
// the ticket an inbound message belongs to, and applying status updates
// including the closing rating flow.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/sl"
)

// Events is the fan-out surface this package emits on.
type Events interface {
	TicketUpdate(ticket *entity.Ticket)
	TicketDelete(companyID, ticketID uint, fromStatus string)
}

type unreadKey struct {
	companyID uint
	contactID uint
}

// Resolver finds or creates the active ticket for a contact. It keeps
// the per-contact unread counter: customer messages increment it,
// business messages reset it.
type Resolver struct {
	log    *slog.Logger
	store  *database.Store
	events Events

	mu     sync.Mutex
	unread map[unreadKey]int
}

func NewResolver(store *database.Store, events Events, log *slog.Logger) *Resolver {
	return &Resolver{
		log:    log.With(sl.Module("tickets")),
		store:  store,
		events: events,
		unread: make(map[unreadKey]int),
	}
}

// Resolve returns the active ticket for the contact, creating a pending
// one when none exists. A contact whose previous ticket was closed gets
// a fresh ticket; closure is terminal per conversation cycle.
func (r *Resolver) Resolve(ctx context.Context, contact *entity.Contact, whatsappID, companyID uint, fromMe, isGroup bool) (*entity.Ticket, error) {
	unread := r.bumpUnread(companyID, contact.ID, fromMe)

	ticket, err := r.store.ActiveTicket(ctx, contact.ID, whatsappID, companyID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("looking up active ticket: %w", err)
	}

	if ticket != nil {
		if ticket.UnreadMessages != unread {
			ticket.UnreadMessages = unread
			if err := r.store.SaveTicket(ctx, ticket); err != nil {
				return nil, fmt.Errorf("updating unread count: %w", err)
			}
			r.events.TicketUpdate(ticket)
		}
		return ticket, nil
	}

	ticket = entity.NewTicket(contact, whatsappID, companyID, isGroup, unread)
	if err := r.store.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("creating ticket: %w", err)
	}
	if _, err := r.store.FindOrCreateTracking(ctx, ticket); err != nil {
		r.log.Warn("failed to open tracking",
			slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
	}

	r.log.Info("ticket created",
		slog.Uint64("ticket_id", uint64(ticket.ID)),
		slog.Uint64("contact_id", uint64(contact.ID)),
		slog.Uint64("company_id", uint64(companyID)),
	)
	r.events.TicketUpdate(ticket)
	return ticket, nil
}

// bumpUnread advances the tenant-scoped unread counter for a contact.
// Business-originated messages reset it to zero.
func (r *Resolver) bumpUnread(companyID, contactID uint, fromMe bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := unreadKey{companyID: companyID, contactID: contactID}
	if fromMe {
		r.unread[key] = 0
		return 0
	}
	r.unread[key]++
	return r.unread[key]
}
