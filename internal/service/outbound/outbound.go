// Package outbound is the common send-and-record path: every
// business-originated message goes out through the session, gets
// persisted, updates the ticket preview and reaches subscribed clients.
package outbound

import (
	"context"
	"fmt"
	"log/slog"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/lib/body"
	"zapdesk/internal/lib/sl"
	"zapdesk/internal/service/normalizer"
)

// Events is the fan-out surface the sender needs.
type Events interface {
	TicketUpdate(ticket *entity.Ticket)
	MessageCreate(msg *entity.Message, ticket *entity.Ticket, contact *entity.Contact)
}

type Sender struct {
	log    *slog.Logger
	store  *database.Store
	events Events
}

func New(store *database.Store, events Events, log *slog.Logger) *Sender {
	return &Sender{
		log:    log.With(sl.Module("outbound")),
		store:  store,
		events: events,
	}
}

// Text sends an automatic text on a ticket and records it. The body is
// prefixed with the invisible business marker so the inbound pipeline
// recognizes the echo.
func (s *Sender) Text(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, text string) (*entity.Message, error) {
	marked := body.Marker + text
	wid, err := session.SendText(ctx, Jid(ticket), marked)
	if err != nil {
		return nil, fmt.Errorf("sending text: %w", err)
	}
	return s.record(ctx, ticket, wid, marked, normalizer.KindText)
}

// List sends a list menu on a ticket and records its text rendering.
func (s *Sender) List(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, text, buttonText string, rows []whatsapp.MenuRow) (*entity.Message, error) {
	wid, err := session.SendList(ctx, Jid(ticket), text, buttonText, rows)
	if err != nil {
		return nil, fmt.Errorf("sending list: %w", err)
	}
	return s.record(ctx, ticket, wid, text, normalizer.KindText)
}

// Buttons sends a quick-reply menu on a ticket and records its text
// rendering.
func (s *Sender) Buttons(ctx context.Context, session whatsapp.Session, ticket *entity.Ticket, text string, buttons []whatsapp.MenuButton) (*entity.Message, error) {
	wid, err := session.SendButtons(ctx, Jid(ticket), text, buttons)
	if err != nil {
		return nil, fmt.Errorf("sending buttons: %w", err)
	}
	return s.record(ctx, ticket, wid, text, normalizer.KindText)
}

// record persists the sent message, refreshes the ticket preview and
// fans the creation out.
func (s *Sender) record(ctx context.Context, ticket *entity.Ticket, wid, text, kind string) (*entity.Message, error) {
	msg := &entity.Message{
		WID:       wid,
		TicketID:  ticket.ID,
		Body:      text,
		FromMe:    true,
		Read:      true,
		Ack:       entity.AckSent,
		MediaType: kind,
		RemoteJid: Jid(ticket),
		CompanyID: ticket.CompanyID,
	}
	stored, created, err := s.store.CreateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("recording sent message: %w", err)
	}
	if !created {
		return stored, nil
	}

	ticket.LastMessage = text
	if err := s.store.SaveTicket(ctx, ticket); err != nil {
		s.log.Warn("failed to update ticket preview",
			slog.Uint64("ticket_id", uint64(ticket.ID)), sl.Err(err))
	}

	s.events.MessageCreate(stored, ticket, ticket.Contact)
	s.events.TicketUpdate(ticket)
	return stored, nil
}

// Jid is the provider address of a ticket's contact.
func Jid(ticket *entity.Ticket) string {
	if ticket.Contact == nil {
		return ""
	}
	if ticket.IsGroup {
		return ticket.Contact.Number + "@g.us"
	}
	return ticket.Contact.Number
}
