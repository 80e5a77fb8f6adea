package fanout

import (
	"zapdesk/entity"
	"zapdesk/internal/ws"
)

// Broadcaster is the room-based publish channel the fan-out writes to.
type Broadcaster interface {
	Emit(companyID uint, rooms []string, name string, payload any)
}

// Fanout publishes ticket and message state transitions to subscribed
// frontend clients.
type Fanout struct {
	hub Broadcaster
}

func New(hub Broadcaster) *Fanout {
	return &Fanout{hub: hub}
}

// TicketUpdate announces a changed ticket to its status room, its chat
// box and the notification badge.
func (f *Fanout) TicketUpdate(ticket *entity.Ticket) {
	f.hub.Emit(ticket.CompanyID, ws.TicketRooms(ticket.Status, ticket.ID), "ticket", map[string]any{
		"action": "update",
		"ticket": ticket,
	})
}

// TicketDelete tells clients watching a status room to drop the ticket
// from their lists.
func (f *Fanout) TicketDelete(companyID, ticketID uint, fromStatus string) {
	f.hub.Emit(companyID, ws.TicketRooms(fromStatus, ticketID), "ticket", map[string]any{
		"action":   "delete",
		"ticketId": ticketID,
	})
}

// MessageCreate pushes a freshly persisted message with its ticket and
// contact so open chat boxes can append it.
func (f *Fanout) MessageCreate(msg *entity.Message, ticket *entity.Ticket, contact *entity.Contact) {
	f.hub.Emit(ticket.CompanyID, ws.TicketRooms(ticket.Status, ticket.ID), "appMessage", map[string]any{
		"action":  "create",
		"message": msg,
		"ticket":  ticket,
		"contact": contact,
	})
}

// MessageUpdate pushes ack or deletion changes on an existing message.
func (f *Fanout) MessageUpdate(companyID uint, msg *entity.Message, ticket *entity.Ticket) {
	f.hub.Emit(companyID, ws.TicketRooms(ticket.Status, ticket.ID), "appMessage", map[string]any{
		"action":  "update",
		"message": msg,
	})
}

// WhatsappUpdate announces connection-level changes.
func (f *Fanout) WhatsappUpdate(wpp *entity.Whatsapp) {
	f.hub.Emit(wpp.CompanyID, []string{ws.RoomNotification}, "whatsapp", map[string]any{
		"action":   "update",
		"whatsapp": wpp,
	})
}
