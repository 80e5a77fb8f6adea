// Package core is the facade the HTTP surface talks to: it fronts the
// inbound pipeline, the ticket updater and the store behind the small
// interfaces the handlers declare.
package core

import (
	"context"

	"zapdesk/bot/whatsapp"
	"zapdesk/entity"
	"zapdesk/internal/database"
	"zapdesk/internal/service/inbound"
	"zapdesk/internal/service/tickets"
)

type Core struct {
	pipeline *inbound.Pipeline
	updater  *tickets.Updater
	store    *database.Store
}

func New(pipeline *inbound.Pipeline, updater *tickets.Updater, store *database.Store) *Core {
	return &Core{
		pipeline: pipeline,
		updater:  updater,
		store:    store,
	}
}

func (c *Core) HandleEvents(whatsappID uint, msgs []whatsapp.RawMessage, acks []whatsapp.AckEvent) {
	c.pipeline.HandleEvents(whatsappID, msgs, acks)
}

func (c *Core) Update(ctx context.Context, ticketID, companyID uint, req tickets.UpdateRequest) (*entity.Ticket, error) {
	return c.updater.Update(ctx, ticketID, companyID, req)
}

func (c *Core) MarkRead(ctx context.Context, ticket *entity.Ticket) error {
	return c.updater.MarkRead(ctx, ticket)
}

func (c *Core) TicketByID(ctx context.Context, id, companyID uint) (*entity.Ticket, error) {
	return c.store.TicketByID(ctx, id, companyID)
}
