package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"zapdesk/entity"
)

// ActiveTicket finds the non-closed ticket for a contact on one
// connection, if any.
func (s *Store) ActiveTicket(ctx context.Context, contactID, whatsappID, companyID uint) (*entity.Ticket, error) {
	var ticket entity.Ticket
	err := s.db.WithContext(ctx).
		Preload("Contact").
		Preload("Queue").
		Where("contact_id = ? AND whatsapp_id = ? AND company_id = ? AND status <> ?",
			contactID, whatsappID, companyID, entity.StatusClosed).
		Order("id DESC").
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// TicketByID loads one ticket with its contact and queue.
func (s *Store) TicketByID(ctx context.Context, id, companyID uint) (*entity.Ticket, error) {
	var ticket entity.Ticket
	err := s.db.WithContext(ctx).
		Preload("Contact").
		Preload("Queue").
		Where("company_id = ?", companyID).
		First(&ticket, id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &ticket, nil
}

// CreateTicket inserts a new ticket.
func (s *Store) CreateTicket(ctx context.Context, ticket *entity.Ticket) error {
	return s.db.WithContext(ctx).Create(ticket).Error
}

// SaveTicket persists ticket field changes, including nil foreign keys.
func (s *Store) SaveTicket(ctx context.Context, ticket *entity.Ticket) error {
	return s.db.WithContext(ctx).
		Omit("Contact", "Queue").
		Select("*").
		Save(ticket).Error
}

// TicketsIdleSince lists non-group tickets in the given status whose
// last update is older than the cutoff, together with their connection.
func (s *Store) TicketsIdleSince(ctx context.Context, status string, whatsappID uint, cutoff time.Time) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := s.db.WithContext(ctx).
		Preload("Contact").
		Where("status = ? AND whatsapp_id = ? AND is_group = ? AND updated_at < ?",
			status, whatsappID, false, cutoff).
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
