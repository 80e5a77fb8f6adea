package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"zapdesk/entity"
)

// FindOrCreateTracking returns the unfinished tracking row for a ticket,
// creating one when the current cycle has none yet.
func (s *Store) FindOrCreateTracking(ctx context.Context, ticket *entity.Ticket) (*entity.TicketTracking, error) {
	var tracking entity.TicketTracking
	err := s.db.WithContext(ctx).
		Where("ticket_id = ? AND finished_at IS NULL", ticket.ID).
		Order("id DESC").
		First(&tracking).Error
	if err == nil {
		return &tracking, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tracking = entity.TicketTracking{
		TicketID:   ticket.ID,
		CompanyID:  ticket.CompanyID,
		WhatsappID: ticket.WhatsappID,
		UserID:     ticket.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&tracking).Error; err != nil {
		return nil, err
	}
	return &tracking, nil
}

// OpenTracking returns the unfinished tracking row for a ticket, if any.
func (s *Store) OpenTracking(ctx context.Context, ticketID uint) (*entity.TicketTracking, error) {
	var tracking entity.TicketTracking
	err := s.db.WithContext(ctx).
		Where("ticket_id = ? AND finished_at IS NULL", ticketID).
		Order("id DESC").
		First(&tracking).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &tracking, nil
}

// SaveTracking persists tracking field changes, including nil stamps.
func (s *Store) SaveTracking(ctx context.Context, tracking *entity.TicketTracking) error {
	return s.db.WithContext(ctx).Select("*").Save(tracking).Error
}

// CreateRating records one completed satisfaction survey.
func (s *Store) CreateRating(ctx context.Context, rating *entity.UserRating) error {
	return s.db.WithContext(ctx).Create(rating).Error
}
