package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"zapdesk/entity"
)

// CreateMessage inserts a message unless a row with the same
// (wid, company) already exists. Returns the stored row and whether it
// was freshly created; redelivered events come back with created=false.
func (s *Store) CreateMessage(ctx context.Context, msg *entity.Message) (*entity.Message, bool, error) {
	var existing entity.Message
	err := s.db.WithContext(ctx).
		Where("wid = ? AND company_id = ?", msg.WID, msg.CompanyID).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

// MessageByWID loads one message by its provider id.
func (s *Store) MessageByWID(ctx context.Context, wid string, companyID uint) (*entity.Message, error) {
	var msg entity.Message
	err := s.db.WithContext(ctx).
		Where("wid = ? AND company_id = ?", wid, companyID).
		First(&msg).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &msg, nil
}

// SaveMessage persists message field changes.
func (s *Store) SaveMessage(ctx context.Context, msg *entity.Message) error {
	return s.db.WithContext(ctx).Omit("Ticket", "Contact").Save(msg).Error
}

// UnreadMessageWIDs lists provider ids of unread inbound messages on a
// ticket, oldest first.
func (s *Store) UnreadMessageWIDs(ctx context.Context, ticketID uint) ([]string, error) {
	var wids []string
	err := s.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("ticket_id = ? AND from_me = ? AND read = ?", ticketID, false, false).
		Order("id ASC").
		Pluck("wid", &wids).Error
	if err != nil {
		return nil, err
	}
	return wids, nil
}

// LastBusinessMessage returns the newest business-sent message on a
// ticket, if any. Used to suppress duplicate automatic sends.
func (s *Store) LastBusinessMessage(ctx context.Context, ticketID uint) (*entity.Message, error) {
	var msg entity.Message
	err := s.db.WithContext(ctx).
		Where("ticket_id = ? AND from_me = ?", ticketID, true).
		Order("id DESC").
		First(&msg).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &msg, nil
}

// MarkMessagesRead flips the read flag on a ticket's inbound messages.
func (s *Store) MarkMessagesRead(ctx context.Context, ticketID uint) error {
	return s.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("ticket_id = ? AND from_me = ? AND read = ?", ticketID, false, false).
		Update("read", true).Error
}
