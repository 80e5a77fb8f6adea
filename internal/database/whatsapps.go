package database

import (
	"context"

	"zapdesk/entity"
)

// WhatsappByID loads one connection with its queues, options and
// schedules.
func (s *Store) WhatsappByID(ctx context.Context, id uint) (*entity.Whatsapp, error) {
	var wpp entity.Whatsapp
	err := s.db.WithContext(ctx).
		Preload("Queues").
		Preload("Queues.Options").
		Preload("Queues.Schedules").
		First(&wpp, id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &wpp, nil
}

// Whatsapps lists every configured connection.
func (s *Store) Whatsapps(ctx context.Context) ([]entity.Whatsapp, error) {
	var wpps []entity.Whatsapp
	err := s.db.WithContext(ctx).Find(&wpps).Error
	if err != nil {
		return nil, err
	}
	return wpps, nil
}
