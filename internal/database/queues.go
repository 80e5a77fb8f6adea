package database

import (
	"context"

	"zapdesk/entity"
)

// QueueByID loads one queue with its options and schedules.
func (s *Store) QueueByID(ctx context.Context, id, companyID uint) (*entity.Queue, error) {
	var queue entity.Queue
	err := s.db.WithContext(ctx).
		Preload("Options").
		Preload("Schedules").
		Where("company_id = ?", companyID).
		First(&queue, id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &queue, nil
}

// QueueOptions lists the chatbot tree nodes under a parent. A nil parent
// means the root level.
func (s *Store) QueueOptions(ctx context.Context, queueID uint, parentID *uint) ([]entity.QueueOption, error) {
	var options []entity.QueueOption
	q := s.db.WithContext(ctx).Where("queue_id = ?", queueID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	err := q.Order("option ASC").Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

// QueueOptionByID loads one tree node.
func (s *Store) QueueOptionByID(ctx context.Context, id uint) (*entity.QueueOption, error) {
	var option entity.QueueOption
	err := s.db.WithContext(ctx).First(&option, id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &option, nil
}
