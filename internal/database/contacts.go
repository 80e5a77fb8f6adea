package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"zapdesk/entity"
)

// UpsertContact creates the contact for (number, company) or refreshes
// its mutable fields, and returns the stored row.
func (s *Store) UpsertContact(ctx context.Context, contact *entity.Contact) (*entity.Contact, error) {
	var existing entity.Contact
	err := s.db.WithContext(ctx).
		Where("number = ? AND company_id = ?", contact.Number, contact.CompanyID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(contact).Error; err != nil {
			return nil, err
		}
		return contact, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if contact.Name != "" && contact.Name != existing.Name {
		updates["name"] = contact.Name
	}
	if contact.ProfilePicUrl != "" && contact.ProfilePicUrl != existing.ProfilePicUrl {
		updates["profile_pic_url"] = contact.ProfilePicUrl
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &existing, nil
}
