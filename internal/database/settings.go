package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"zapdesk/entity"
)

// SettingValue reads one per-company setting. A missing key returns the
// empty string, not an error; callers treat absence as "off".
func (s *Store) SettingValue(ctx context.Context, key string, companyID uint) (string, error) {
	var setting entity.Setting
	err := s.db.WithContext(ctx).
		Where("key = ? AND company_id = ?", key, companyID).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// SetSetting writes one per-company setting, creating the row if needed.
func (s *Store) SetSetting(ctx context.Context, key, value string, companyID uint) error {
	var setting entity.Setting
	err := s.db.WithContext(ctx).
		Where("key = ? AND company_id = ?", key, companyID).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(&entity.Setting{
			Key:       key,
			Value:     value,
			CompanyID: companyID,
		}).Error
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&setting).Update("value", value).Error
}
