package entity

import "time"

// Contact is one customer (or group) identity on a messaging channel,
// scoped to a company. Created on first inbound message and refreshed
// on every following one; never deleted by the core.
type Contact struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name"`
	Number        string    `json:"number" gorm:"index:idx_contacts_number_company,unique"`
	ProfilePicUrl string    `json:"profilePicUrl"`
	IsGroup       bool      `json:"isGroup"`
	CompanyID     uint      `json:"companyId" gorm:"index:idx_contacts_number_company,unique"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
