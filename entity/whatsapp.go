package entity

import "time"

// Whatsapp is one company connection to the messaging provider, with the
// per-connection conversation policy: greeting and closing texts, the
// idle auto-close thresholds and whether closed tickets pass through the
// NPS phase first.
type Whatsapp struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Name              string    `json:"name"`
	CompanyID         uint      `json:"companyId" gorm:"index"`
	PhoneNumberID     string    `json:"phoneNumberId"`
	GreetingMessage   string    `json:"greetingMessage"`
	FarewellMessage   string    `json:"farewellMessage"`
	ComplationMessage string    `json:"complationMessage"`
	OutOfHoursMessage string    `json:"outOfHoursMessage"`
	ExpiresTicket     int       `json:"expiresTicket"`    // hours; 0 disables
	ExpiresTicketNPS  int       `json:"expiresTicketNPS"` // minutes; 0 disables
	UseNPS            bool      `json:"useNPS"`
	Queues            []Queue   `json:"queues,omitempty" gorm:"many2many:whatsapp_queues"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
