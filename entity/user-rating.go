package entity

import "time"

// Rating bounds for the satisfaction survey.
const (
	RateMin = 1
	RateMax = 3
)

// UserRating is one completed satisfaction survey for a ticket.
type UserRating struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TicketID  uint      `json:"ticketId" gorm:"index"`
	CompanyID uint      `json:"companyId"`
	UserID    uint      `json:"userId"`
	Rate      int       `json:"rate"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClampRate forces a raw numeric reply into the accepted survey range.
func ClampRate(rate int) int {
	if rate < RateMin {
		return RateMin
	}
	if rate > RateMax {
		return RateMax
	}
	return rate
}
