package entity

import "time"

// TicketTracking is the SLA/rating bookkeeping for one ticket cycle.
// A row is created lazily on first use and finished (FinishedAt set) when
// the cycle ends; a re-opened ticket gets a fresh row.
type TicketTracking struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	TicketID   uint       `json:"ticketId" gorm:"index"`
	CompanyID  uint       `json:"companyId"`
	WhatsappID uint       `json:"whatsappId"`
	UserID     *uint      `json:"userId"`
	QueuedAt   *time.Time `json:"queuedAt"`
	StartedAt  *time.Time `json:"startedAt"`
	RatingAt   *time.Time `json:"ratingAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Rated      bool       `json:"rated"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// AwaitingRating reports whether this cycle has sent the satisfaction
// survey and is still waiting for the customer's numeric reply.
func (t *TicketTracking) AwaitingRating() bool {
	return t.RatingAt != nil && t.FinishedAt == nil && t.UserID != nil
}
