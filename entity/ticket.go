package entity

import (
	"time"

	"github.com/google/uuid"
)

// Ticket statuses. A ticket is "active" in every status except closed;
// closed is terminal for the conversation cycle.
const (
	StatusPending = "pending"
	StatusOpen    = "open"
	StatusNPS     = "nps"
	StatusClosed  = "closed"
)

// Ticket is one conversation thread between a contact and the business.
type Ticket struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UUID           string    `json:"uuid" gorm:"index"`
	Status         string    `json:"status" gorm:"index;default:pending"`
	UnreadMessages int       `json:"unreadMessages"`
	LastMessage    string    `json:"lastMessage"`
	IsGroup        bool      `json:"isGroup"`
	Chatbot        bool      `json:"chatbot"`
	ContactID      uint      `json:"contactId" gorm:"index"`
	Contact        *Contact  `json:"contact,omitempty"`
	UserID         *uint     `json:"userId"`
	QueueID        *uint     `json:"queueId"`
	Queue          *Queue    `json:"queue,omitempty"`
	QueueOptionID  *uint     `json:"queueOptionId"`
	WhatsappID     uint      `json:"whatsappId" gorm:"index"`
	CompanyID      uint      `json:"companyId" gorm:"index"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewTicket creates a pending ticket for a contact. The chatbot flag and
// queue are only set later, by the queue router.
func NewTicket(contact *Contact, whatsappID, companyID uint, isGroup bool, unread int) *Ticket {
	return &Ticket{
		UUID:           uuid.NewString(),
		Status:         StatusPending,
		UnreadMessages: unread,
		IsGroup:        isGroup,
		ContactID:      contact.ID,
		Contact:        contact,
		WhatsappID:     whatsappID,
		CompanyID:      companyID,
	}
}

// Active reports whether the ticket still belongs to a live conversation
// cycle (anything but closed).
func (t *Ticket) Active() bool {
	return t.Status != StatusClosed
}
