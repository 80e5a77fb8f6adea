package entity

import "time"

// Ack ordinals, as reported by the messaging protocol.
const (
	AckPending   = 0
	AckSent      = 1
	AckDelivered = 2
	AckRead      = 3
)

// Message is one immutable exchanged unit. (WID, CompanyID) is the
// de-duplication key: redelivered provider events must never create a
// second row. Only Ack, Read and IsDeleted may change after creation.
type Message struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	WID          string    `json:"wid" gorm:"column:wid;index:idx_messages_wid_company,unique"`
	TicketID     uint      `json:"ticketId" gorm:"index"`
	Ticket       *Ticket   `json:"ticket,omitempty"`
	ContactID    *uint     `json:"contactId"`
	Contact      *Contact  `json:"contact,omitempty"`
	Body         string    `json:"body"`
	FromMe       bool      `json:"fromMe"`
	Read         bool      `json:"read"`
	Ack          int       `json:"ack"`
	MediaType    string    `json:"mediaType"`
	MediaUrl     string    `json:"mediaUrl"`
	QuotedMsgWID string    `json:"quotedMsgId" gorm:"column:quoted_msg_wid"`
	RemoteJid    string    `json:"remoteJid"`
	Participant  string    `json:"participant"`
	DataJSON     string    `json:"-" gorm:"column:data_json"`
	QueueID      *uint     `json:"queueId"`
	IsDeleted    bool      `json:"isDeleted"`
	CompanyID    uint      `json:"companyId" gorm:"index:idx_messages_wid_company,unique"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
