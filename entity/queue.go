package entity

import "time"

// Queue is a department: its greeting, its chatbot option tree and its
// business-hours schedule.
type Queue struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	Name              string          `json:"name"`
	GreetingMessage   string          `json:"greetingMessage"`
	OutOfHoursMessage string          `json:"outOfHoursMessage"`
	CompanyID         uint            `json:"companyId" gorm:"index"`
	Options           []QueueOption   `json:"options,omitempty" gorm:"foreignKey:QueueID"`
	Schedules         []QueueSchedule `json:"schedules,omitempty" gorm:"foreignKey:QueueID"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// QueueOption is one node of a queue's chatbot menu tree. ParentID forms
// the tree; Option is the key the customer types or taps.
type QueueOption struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	QueueID   uint      `json:"queueId" gorm:"index"`
	ParentID  *uint     `json:"parentId" gorm:"index"`
	Option    string    `json:"option"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QueueSchedule is the business-hours window of a queue for one weekday.
// Empty StartTime/EndTime means the day carries no restriction.
type QueueSchedule struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	QueueID   uint   `json:"queueId" gorm:"index"`
	Weekday   string `json:"weekdayEn"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}
