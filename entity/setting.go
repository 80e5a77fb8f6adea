package entity

import "time"

// Setting keys consulted by the core.
const (
	SettingChatBotType     = "chatBotType"     // list | button | text
	SettingCheckMsgIsGroup = "CheckMsgIsGroup" // enabled blocks group messages
	SettingUserRating      = "userRating"      // enabled turns on the survey
	SettingScheduleType    = "scheduleType"    // company | queue
)

const SettingEnabled = "enabled"

// Chatbot menu presentation styles.
const (
	ChatBotTypeList   = "list"
	ChatBotTypeButton = "button"
	ChatBotTypeText   = "text"
)

// Setting is one per-company key/value configuration entry.
type Setting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"index:idx_settings_key_company,unique"`
	Value     string    `json:"value"`
	CompanyID uint      `json:"companyId" gorm:"index:idx_settings_key_company,unique"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
