package models

import (
	"gorm.io/gorm"
)

// Notification is the durable in-app notification row. It is create-only from
// the delivery core; the read flag is flipped by the user-facing API.
type Notification struct {
	gorm.Model
	UserID   uint   `gorm:"index;not null" json:"user_id"`
	Title    string `gorm:"not null" json:"title"`
	Message  string `json:"message"`
	Type     string `gorm:"index" json:"type"`
	Priority string `json:"priority"`
	Link     string `json:"link"`
	Data     string `json:"data"` // JSON blob: action label, image, metadata
	Read     bool   `gorm:"default:false" json:"read"`
}

// NotificationPreferences stores a user's delivery preferences as a JSON
// payload. Absence of a row means "use defaults".
type NotificationPreferences struct {
	gorm.Model
	UserID  uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Payload string `gorm:"type:text" json:"payload"`
}
