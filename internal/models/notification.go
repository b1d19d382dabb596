package models

import "time"

// Notification is an outbound notification recorded in the outbox.
type Notification struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Recipient string `gorm:"size:128;not null;index"`
	Subject   string `gorm:"size:256"`
	Body      string `gorm:"type:text"`
	CreatedAt time.Time
}
