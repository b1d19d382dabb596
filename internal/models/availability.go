package models

import "time"

// AgentAvailability is one recurring weekly window published by an agent.
// StartTime and EndTime are "HH:MM" time-of-day values; DayOfWeek runs
// 1 (Monday) through 7 (Sunday).
type AgentAvailability struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AgentID   uint   `gorm:"not null;index:idx_availability_agent_day"`
	DayOfWeek int    `gorm:"not null;index:idx_availability_agent_day"`
	StartTime string `gorm:"size:5"`
	EndTime   string `gorm:"size:5"`
	Off       bool   `gorm:"default:false"`
	// Booked is carried over from the single-booking schema and is never
	// consulted when projecting or booking.
	Booked    bool `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Agent *User `gorm:"foreignKey:AgentID"`
}
