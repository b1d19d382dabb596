package models

import (
	"strings"
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentMissed    AppointmentStatus = "MISSED"
)

// ParseAppointmentStatus maps a status string onto AppointmentStatus.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	switch st := AppointmentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled, AppointmentMissed:
		return st, true
	}
	return "", false
}

// Appointment is a booked meeting between an employee and an agent.
// Appointments are never deleted.
type Appointment struct {
	ID         uint              `gorm:"primaryKey;autoIncrement"`
	EmployeeID uint              `gorm:"not null;index"`
	AgentID    uint              `gorm:"not null;index:idx_appointment_agent_start"`
	PolicyID   *uint             `gorm:"index"`
	StartTime  time.Time         `gorm:"not null;index:idx_appointment_agent_start"`
	EndTime    time.Time         `gorm:"not null"`
	Status     AppointmentStatus `gorm:"size:16;not null;default:SCHEDULED;index"`
	Notes      string            `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Employee *Employee `gorm:"foreignKey:EmployeeID"`
	Agent    *User     `gorm:"foreignKey:AgentID"`
	Policy   *Policy   `gorm:"foreignKey:PolicyID"`
}
