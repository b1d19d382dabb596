package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy is an insurance policy from the policy catalog.
type Policy struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"`
	Code           string          `gorm:"size:32;not null;uniqueIndex"`
	Name           string          `gorm:"size:128;not null"`
	Description    string          `gorm:"type:text"`
	Type           string          `gorm:"size:16"`
	Status         string          `gorm:"size:16;default:ACTIVE"`
	Premium        decimal.Decimal `gorm:"type:decimal(14,2)"`
	CoverageAmount decimal.Decimal `gorm:"type:decimal(14,2)"`
	ClaimLimit     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AgentPolicy authorizes an agent to handle appointments for a policy.
type AgentPolicy struct {
	AgentID  uint `gorm:"primaryKey"`
	PolicyID uint `gorm:"primaryKey"`

	Agent  *User   `gorm:"foreignKey:AgentID"`
	Policy *Policy `gorm:"foreignKey:PolicyID"`
}
