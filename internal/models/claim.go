package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	ClaimPending       ClaimStatus = "PENDING"
	ClaimUnderReview   ClaimStatus = "UNDER_REVIEW"
	ClaimAgentReviewed ClaimStatus = "AGENT_REVIEWED"
	ClaimApproved      ClaimStatus = "APPROVED"
	ClaimRejected      ClaimStatus = "REJECTED"
	ClaimSettled       ClaimStatus = "SETTLED"
)

// ParseClaimStatus maps a status string onto ClaimStatus.
func ParseClaimStatus(s string) (ClaimStatus, bool) {
	switch st := ClaimStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ClaimPending, ClaimUnderReview, ClaimAgentReviewed, ClaimApproved, ClaimRejected, ClaimSettled:
		return st, true
	}
	return "", false
}

// IsDecision reports whether the status is one an admin decides on.
func (s ClaimStatus) IsDecision() bool {
	return s == ClaimApproved || s == ClaimRejected || s == ClaimSettled
}

// Claim is an employee's request for payment against a policy.
type Claim struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"`
	EmployeeID       uint            `gorm:"not null;index"`
	PolicyID         uint            `gorm:"not null;index"`
	Description      string          `gorm:"type:text"`
	Amount           decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Status           ClaimStatus     `gorm:"size:16;not null;default:PENDING;index"`
	ClaimDate        time.Time
	DecisionDate     *time.Time
	SettlementAmount decimal.Decimal `gorm:"type:decimal(14,2);default:0"`
	ResolutionNotes  string          `gorm:"type:text"`
	AssignedAgentID  *uint           `gorm:"index"`
	ProcessedByID    *uint
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Employee      *Employee           `gorm:"foreignKey:EmployeeID"`
	Policy        *Policy             `gorm:"foreignKey:PolicyID"`
	AssignedAgent *User               `gorm:"foreignKey:AssignedAgentID"`
	ProcessedBy   *User               `gorm:"foreignKey:ProcessedByID"`
	Documents     []ClaimDocument     `gorm:"foreignKey:ClaimID"`
	Notes         []ClaimProgressNote `gorm:"foreignKey:ClaimID"`
}

// DocumentPaths returns the stored paths of the claim's documents in
// attachment order.
func (c *Claim) DocumentPaths() []string {
	paths := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		paths = append(paths, d.Path)
	}
	return paths
}

// ClaimDocument is a file attached to a claim, addressed by its blob path.
type ClaimDocument struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ClaimID   uint   `gorm:"not null;index"`
	Path      string `gorm:"size:512;not null"`
	CreatedAt time.Time
}

// ClaimProgressNote is an append-only audit entry on a claim. A nil
// AuthorID marks a system-generated note.
type ClaimProgressNote struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ClaimID   uint   `gorm:"not null;index"`
	AuthorID  *uint
	Note      string `gorm:"type:text"`
	CreatedAt time.Time

	Author *User `gorm:"foreignKey:AuthorID"`
}

// AuthorName returns the author's username or "System".
func (n *ClaimProgressNote) AuthorName() string {
	if n.Author == nil {
		return "System"
	}
	return n.Author.Username
}
