package claims

import (
	"fmt"
	"strings"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Get returns a claim with its documents, notes and parties loaded.
func Get(db *gorm.DB, id uint) (*models.Claim, error) {
	var claim models.Claim
	err := db.Preload("Employee.User").
		Preload("Policy").
		Preload("AssignedAgent").
		Preload("ProcessedBy").
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Notes.Author").
		First(&claim, id).Error
	if err != nil {
		return nil, apperr.FromLookup(err, "claim", id)
	}
	return &claim, nil
}

// ListOpts holds optional filters for List.
type ListOpts struct {
	EmployeeID uint
	AgentID    uint
	PolicyID   uint
	Status     string
}

// List returns claims matching the filters, newest first.
func List(db *gorm.DB, opts ListOpts) ([]models.Claim, error) {
	q := db.Model(&models.Claim{})
	if opts.EmployeeID != 0 {
		q = q.Where("employee_id = ?", opts.EmployeeID)
	}
	if opts.AgentID != 0 {
		agent, err := directory.GetUser(db, opts.AgentID)
		if err != nil {
			return nil, err
		}
		if agent.Role != models.RoleAgent {
			return nil, apperr.Invalid("user %d is not an agent", opts.AgentID)
		}
		q = q.Where("assigned_agent_id = ?", opts.AgentID)
	}
	if opts.PolicyID != 0 {
		q = q.Where("policy_id = ?", opts.PolicyID)
	}
	if opts.Status != "" {
		st, ok := models.ParseClaimStatus(opts.Status)
		if !ok {
			return nil, apperr.Invalid("unknown claim status %q", opts.Status)
		}
		q = q.Where("status = ?", st)
	}

	var claims []models.Claim
	if err := q.Preload("Documents").Order("claim_date DESC, id DESC").Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("claims: list: %w", err)
	}
	return claims, nil
}

// Notes returns the claim's progress notes oldest first, authors loaded.
func Notes(db *gorm.DB, claimID uint) ([]models.ClaimProgressNote, error) {
	if err := exists(db, claimID); err != nil {
		return nil, err
	}
	var notes []models.ClaimProgressNote
	if err := db.Preload("Author").Where("claim_id = ?", claimID).
		Order("id ASC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("claims: notes of claim %d: %w", claimID, err)
	}
	return notes, nil
}

// Suggestions returns the texts of the claim's agent-suggestion notes.
func Suggestions(db *gorm.DB, claimID uint) ([]string, error) {
	notes, err := Notes(db, claimID)
	if err != nil {
		return nil, err
	}
	return FilterSuggestions(notes), nil
}

// FilterSuggestions picks the agent-suggestion notes out of a note log.
func FilterSuggestions(notes []models.ClaimProgressNote) []string {
	var out []string
	for _, n := range notes {
		if strings.HasPrefix(n.Note, SuggestionPrefix) {
			out = append(out, n.Note)
		}
	}
	return out
}

// Stats summarizes one employee's claims.
type Stats struct {
	TotalClaims        int             `json:"total_claims"`
	TotalClaimedAmount decimal.Decimal `json:"total_claimed_amount"`
	TotalSettledAmount decimal.Decimal `json:"total_settled_amount"`
	ApprovedCount      int             `json:"approved_count"`
	RejectedCount      int             `json:"rejected_count"`
}

// EmployeeStats computes claim totals for an employee. The settled total
// counts SETTLED claims only.
func EmployeeStats(db *gorm.DB, employeeID uint) (*Stats, error) {
	if _, err := directory.GetEmployee(db, employeeID); err != nil {
		return nil, err
	}
	var claims []models.Claim
	if err := db.Select("id", "amount", "status", "settlement_amount").
		Where("employee_id = ?", employeeID).Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("claims: stats for employee %d: %w", employeeID, err)
	}

	s := &Stats{TotalClaims: len(claims), TotalClaimedAmount: decimal.Zero, TotalSettledAmount: decimal.Zero}
	for _, c := range claims {
		s.TotalClaimedAmount = s.TotalClaimedAmount.Add(c.Amount)
		switch c.Status {
		case models.ClaimSettled:
			s.TotalSettledAmount = s.TotalSettledAmount.Add(c.SettlementAmount)
		case models.ClaimApproved:
			s.ApprovedCount++
		case models.ClaimRejected:
			s.RejectedCount++
		}
	}
	return s, nil
}

func exists(db *gorm.DB, claimID uint) error {
	var count int64
	if err := db.Model(&models.Claim{}).Where("id = ?", claimID).Count(&count).Error; err != nil {
		return fmt.Errorf("claims: check claim %d: %w", claimID, err)
	}
	if count == 0 {
		return apperr.NotFound("claim not found: %d", claimID)
	}
	return nil
}
