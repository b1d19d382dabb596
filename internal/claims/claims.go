// Package claims implements the claim lifecycle: submission, agent
// assignment and review, admin decisions and settlement against the
// policy's cumulative claim limit.
//
// Every mutation appends a progress note inside the same transaction, so
// the note log is a complete audit trail of committed changes.
package claims

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/insurai/claimdesk/internal/notify"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SuggestionPrefix tags progress notes that carry an agent suggestion.
const SuggestionPrefix = "Agent suggestion:"

// ValidTransitions maps each status to the statuses an admin status update
// may move it to. Settlement is handled separately and is allowed from
// any status.
//
// PENDING may be decided directly, skipping agent review. Two guards
// existed for decisions; this is the permissive one and has not been
// confirmed with the business owner.
var ValidTransitions = map[models.ClaimStatus][]models.ClaimStatus{
	models.ClaimPending:       {models.ClaimUnderReview, models.ClaimApproved, models.ClaimRejected, models.ClaimSettled},
	models.ClaimUnderReview:   {models.ClaimPending, models.ClaimAgentReviewed},
	models.ClaimAgentReviewed: {models.ClaimUnderReview, models.ClaimApproved, models.ClaimRejected, models.ClaimSettled},
}

func isValidTransition(from, to models.ClaimStatus) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// Engine applies claim transitions.
type Engine struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// SubmitOpts holds parameters for a new claim.
type SubmitOpts struct {
	EmployeeID    uint
	PolicyID      uint
	Description   string
	Amount        decimal.Decimal
	DocumentPaths []string
}

// Submit creates a PENDING claim with its documents.
func (e *Engine) Submit(ctx context.Context, opts SubmitOpts) (*models.Claim, error) {
	db := e.DB.WithContext(ctx)
	emp, err := directory.GetEmployee(db, opts.EmployeeID)
	if err != nil {
		return nil, err
	}
	policy, err := directory.GetPolicy(db, opts.PolicyID)
	if err != nil {
		return nil, err
	}
	if !opts.Amount.IsPositive() {
		return nil, apperr.Invalid("claim amount must be greater than 0, got %s", opts.Amount)
	}

	claim := models.Claim{
		EmployeeID:  emp.ID,
		PolicyID:    policy.ID,
		Description: strings.TrimSpace(opts.Description),
		Amount:      opts.Amount,
		Status:      models.ClaimPending,
		ClaimDate:   e.now(),
	}
	for _, p := range opts.DocumentPaths {
		if p = strings.TrimSpace(p); p != "" {
			claim.Documents = append(claim.Documents, models.ClaimDocument{Path: p})
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&claim).Error; err != nil {
			return fmt.Errorf("claims: create claim: %w", err)
		}
		for i := range claim.Documents {
			claim.Documents[i].ClaimID = claim.ID
		}
		if len(claim.Documents) > 0 {
			if err := tx.Create(&claim.Documents).Error; err != nil {
				return fmt.Errorf("claims: attach documents: %w", err)
			}
		}
		return addNote(tx, claim.ID, nil, "Claim submitted by employee.")
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// AssignAgent hands a PENDING or UNDER_REVIEW claim to an agent and moves
// it to UNDER_REVIEW.
func (e *Engine) AssignAgent(ctx context.Context, claimID, agentID uint) (*models.Claim, error) {
	db := e.DB.WithContext(ctx)
	agent, err := directory.GetUser(db, agentID)
	if err != nil {
		return nil, err
	}

	var claim models.Claim
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if agent.Role != models.RoleAgent {
			return apperr.Invalid("user %d is not an agent", agentID)
		}
		if claim.Status != models.ClaimPending && claim.Status != models.ClaimUnderReview {
			return apperr.Invalid("claim %d is %s; only PENDING or UNDER_REVIEW claims can be assigned", claimID, claim.Status)
		}
		claim.AssignedAgentID = &agent.ID
		claim.Status = models.ClaimUnderReview
		if err := tx.Model(&claim).Updates(map[string]any{
			"assigned_agent_id": agent.ID,
			"status":            claim.Status,
		}).Error; err != nil {
			return fmt.Errorf("claims: assign claim %d: %w", claimID, err)
		}
		return addNote(tx, claim.ID, nil, "Assigned to agent: "+agent.Username)
	})
	if err != nil {
		return nil, err
	}

	notify.Deliver(ctx, e.Notifier, notify.Message{
		To:      agent.Email,
		Subject: fmt.Sprintf("Claim #%d assigned to you", claim.ID),
		Body:    fmt.Sprintf("Claim #%d for %s is waiting for your review.", claim.ID, claim.Amount.StringFixed(2)),
	})
	return &claim, nil
}

// SubmitAgentSuggestion records the assigned agent's recommendation and
// moves the claim to AGENT_REVIEWED.
func (e *Engine) SubmitAgentSuggestion(ctx context.Context, claimID, agentID uint, suggestion, notes string) (*models.Claim, error) {
	db := e.DB.WithContext(ctx)
	if _, err := directory.GetUser(db, agentID); err != nil {
		return nil, err
	}
	suggestion = strings.TrimSpace(suggestion)
	if suggestion == "" {
		return nil, apperr.Invalid("suggestion is required")
	}

	var claim models.Claim
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if claim.AssignedAgentID == nil || *claim.AssignedAgentID != agentID {
			return apperr.Forbidden("claim %d is not assigned to agent %d", claimID, agentID)
		}
		if claim.Status != models.ClaimUnderReview {
			return apperr.Invalid("claim %d is %s; suggestions are accepted only UNDER_REVIEW", claimID, claim.Status)
		}

		text := SuggestionPrefix + " " + suggestion
		if notes = strings.TrimSpace(notes); notes != "" {
			text += " | Notes: " + notes
		}
		if err := addNote(tx, claim.ID, &agentID, text); err != nil {
			return err
		}
		claim.Status = models.ClaimAgentReviewed
		if err := tx.Model(&claim).Update("status", claim.Status).Error; err != nil {
			return fmt.Errorf("claims: review claim %d: %w", claimID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// UpdateStatus applies an admin status change. Decisions stamp the
// decision date and the deciding admin. Approving a claim that already
// carries a settlement amount is checked against the policy's claim limit.
func (e *Engine) UpdateStatus(ctx context.Context, claimID uint, status string, adminID uint) (*models.Claim, error) {
	db := e.DB.WithContext(ctx)
	admin, err := directory.RequireRole(db, adminID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	target, ok := models.ParseClaimStatus(status)
	if !ok {
		return nil, apperr.Invalid("unknown claim status %q", status)
	}

	var claim models.Claim
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if !isValidTransition(claim.Status, target) {
			if target.IsDecision() {
				return apperr.Invalid("claim %d is %s; it must be AGENT_REVIEWED or PENDING before a decision", claimID, claim.Status)
			}
			return apperr.Invalid("invalid status transition from %s to %s; valid transitions: %v",
				claim.Status, target, ValidTransitions[claim.Status])
		}
		if (target == models.ClaimApproved || target == models.ClaimSettled) && claim.SettlementAmount.IsPositive() {
			if err := checkLimit(tx, &claim, claim.SettlementAmount); err != nil {
				return err
			}
		}

		updates := map[string]any{"status": target}
		claim.Status = target
		if target.IsDecision() {
			now := e.now()
			claim.DecisionDate = &now
			claim.ProcessedByID = &admin.ID
			updates["decision_date"] = now
			updates["processed_by_id"] = admin.ID
		}
		if err := tx.Model(&claim).Updates(updates).Error; err != nil {
			return fmt.Errorf("claims: update claim %d: %w", claimID, err)
		}
		return addNote(tx, claim.ID, &admin.ID, "Status changed to: "+string(target))
	})
	if err != nil {
		return nil, err
	}

	if target.IsDecision() {
		e.notifyEmployee(ctx, &claim, fmt.Sprintf("Claim #%d %s", claim.ID, strings.ToLower(string(target))),
			fmt.Sprintf("Your claim #%d is now %s.", claim.ID, target))
	}
	return &claim, nil
}

// Settle pays out a claim. The cumulative settlement of all APPROVED and
// SETTLED claims on the policy, with this claim's new amount in place of
// its old one, must stay within the policy's claim limit. The limit check
// and the write run under the policy's row lock.
func (e *Engine) Settle(ctx context.Context, claimID uint, amount decimal.Decimal, adminID uint, notes string) (*models.Claim, error) {
	db := e.DB.WithContext(ctx)
	admin, err := directory.RequireRole(db, adminID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperr.Invalid("settlement amount must be greater than 0, got %s", amount)
	}
	notes = strings.TrimSpace(notes)

	var claim models.Claim
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if err := checkLimit(tx, &claim, amount); err != nil {
			return err
		}

		now := e.now()
		claim.Status = models.ClaimSettled
		claim.SettlementAmount = amount
		claim.DecisionDate = &now
		claim.ProcessedByID = &admin.ID
		claim.ResolutionNotes = notes
		if err := tx.Model(&claim).Updates(map[string]any{
			"status":            claim.Status,
			"settlement_amount": amount,
			"decision_date":     now,
			"processed_by_id":   admin.ID,
			"resolution_notes":  notes,
		}).Error; err != nil {
			return fmt.Errorf("claims: settle claim %d: %w", claimID, err)
		}
		return addNote(tx, claim.ID, &admin.ID,
			fmt.Sprintf("Claim settled. Amount: %s. Notes: %s", amount.StringFixed(2), notes))
	})
	if err != nil {
		return nil, err
	}

	e.notifyEmployee(ctx, &claim, fmt.Sprintf("Claim #%d settled", claim.ID),
		fmt.Sprintf("Your claim #%d was settled for %s.", claim.ID, amount.StringFixed(2)))
	return &claim, nil
}

// checkLimit locks the claim's policy and rejects amount if it would push
// the policy's cumulative settlement past its claim limit.
func checkLimit(tx *gorm.DB, claim *models.Claim, amount decimal.Decimal) error {
	policy, err := directory.LockPolicy(tx, claim.PolicyID)
	if err != nil {
		return err
	}
	settled, err := settledTotal(tx, claim.PolicyID, claim.ID)
	if err != nil {
		return err
	}
	if total := settled.Add(amount); total.GreaterThan(policy.ClaimLimit) {
		return apperr.Conflict("settlement exceeds policy claim limit: %s already settled + %s > %s",
			settled.StringFixed(2), amount.StringFixed(2), policy.ClaimLimit.StringFixed(2))
	}
	return nil
}

// settledTotal sums settlement amounts over the policy's APPROVED and
// SETTLED claims, leaving out excludeID.
func settledTotal(tx *gorm.DB, policyID, excludeID uint) (decimal.Decimal, error) {
	var rows []models.Claim
	if err := tx.Select("id", "settlement_amount").
		Where("policy_id = ? AND id <> ? AND status IN ?", policyID, excludeID,
			[]models.ClaimStatus{models.ClaimApproved, models.ClaimSettled}).
		Find(&rows).Error; err != nil {
		return decimal.Zero, fmt.Errorf("claims: sum settlements of policy %d: %w", policyID, err)
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.SettlementAmount)
	}
	return total, nil
}

func lockClaim(tx *gorm.DB, id uint, claim *models.Claim) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(claim, id).Error; err != nil {
		return apperr.FromLookup(err, "claim", id)
	}
	return nil
}

func addNote(tx *gorm.DB, claimID uint, authorID *uint, text string) error {
	note := models.ClaimProgressNote{ClaimID: claimID, AuthorID: authorID, Note: text}
	if err := tx.Create(&note).Error; err != nil {
		return fmt.Errorf("claims: add note to claim %d: %w", claimID, err)
	}
	return nil
}

func (e *Engine) notifyEmployee(ctx context.Context, claim *models.Claim, subject, body string) {
	emp, err := directory.GetEmployee(e.DB.WithContext(ctx), claim.EmployeeID)
	if err != nil {
		return
	}
	notify.Deliver(ctx, e.Notifier, notify.Message{To: emp.Email(), Subject: subject, Body: body})
}
