package claims

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/dbtest"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/insurai/claimdesk/internal/notify"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type recorder struct {
	msgs []notify.Message
}

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

type fixture struct {
	db     *gorm.DB
	eng    *Engine
	rec    *recorder
	emp    *models.Employee
	agent  *models.User
	admin  *models.User
	policy *models.Policy
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{db: db, rec: &recorder{}}
	f.eng = &Engine{DB: db, Notifier: f.rec, Now: func() time.Time { return now }}
	f.emp = dbtest.Employee(t, db, "emp")
	f.agent = dbtest.User(t, db, "agent", models.RoleAgent)
	f.admin = dbtest.User(t, db, "admin", models.RoleAdmin)
	f.policy = dbtest.Policy(t, db, "HLTH-1", 1000)
	return f
}

func (f *fixture) submit(t *testing.T, amount int64) *models.Claim {
	t.Helper()
	c, err := f.eng.Submit(context.Background(), SubmitOpts{
		EmployeeID:  f.emp.ID,
		PolicyID:    f.policy.ID,
		Description: "hospital stay",
		Amount:      decimal.NewFromInt(amount),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return c
}

func (f *fixture) reviewed(t *testing.T, amount int64) *models.Claim {
	t.Helper()
	ctx := context.Background()
	c := f.submit(t, amount)
	if _, err := f.eng.AssignAgent(ctx, c.ID, f.agent.ID); err != nil {
		t.Fatalf("AssignAgent: %v", err)
	}
	c, err := f.eng.SubmitAgentSuggestion(ctx, c.ID, f.agent.ID, "approve", "")
	if err != nil {
		t.Fatalf("SubmitAgentSuggestion: %v", err)
	}
	return c
}

func statusOf(t *testing.T, db *gorm.DB, id uint) models.ClaimStatus {
	t.Helper()
	c, err := Get(db, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return c.Status
}

func noteTexts(t *testing.T, db *gorm.DB, id uint) []string {
	t.Helper()
	notes, err := Notes(db, id)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	var out []string
	for _, n := range notes {
		out = append(out, n.Note)
	}
	return out
}

func TestSubmit(t *testing.T) {
	f := setup(t)
	c, err := f.eng.Submit(context.Background(), SubmitOpts{
		EmployeeID:    f.emp.ID,
		PolicyID:      f.policy.ID,
		Description:   "  x-ray  ",
		Amount:        decimal.RequireFromString("250.50"),
		DocumentPaths: []string{"claims/1/a.pdf", " ", "claims/1/b.png"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if c.Status != models.ClaimPending {
		t.Errorf("status = %q, want PENDING", c.Status)
	}
	if !c.ClaimDate.Equal(now) {
		t.Errorf("claim date = %s, want %s", c.ClaimDate, now)
	}
	if c.Description != "x-ray" {
		t.Errorf("description = %q", c.Description)
	}

	got, err := Get(f.db, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("250.50")) {
		t.Errorf("amount = %s, want 250.50", got.Amount)
	}
	if paths := got.DocumentPaths(); !slices.Equal(paths, []string{"claims/1/a.pdf", "claims/1/b.png"}) {
		t.Errorf("documents = %v", paths)
	}
	if len(got.Notes) != 1 || got.Notes[0].Note != "Claim submitted by employee." || got.Notes[0].AuthorName() != "System" {
		t.Errorf("notes = %+v", got.Notes)
	}
	if got.Employee == nil || got.Employee.Email() != f.emp.Email() {
		t.Errorf("employee not loaded: %+v", got.Employee)
	}
}

func TestSubmit_Errors(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name string
		opts SubmitOpts
		kind error
	}{
		{"unknown employee", SubmitOpts{EmployeeID: 999, PolicyID: f.policy.ID, Amount: decimal.NewFromInt(1)}, apperr.ErrNotFound},
		{"unknown policy", SubmitOpts{EmployeeID: f.emp.ID, PolicyID: 999, Amount: decimal.NewFromInt(1)}, apperr.ErrNotFound},
		{"zero amount", SubmitOpts{EmployeeID: f.emp.ID, PolicyID: f.policy.ID, Amount: decimal.Zero}, apperr.ErrValidation},
		{"negative amount", SubmitOpts{EmployeeID: f.emp.ID, PolicyID: f.policy.ID, Amount: decimal.NewFromInt(-5)}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.eng.Submit(context.Background(), tt.opts); !errors.Is(err, tt.kind) {
				t.Errorf("err = %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestAssignAgent(t *testing.T) {
	f := setup(t)
	c := f.submit(t, 100)

	got, err := f.eng.AssignAgent(context.Background(), c.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("AssignAgent: %v", err)
	}
	if got.Status != models.ClaimUnderReview {
		t.Errorf("status = %q, want UNDER_REVIEW", got.Status)
	}
	if got.AssignedAgentID == nil || *got.AssignedAgentID != f.agent.ID {
		t.Errorf("assigned = %v, want %d", got.AssignedAgentID, f.agent.ID)
	}
	if notes := noteTexts(t, f.db, c.ID); notes[len(notes)-1] != "Assigned to agent: agent" {
		t.Errorf("last note = %q", notes[len(notes)-1])
	}
	if len(f.rec.msgs) != 1 || f.rec.msgs[0].To != f.agent.Email {
		t.Errorf("notifications = %+v", f.rec.msgs)
	}
}

func TestAssignAgent_Errors(t *testing.T) {
	f := setup(t)
	c := f.submit(t, 100)
	ctx := context.Background()

	if _, err := f.eng.AssignAgent(ctx, 999, f.agent.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown claim: err = %v", err)
	}
	if _, err := f.eng.AssignAgent(ctx, c.ID, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown agent: err = %v", err)
	}
	if _, err := f.eng.AssignAgent(ctx, c.ID, f.admin.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("wrong role: err = %v", err)
	}
	if got := statusOf(t, f.db, c.ID); got != models.ClaimPending {
		t.Errorf("status = %q after failures, want PENDING", got)
	}

	reviewed := f.reviewed(t, 100)
	if _, err := f.eng.AssignAgent(ctx, reviewed.ID, f.agent.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("assign reviewed claim: err = %v", err)
	}
}

func TestSubmitAgentSuggestion(t *testing.T) {
	f := setup(t)
	c := f.submit(t, 100)
	ctx := context.Background()
	if _, err := f.eng.AssignAgent(ctx, c.ID, f.agent.ID); err != nil {
		t.Fatalf("AssignAgent: %v", err)
	}

	got, err := f.eng.SubmitAgentSuggestion(ctx, c.ID, f.agent.ID, "approve in full", "receipts verified")
	if err != nil {
		t.Fatalf("SubmitAgentSuggestion: %v", err)
	}
	if got.Status != models.ClaimAgentReviewed {
		t.Errorf("status = %q, want AGENT_REVIEWED", got.Status)
	}

	sugg, err := Suggestions(f.db, c.ID)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	want := []string{"Agent suggestion: approve in full | Notes: receipts verified"}
	if !slices.Equal(sugg, want) {
		t.Errorf("suggestions = %q, want %q", sugg, want)
	}

	notes, _ := Notes(f.db, c.ID)
	last := notes[len(notes)-1]
	if last.AuthorName() != "agent" {
		t.Errorf("author = %q, want agent", last.AuthorName())
	}

	// A second suggestion fails: the claim is no longer UNDER_REVIEW.
	if _, err := f.eng.SubmitAgentSuggestion(ctx, c.ID, f.agent.ID, "again", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestSubmitAgentSuggestion_WrongAgent(t *testing.T) {
	f := setup(t)
	other := dbtest.User(t, f.db, "other", models.RoleAgent)
	c := f.submit(t, 100)
	ctx := context.Background()
	if _, err := f.eng.AssignAgent(ctx, c.ID, f.agent.ID); err != nil {
		t.Fatalf("AssignAgent: %v", err)
	}
	before := len(noteTexts(t, f.db, c.ID))

	_, err := f.eng.SubmitAgentSuggestion(ctx, c.ID, other.ID, "reject", "")
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if got := statusOf(t, f.db, c.ID); got != models.ClaimUnderReview {
		t.Errorf("status = %q, want UNDER_REVIEW unchanged", got)
	}
	if after := len(noteTexts(t, f.db, c.ID)); after != before {
		t.Errorf("notes grew from %d to %d on a rejected suggestion", before, after)
	}

	unassigned := f.submit(t, 100)
	if _, err := f.eng.SubmitAgentSuggestion(ctx, unassigned.ID, f.agent.ID, "x", ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("unassigned claim: err = %v, want forbidden", err)
	}
	if _, err := f.eng.SubmitAgentSuggestion(ctx, c.ID, f.agent.ID, "  ", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty suggestion: err = %v, want validation", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := setup(t)
	c := f.reviewed(t, 100)

	got, err := f.eng.UpdateStatus(context.Background(), c.ID, "approved", f.admin.ID)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != models.ClaimApproved {
		t.Errorf("status = %q, want APPROVED", got.Status)
	}

	stored, _ := Get(f.db, c.ID)
	if stored.DecisionDate == nil || !stored.DecisionDate.Equal(now) {
		t.Errorf("decision date = %v, want %s", stored.DecisionDate, now)
	}
	if stored.ProcessedByID == nil || *stored.ProcessedByID != f.admin.ID {
		t.Errorf("processed by = %v, want %d", stored.ProcessedByID, f.admin.ID)
	}
	notes := noteTexts(t, f.db, c.ID)
	if notes[len(notes)-1] != "Status changed to: APPROVED" {
		t.Errorf("last note = %q", notes[len(notes)-1])
	}
	if last := f.rec.msgs[len(f.rec.msgs)-1]; last.To != f.emp.Email() {
		t.Errorf("decision notified %q, want employee", last.To)
	}
}

// Decisions directly from PENDING are accepted. Whether the business wants
// this is unresolved; the test pins the current permissive behavior.
func TestUpdateStatus_DecisionFromPending(t *testing.T) {
	f := setup(t)
	c := f.submit(t, 100)
	if _, err := f.eng.UpdateStatus(context.Background(), c.ID, "REJECTED", f.admin.ID); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got := statusOf(t, f.db, c.ID); got != models.ClaimRejected {
		t.Errorf("status = %q, want REJECTED", got)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	pending := f.submit(t, 100)
	underReview := f.submit(t, 100)
	if _, err := f.eng.AssignAgent(ctx, underReview.ID, f.agent.ID); err != nil {
		t.Fatalf("AssignAgent: %v", err)
	}
	rejected := f.submit(t, 100)
	if _, err := f.eng.UpdateStatus(ctx, rejected.ID, "REJECTED", f.admin.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	tests := []struct {
		name    string
		claimID uint
		status  string
		adminID uint
		kind    error
	}{
		{"not admin", pending.ID, "APPROVED", f.agent.ID, apperr.ErrForbidden},
		{"unknown admin", pending.ID, "APPROVED", 999, apperr.ErrNotFound},
		{"unknown claim", 999, "APPROVED", f.admin.ID, apperr.ErrNotFound},
		{"unknown status", pending.ID, "CLOSED", f.admin.ID, apperr.ErrValidation},
		{"decision while under review", underReview.ID, "APPROVED", f.admin.ID, apperr.ErrValidation},
		{"reopen terminal", rejected.ID, "PENDING", f.admin.ID, apperr.ErrValidation},
		{"decide terminal", rejected.ID, "APPROVED", f.admin.ID, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.eng.UpdateStatus(ctx, tt.claimID, tt.status, tt.adminID); !errors.Is(err, tt.kind) {
				t.Errorf("err = %v, want %v", err, tt.kind)
			}
		})
	}
	if got := statusOf(t, f.db, underReview.ID); got != models.ClaimUnderReview {
		t.Errorf("status = %q, want UNDER_REVIEW unchanged", got)
	}
}

func TestSettle(t *testing.T) {
	f := setup(t)
	c := f.reviewed(t, 500)

	got, err := f.eng.Settle(context.Background(), c.ID, decimal.NewFromInt(450), f.admin.ID, "paid by transfer")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if got.Status != models.ClaimSettled {
		t.Errorf("status = %q, want SETTLED", got.Status)
	}

	stored, _ := Get(f.db, c.ID)
	if !stored.SettlementAmount.Equal(decimal.NewFromInt(450)) {
		t.Errorf("settlement = %s, want 450", stored.SettlementAmount)
	}
	if stored.ResolutionNotes != "paid by transfer" {
		t.Errorf("notes = %q", stored.ResolutionNotes)
	}
	if stored.ProcessedBy == nil || stored.ProcessedBy.ID != f.admin.ID {
		t.Errorf("processed by = %+v", stored.ProcessedBy)
	}
	notes := noteTexts(t, f.db, c.ID)
	if want := "Claim settled. Amount: 450.00. Notes: paid by transfer"; notes[len(notes)-1] != want {
		t.Errorf("last note = %q, want %q", notes[len(notes)-1], want)
	}
}

// Limit 1000: settling 700 on one claim passes, 400 on another is
// rejected because 700 + 400 > 1000.
func TestSettle_LimitScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first := f.submit(t, 500)
	second := f.submit(t, 600)

	if _, err := f.eng.Settle(ctx, first.ID, decimal.NewFromInt(700), f.admin.ID, ""); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	before := noteTexts(t, f.db, second.ID)

	_, err := f.eng.Settle(ctx, second.ID, decimal.NewFromInt(400), f.admin.ID, "")
	if !errors.Is(err, apperr.ErrConflict) || !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want limit conflict", err)
	}
	if !strings.Contains(err.Error(), "exceeds policy claim limit") {
		t.Errorf("err = %q", err)
	}
	if got := statusOf(t, f.db, second.ID); got != models.ClaimPending {
		t.Errorf("status = %q, want PENDING unchanged", got)
	}
	if after := noteTexts(t, f.db, second.ID); len(after) != len(before) {
		t.Errorf("notes changed on rejected settlement")
	}

	// Exactly reaching the limit is allowed.
	if _, err := f.eng.Settle(ctx, second.ID, decimal.NewFromInt(300), f.admin.ID, ""); err != nil {
		t.Errorf("settle to limit: %v", err)
	}
}

func TestSettle_ResettleReplacesOwnAmount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.submit(t, 900)
	if _, err := f.eng.Settle(ctx, c.ID, decimal.NewFromInt(900), f.admin.ID, ""); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if _, err := f.eng.Settle(ctx, c.ID, decimal.NewFromInt(950), f.admin.ID, "adjusted"); err != nil {
		t.Errorf("re-settle within limit: %v", err)
	}
}

func TestSettle_OtherPoliciesIgnored(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.submit(t, 900)
	if _, err := f.eng.Settle(ctx, c.ID, decimal.NewFromInt(900), f.admin.ID, ""); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	other := dbtest.Policy(t, f.db, "AUTO-1", 1000)
	oc, err := f.eng.Submit(ctx, SubmitOpts{EmployeeID: f.emp.ID, PolicyID: other.ID, Amount: decimal.NewFromInt(900)})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.eng.Settle(ctx, oc.ID, decimal.NewFromInt(900), f.admin.ID, ""); err != nil {
		t.Errorf("settle on separate policy: %v", err)
	}
}

func TestSettle_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.submit(t, 100)

	if _, err := f.eng.Settle(ctx, c.ID, decimal.NewFromInt(10), f.agent.ID, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("not admin: err = %v", err)
	}
	if _, err := f.eng.Settle(ctx, c.ID, decimal.Zero, f.admin.ID, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("zero amount: err = %v", err)
	}
	if _, err := f.eng.Settle(ctx, 999, decimal.NewFromInt(10), f.admin.ID, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown claim: err = %v", err)
	}
}

func TestApprove_CountsRecordedSettlement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.submit(t, 600)
	if _, err := f.eng.Settle(ctx, a.ID, decimal.NewFromInt(600), f.admin.ID, ""); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	// b carries a settlement amount from an earlier payout that was later
	// reopened; approving it must respect the limit.
	b := f.submit(t, 600)
	if err := f.db.Model(&models.Claim{}).Where("id = ?", b.ID).
		Update("settlement_amount", decimal.NewFromInt(500)).Error; err != nil {
		t.Fatalf("seed settlement: %v", err)
	}
	if _, err := f.eng.UpdateStatus(ctx, b.ID, "APPROVED", f.admin.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

// The cumulative settlement across APPROVED and SETTLED claims never
// exceeds the claim limit, whatever order operations arrive in.
func TestSettlementInvariant(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	amounts := []int64{300, 250, 400, 100, 50, 200}
	for _, a := range amounts {
		c := f.submit(t, a)
		_, err := f.eng.Settle(ctx, c.ID, decimal.NewFromInt(a), f.admin.ID, "")
		if err != nil && !errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("Settle(%d): %v", a, err)
		}
	}
	total, err := settledTotal(f.db, f.policy.ID, 0)
	if err != nil {
		t.Fatalf("settledTotal: %v", err)
	}
	if total.GreaterThan(f.policy.ClaimLimit) {
		t.Errorf("settled total %s exceeds limit %s", total, f.policy.ClaimLimit)
	}
	if !total.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("settled total = %s, want 1000 (300+250+400+50)", total)
	}
}

func TestAttachDocument(t *testing.T) {
	f := setup(t)
	c := f.submit(t, 100)
	ctx := context.Background()

	if _, err := f.eng.AttachDocument(ctx, c.ID, "claims/1/receipt.pdf"); err != nil {
		t.Fatalf("AttachDocument: %v", err)
	}
	got, _ := Get(f.db, c.ID)
	if paths := got.DocumentPaths(); !slices.Equal(paths, []string{"claims/1/receipt.pdf"}) {
		t.Errorf("documents = %v", paths)
	}
	if _, err := f.eng.AttachDocument(ctx, 999, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown claim: err = %v", err)
	}
	if _, err := f.eng.AttachDocument(ctx, c.ID, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty path: err = %v", err)
	}
}

func TestList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.submit(t, 100)
	b := f.submit(t, 200)
	if _, err := f.eng.AssignAgent(ctx, b.ID, f.agent.ID); err != nil {
		t.Fatalf("AssignAgent: %v", err)
	}

	all, err := List(f.db, ListOpts{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != b.ID || all[1].ID != a.ID {
		t.Errorf("List order wrong: %v", all)
	}

	byAgent, err := List(f.db, ListOpts{AgentID: f.agent.ID})
	if err != nil {
		t.Fatalf("List by agent: %v", err)
	}
	if len(byAgent) != 1 || byAgent[0].ID != b.ID {
		t.Errorf("by agent = %v", byAgent)
	}

	pending, err := List(f.db, ListOpts{EmployeeID: f.emp.ID, Status: "pending"})
	if err != nil {
		t.Fatalf("List by status: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Errorf("pending = %v", pending)
	}

	if _, err := List(f.db, ListOpts{AgentID: f.admin.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("non-agent filter: err = %v", err)
	}
	if _, err := List(f.db, ListOpts{Status: "nope"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad status: err = %v", err)
	}
}

func TestEmployeeStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	settled := f.submit(t, 300)
	if _, err := f.eng.Settle(ctx, settled.ID, decimal.NewFromInt(250), f.admin.ID, ""); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	approved := f.reviewed(t, 100)
	if _, err := f.eng.UpdateStatus(ctx, approved.ID, "APPROVED", f.admin.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	rejected := f.submit(t, 50)
	if _, err := f.eng.UpdateStatus(ctx, rejected.ID, "REJECTED", f.admin.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	s, err := EmployeeStats(f.db, f.emp.ID)
	if err != nil {
		t.Fatalf("EmployeeStats: %v", err)
	}
	if s.TotalClaims != 3 || s.ApprovedCount != 1 || s.RejectedCount != 1 {
		t.Errorf("stats = %+v", s)
	}
	if !s.TotalClaimedAmount.Equal(decimal.NewFromInt(450)) {
		t.Errorf("claimed = %s, want 450", s.TotalClaimedAmount)
	}
	if !s.TotalSettledAmount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("settled = %s, want 250", s.TotalSettledAmount)
	}

	if _, err := EmployeeStats(f.db, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from, to models.ClaimStatus
		want     bool
	}{
		{models.ClaimPending, models.ClaimApproved, true},
		{models.ClaimAgentReviewed, models.ClaimRejected, true},
		{models.ClaimUnderReview, models.ClaimSettled, false},
		{models.ClaimSettled, models.ClaimPending, false},
		{models.ClaimApproved, models.ClaimRejected, false},
	}
	for _, tt := range tests {
		if got := isValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("isValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSettle_ConcurrentStaysWithinLimit(t *testing.T) {
	db := dbtest.OpenFile(t)
	eng := &Engine{DB: db, Now: func() time.Time { return now }}
	emp := dbtest.Employee(t, db, "emp")
	admin := dbtest.User(t, db, "admin", models.RoleAdmin)
	policy := dbtest.Policy(t, db, "HLTH-1", 1000)

	const n = 5
	ids := make([]uint, n)
	for i := range n {
		c, err := eng.Submit(context.Background(), SubmitOpts{
			EmployeeID: emp.ID, PolicyID: policy.ID, Amount: decimal.NewFromInt(300),
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids[i] = c.ID
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = eng.Settle(context.Background(), ids[i], decimal.NewFromInt(300), admin.ID, "")
		}()
	}
	wg.Wait()

	ok := 0
	for i, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, apperr.ErrConflict):
			t.Errorf("settle %d: err = %v, want conflict", i, err)
		}
	}
	var settled []models.Claim
	if err := db.Where("policy_id = ? AND status IN ?", policy.ID,
		[]models.ClaimStatus{models.ClaimApproved, models.ClaimSettled}).Find(&settled).Error; err != nil {
		t.Fatal(err)
	}
	total := decimal.Zero
	for _, c := range settled {
		total = total.Add(c.SettlementAmount)
	}
	if total.GreaterThan(policy.ClaimLimit) {
		t.Errorf("settled total %s exceeds limit %s", total, policy.ClaimLimit)
	}
	if ok != 3 || len(settled) != 3 {
		t.Errorf("successful settlements = %d, settled claims = %d; want 3 and 3", ok, len(settled))
	}
}
