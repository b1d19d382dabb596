package api

import (
	"time"

	"github.com/insurai/claimdesk/internal/claims"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/shopspring/decimal"
)

type userView struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

func toUserView(u models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

type policyView struct {
	ID             uint            `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Type           string          `json:"type,omitempty"`
	Status         string          `json:"status"`
	Premium        decimal.Decimal `json:"premium"`
	CoverageAmount decimal.Decimal `json:"coverage_amount"`
	ClaimLimit     decimal.Decimal `json:"claim_limit"`
}

func toPolicyViews(ps []models.Policy) []policyView {
	out := make([]policyView, 0, len(ps))
	for _, p := range ps {
		out = append(out, policyView{
			ID:             p.ID,
			Code:           p.Code,
			Name:           p.Name,
			Description:    p.Description,
			Type:           p.Type,
			Status:         p.Status,
			Premium:        p.Premium,
			CoverageAmount: p.CoverageAmount,
			ClaimLimit:     p.ClaimLimit,
		})
	}
	return out
}

type availabilityView struct {
	ID        uint   `json:"id"`
	AgentID   uint   `json:"agent_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Off       bool   `json:"off"`
	Booked    bool   `json:"booked"`
}

func toAvailabilityView(s models.AgentAvailability) availabilityView {
	return availabilityView{
		ID:        s.ID,
		AgentID:   s.AgentID,
		DayOfWeek: s.DayOfWeek,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Off:       s.Off,
		Booked:    s.Booked,
	}
}

type appointmentView struct {
	ID         uint                     `json:"id"`
	EmployeeID uint                     `json:"employee_id"`
	AgentID    uint                     `json:"agent_id"`
	PolicyID   *uint                    `json:"policy_id,omitempty"`
	Start      time.Time                `json:"start"`
	End        time.Time                `json:"end"`
	Status     models.AppointmentStatus `json:"status"`
	Notes      string                   `json:"notes,omitempty"`
}

func toAppointmentView(a models.Appointment) appointmentView {
	return appointmentView{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		AgentID:    a.AgentID,
		PolicyID:   a.PolicyID,
		Start:      a.StartTime,
		End:        a.EndTime,
		Status:     a.Status,
		Notes:      a.Notes,
	}
}

func toAppointmentViews(as []models.Appointment) []appointmentView {
	out := make([]appointmentView, 0, len(as))
	for _, a := range as {
		out = append(out, toAppointmentView(a))
	}
	return out
}

type noteView struct {
	ID         uint      `json:"id"`
	AuthorID   *uint     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

func toNoteViews(ns []models.ClaimProgressNote) []noteView {
	out := make([]noteView, 0, len(ns))
	for _, n := range ns {
		out = append(out, noteView{
			ID:         n.ID,
			AuthorID:   n.AuthorID,
			AuthorName: n.AuthorName(),
			Note:       n.Note,
			CreatedAt:  n.CreatedAt,
		})
	}
	return out
}

type claimView struct {
	ID               uint               `json:"id"`
	EmployeeID       uint               `json:"employee_id"`
	PolicyID         uint               `json:"policy_id"`
	Description      string             `json:"description"`
	Amount           decimal.Decimal    `json:"amount"`
	Status           models.ClaimStatus `json:"status"`
	ClaimDate        time.Time          `json:"claim_date"`
	DecisionDate     *time.Time         `json:"decision_date,omitempty"`
	SettlementAmount decimal.Decimal    `json:"settlement_amount"`
	ResolutionNotes  string             `json:"resolution_notes,omitempty"`
	AssignedAgentID  *uint              `json:"assigned_agent_id,omitempty"`
	ProcessedByID    *uint              `json:"processed_by_id,omitempty"`
	DocumentPaths    []string           `json:"document_paths"`
	Suggestions      []string           `json:"agent_suggestions,omitempty"`
	Notes            []noteView         `json:"notes,omitempty"`
}

func toClaimView(c models.Claim) claimView {
	return claimView{
		ID:               c.ID,
		EmployeeID:       c.EmployeeID,
		PolicyID:         c.PolicyID,
		Description:      c.Description,
		Amount:           c.Amount,
		Status:           c.Status,
		ClaimDate:        c.ClaimDate,
		DecisionDate:     c.DecisionDate,
		SettlementAmount: c.SettlementAmount,
		ResolutionNotes:  c.ResolutionNotes,
		AssignedAgentID:  c.AssignedAgentID,
		ProcessedByID:    c.ProcessedByID,
		DocumentPaths:    c.DocumentPaths(),
		Suggestions:      claims.FilterSuggestions(c.Notes),
		Notes:            toNoteViews(c.Notes),
	}
}

type notificationView struct {
	ID        uint      `json:"id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
