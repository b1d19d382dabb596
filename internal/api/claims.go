package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/claims"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/shopspring/decimal"
)

type submitClaimRequest struct {
	EmployeeID    uint            `json:"employee_id"`
	PolicyID      uint            `json:"policy_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	DocumentPaths []string        `json:"document_paths"`
}

func handleSubmitClaim(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := requireRole(c, models.RoleEmployee, models.RoleAdmin)
		if !ok {
			return
		}
		var req submitClaimRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx := c.Request.Context()
		if u.Role == models.RoleEmployee {
			emp, err := directory.GetEmployee(svc.DB.WithContext(ctx), req.EmployeeID)
			if err != nil {
				writeError(c, err)
				return
			}
			if emp.UserID == nil || *emp.UserID != u.ID {
				writeError(c, apperr.Forbidden("employees may only submit their own claims"))
				return
			}
		}
		claim, err := svc.Claims.Submit(ctx, claims.SubmitOpts{
			EmployeeID:    req.EmployeeID,
			PolicyID:      req.PolicyID,
			Description:   req.Description,
			Amount:        req.Amount,
			DocumentPaths: req.DocumentPaths,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		respondClaim(c, svc, http.StatusCreated, claim.ID)
	}
}

// respondClaim reloads the claim with its associations and writes it.
func respondClaim(c *gin.Context, svc *Services, status int, id uint) {
	claim, err := claims.Get(svc.DB.WithContext(c.Request.Context()), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, toClaimView(*claim))
}

func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + raw})
		return 0, false
	}
	return uint(id), true
}

func handleListClaims(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var opts claims.ListOpts
		var ok bool
		if opts.EmployeeID, ok = queryID(c, "employee_id"); !ok {
			return
		}
		if opts.AgentID, ok = queryID(c, "agent_id"); !ok {
			return
		}
		if opts.PolicyID, ok = queryID(c, "policy_id"); !ok {
			return
		}
		opts.Status = c.Query("status")

		list, err := claims.List(svc.DB.WithContext(c.Request.Context()), opts)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]claimView, 0, len(list))
		for _, cl := range list {
			out = append(out, toClaimView(cl))
		}
		c.JSON(http.StatusOK, out)
	}
}

func handleGetClaim(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		respondClaim(c, svc, http.StatusOK, id)
	}
}

type assignRequest struct {
	AgentID uint `json:"agent_id"`
}

func handleAssignAgent(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireRole(c, models.RoleAdmin); !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req assignRequest
		if !bindJSON(c, &req) {
			return
		}
		if _, err := svc.Claims.AssignAgent(c.Request.Context(), id, req.AgentID); err != nil {
			writeError(c, err)
			return
		}
		respondClaim(c, svc, http.StatusOK, id)
	}
}

type suggestionRequest struct {
	Suggestion string `json:"suggestion"`
	Notes      string `json:"notes"`
}

func handleSuggestion(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := requireRole(c, models.RoleAgent)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req suggestionRequest
		if !bindJSON(c, &req) {
			return
		}
		if _, err := svc.Claims.SubmitAgentSuggestion(c.Request.Context(), id, u.ID, req.Suggestion, req.Notes); err != nil {
			writeError(c, err)
			return
		}
		respondClaim(c, svc, http.StatusOK, id)
	}
}

func handleClaimStatus(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := actor(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req statusRequest
		if !bindJSON(c, &req) {
			return
		}
		if _, err := svc.Claims.UpdateStatus(c.Request.Context(), id, req.Status, u.ID); err != nil {
			writeError(c, err)
			return
		}
		respondClaim(c, svc, http.StatusOK, id)
	}
}

type settleRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes"`
}

func handleSettle(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := actor(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req settleRequest
		if !bindJSON(c, &req) {
			return
		}
		if _, err := svc.Claims.Settle(c.Request.Context(), id, req.Amount, u.ID, req.Notes); err != nil {
			writeError(c, err)
			return
		}
		respondClaim(c, svc, http.StatusOK, id)
	}
}

func handleUploadDocument(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := actor(c)
		if !ok {
			return
		}
		if svc.Blob == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document storage is not configured"})
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		claim, err := claims.Get(svc.DB.WithContext(ctx), id)
		if err != nil {
			writeError(c, err)
			return
		}
		if !claimParty(u, claim) {
			writeError(c, apperr.Forbidden("user %d may not add documents to claim %d", u.ID, id))
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required: " + err.Error()})
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeError(c, err)
			return
		}
		defer f.Close()

		key, err := svc.Blob.Put(ctx, id, fh.Filename, fh.Header.Get("Content-Type"), f)
		if err != nil {
			writeError(c, err)
			return
		}
		doc, err := svc.Claims.AttachDocument(ctx, id, key)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": doc.ID, "claim_id": id, "path": doc.Path})
	}
}

// claimParty reports whether u is an admin, the claimant or the claim's
// assigned agent. claim must have Employee loaded.
func claimParty(u *models.User, claim *models.Claim) bool {
	switch u.Role {
	case models.RoleAdmin:
		return true
	case models.RoleAgent:
		return claim.AssignedAgentID != nil && *claim.AssignedAgentID == u.ID
	case models.RoleEmployee:
		return claim.Employee != nil && claim.Employee.UserID != nil && *claim.Employee.UserID == u.ID
	}
	return false
}

func handleClaimNotes(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		notes, err := claims.Notes(svc.DB.WithContext(c.Request.Context()), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"notes":       toNoteViews(notes),
			"suggestions": claims.FilterSuggestions(notes),
		})
	}
}

func handleEmployeeStats(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		stats, err := claims.EmployeeStats(svc.DB.WithContext(c.Request.Context()), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
