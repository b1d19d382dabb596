package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/availability"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/insurai/claimdesk/internal/scheduling"
)

type saveAvailabilityRequest struct {
	ID        uint   `json:"id"`
	AgentID   uint   `json:"agent_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Off       bool   `json:"off"`
}

func handleSaveAvailability(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := requireRole(c, models.RoleAgent, models.RoleAdmin)
		if !ok {
			return
		}
		var req saveAvailabilityRequest
		if !bindJSON(c, &req) {
			return
		}
		agentID := req.AgentID
		if agentID == 0 {
			agentID = u.ID
		}
		if u.Role == models.RoleAgent && agentID != u.ID {
			writeError(c, apperr.Forbidden("agents may only edit their own availability"))
			return
		}

		slot, err := availability.Save(svc.DB.WithContext(c.Request.Context()), availability.SaveOpts{
			ID:        req.ID,
			AgentID:   agentID,
			DayOfWeek: req.DayOfWeek,
			Start:     req.StartTime,
			End:       req.EndTime,
			Off:       req.Off,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		svc.invalidate()
		status := http.StatusCreated
		if req.ID != 0 {
			status = http.StatusOK
		}
		c.JSON(status, toAvailabilityView(*slot))
	}
}

func handleListAvailability(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID, ok := paramID(c, "id")
		if !ok {
			return
		}
		slots, err := availability.List(svc.DB.WithContext(c.Request.Context()), agentID)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]availabilityView, 0, len(slots))
		for _, s := range slots {
			out = append(out, toAvailabilityView(s))
		}
		c.JSON(http.StatusOK, out)
	}
}

// ownSlot loads a window and checks the actor may change it.
func ownSlot(c *gin.Context, svc *Services) (*models.AgentAvailability, bool) {
	u, ok := requireRole(c, models.RoleAgent, models.RoleAdmin)
	if !ok {
		return nil, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	slot, err := availability.Get(svc.DB.WithContext(c.Request.Context()), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if u.Role == models.RoleAgent && slot.AgentID != u.ID {
		writeError(c, apperr.Forbidden("availability slot %d belongs to another agent", id))
		return nil, false
	}
	return slot, true
}

func handleToggleOff(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		slot, ok := ownSlot(c, svc)
		if !ok {
			return
		}
		updated, err := availability.ToggleOff(svc.DB.WithContext(c.Request.Context()), slot.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		svc.invalidate()
		c.JSON(http.StatusOK, toAvailabilityView(*updated))
	}
}

func handleDeleteAvailability(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		slot, ok := ownSlot(c, svc)
		if !ok {
			return
		}
		if err := availability.Delete(svc.DB.WithContext(c.Request.Context()), slot.ID); err != nil {
			writeError(c, err)
			return
		}
		svc.invalidate()
		c.Status(http.StatusNoContent)
	}
}

func handleSlots(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID, ok := paramID(c, "id")
		if !ok {
			return
		}
		days := svc.lookahead()
		if raw := c.Query("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 || n > availability.MaxLookaheadDays {
				writeError(c, apperr.Invalid("days must be between 0 and %d, got %s", availability.MaxLookaheadDays, raw))
				return
			}
			days = n
		}
		seq, err := availability.Project(svc.DB.WithContext(c.Request.Context()), agentID, days, svc.now())
		if err != nil {
			writeError(c, err)
			return
		}
		slots := slices.Collect(seq)
		if slots == nil {
			slots = []availability.Slot{}
		}
		c.JSON(http.StatusOK, slots)
	}
}

type scheduleRequest struct {
	EmployeeID uint      `json:"employee_id"`
	AgentID    uint      `json:"agent_id"`
	PolicyID   *uint     `json:"policy_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Notes      string    `json:"notes"`
}

func handleSchedule(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := requireRole(c, models.RoleEmployee, models.RoleAdmin)
		if !ok {
			return
		}
		var req scheduleRequest
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
				writeError(c, apperr.Forbidden("employees may only book for themselves"))
				return
			}
		}

		appt, err := svc.Scheduler.Schedule(ctx, scheduling.BookOpts{
			EmployeeID: req.EmployeeID,
			AgentID:    req.AgentID,
			PolicyID:   req.PolicyID,
			Start:      req.Start,
			End:        req.End,
			Notes:      req.Notes,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		svc.invalidate()
		c.JSON(http.StatusCreated, toAppointmentView(*appt))
	}
}

func handleAgentAppointments(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		appts, err := scheduling.ListByAgent(svc.DB.WithContext(c.Request.Context()), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toAppointmentViews(appts))
	}
}

func handleEmployeeAppointments(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		appts, err := scheduling.ListByEmployee(svc.DB.WithContext(c.Request.Context()), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toAppointmentViews(appts))
	}
}

// appointmentParty loads the appointment and checks the actor is one of
// its parties or an admin. Employees pass only when allowEmployee is set.
func appointmentParty(c *gin.Context, svc *Services, allowEmployee bool) (*models.Appointment, bool) {
	u, ok := actor(c)
	if !ok {
		return nil, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	db := svc.DB.WithContext(c.Request.Context())
	appt, err := scheduling.Get(db, id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	switch u.Role {
	case models.RoleAdmin:
		return appt, true
	case models.RoleAgent:
		if appt.AgentID == u.ID {
			return appt, true
		}
	case models.RoleEmployee:
		if allowEmployee {
			emp, err := directory.GetEmployee(db, appt.EmployeeID)
			if err == nil && emp.UserID != nil && *emp.UserID == u.ID {
				return appt, true
			}
		}
	}
	writeError(c, apperr.Forbidden("user %d may not change appointment %d", u.ID, id))
	return nil, false
}

type statusRequest struct {
	Status string `json:"status"`
}

func handleAppointmentStatus(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		appt, ok := appointmentParty(c, svc, false)
		if !ok {
			return
		}
		var req statusRequest
		if !bindJSON(c, &req) {
			return
		}
		updated, err := svc.Scheduler.UpdateStatus(c.Request.Context(), appt.ID, req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		svc.invalidate()
		c.JSON(http.StatusOK, toAppointmentView(*updated))
	}
}

func handleCancelAppointment(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		appt, ok := appointmentParty(c, svc, true)
		if !ok {
			return
		}
		updated, err := svc.Scheduler.Cancel(c.Request.Context(), appt.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		svc.invalidate()
		c.JSON(http.StatusOK, toAppointmentView(*updated))
	}
}
