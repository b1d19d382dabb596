// Package scheduling books appointments between employees and agents
// against the agents' published availability.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/availability"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/insurai/claimdesk/internal/notify"
	"gorm.io/gorm"
)

// Scheduler creates and updates appointments.
type Scheduler struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	// Location is the business timezone used to decide the calendar day
	// and weekday of a booking. Defaults to UTC.
	Location *time.Location
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// BookOpts holds parameters for a new appointment.
type BookOpts struct {
	EmployeeID uint
	AgentID    uint
	PolicyID   *uint
	Start      time.Time
	End        time.Time
	Notes      string
}

// Schedule validates and books an appointment. Coverage and overlap are
// checked inside one transaction holding the agent's row lock, so two
// concurrent bookings for the same agent cannot both pass. The agent is
// notified after commit.
func (s *Scheduler) Schedule(ctx context.Context, opts BookOpts) (*models.Appointment, error) {
	db := s.DB.WithContext(ctx)

	emp, err := directory.GetEmployee(db, opts.EmployeeID)
	if err != nil {
		return nil, err
	}
	agent, err := directory.GetUser(db, opts.AgentID)
	if err != nil {
		return nil, err
	}
	if agent.Role != models.RoleAgent {
		return nil, apperr.Invalid("user %d is not an agent", agent.ID)
	}
	var policy *models.Policy
	if opts.PolicyID != nil {
		if policy, err = directory.GetPolicy(db, *opts.PolicyID); err != nil {
			return nil, err
		}
		covered, err := directory.AgentCoversPolicy(db, agent.ID, policy.ID)
		if err != nil {
			return nil, err
		}
		if !covered {
			return nil, apperr.Invalid("agent %d is not authorized for policy %s", agent.ID, policy.Code)
		}
	}

	loc := s.location()
	start := opts.Start.In(loc).Truncate(time.Second)
	end := opts.End.In(loc).Truncate(time.Second)
	if !start.Before(end) {
		return nil, apperr.Invalid("start %s must be before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if start.Before(s.now()) {
		return nil, apperr.Invalid("appointment time %s is in the past", start.Format(time.RFC3339))
	}
	if !sameDay(start, end) {
		return nil, apperr.Invalid("appointment must start and end on the same day")
	}

	appt := models.Appointment{
		EmployeeID: emp.ID,
		AgentID:    agent.ID,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		Status:     models.AppointmentScheduled,
		Notes:      opts.Notes,
	}
	if policy != nil {
		appt.PolicyID = &policy.ID
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := directory.LockUser(tx, agent.ID); err != nil {
			return err
		}
		cover, err := availability.FindCovering(tx, agent.ID, start, end)
		if err != nil {
			return err
		}
		if cover == nil {
			return apperr.Invalid("agent %d has no availability covering %s %s-%s",
				agent.ID, start.Weekday(), start.Format("15:04"), end.Format("15:04"))
		}
		clash, err := overlapping(tx, "agent_id", agent.ID, appt.StartTime, appt.EndTime)
		if err != nil {
			return err
		}
		if clash != nil {
			return apperr.Conflict("agent %d already has appointment %d from %s to %s",
				agent.ID, clash.ID, clash.StartTime.Format(time.RFC3339), clash.EndTime.Format(time.RFC3339))
		}
		clash, err = overlapping(tx, "employee_id", emp.ID, appt.StartTime, appt.EndTime)
		if err != nil {
			return err
		}
		if clash != nil {
			return apperr.Conflict("employee %d already has appointment %d at that time", emp.ID, clash.ID)
		}
		if err := tx.Omit("Employee", "Agent", "Policy").Create(&appt).Error; err != nil {
			return fmt.Errorf("scheduling: create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify.Deliver(ctx, s.Notifier, notify.Message{
		To:      agent.Email,
		Subject: "New appointment booked",
		Body: fmt.Sprintf("%s booked appointment #%d on %s from %s to %s.",
			emp.FullName, appt.ID, start.Format("Mon Jan 2 2006"), start.Format("15:04"), end.Format("15:04")),
	})
	return &appt, nil
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// overlapping returns the first non-cancelled appointment whose owner
// column matches id and that intersects [start, end), or nil.
func overlapping(tx *gorm.DB, column string, id uint, start, end time.Time) (*models.Appointment, error) {
	var clash models.Appointment
	err := tx.Where(column+" = ? AND status <> ?", id, models.AppointmentCancelled).
		Where("start_time < ? AND end_time > ?", end, start).
		Order("start_time ASC").Limit(1).Find(&clash).Error
	if err != nil {
		return nil, fmt.Errorf("scheduling: overlap check: %w", err)
	}
	if clash.ID == 0 {
		return nil, nil
	}
	return &clash, nil
}

// UpdateStatus overwrites an appointment's status. Any valid status may
// replace any other, including terminal ones.
func (s *Scheduler) UpdateStatus(ctx context.Context, id uint, status string) (*models.Appointment, error) {
	st, ok := models.ParseAppointmentStatus(status)
	if !ok {
		return nil, apperr.Invalid("unknown appointment status %q", status)
	}
	db := s.DB.WithContext(ctx)
	appt, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(appt).Update("status", st).Error; err != nil {
		return nil, fmt.Errorf("scheduling: update appointment %d: %w", id, err)
	}
	appt.Status = st
	return appt, nil
}

// Cancel marks an appointment CANCELLED and tells both parties.
func (s *Scheduler) Cancel(ctx context.Context, id uint) (*models.Appointment, error) {
	appt, err := s.UpdateStatus(ctx, id, string(models.AppointmentCancelled))
	if err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	when := appt.StartTime.In(s.location()).Format("Mon Jan 2 2006 15:04")
	msg := notify.Message{
		Subject: "Appointment cancelled",
		Body:    fmt.Sprintf("Appointment #%d on %s was cancelled.", appt.ID, when),
	}
	if agent, err := directory.GetUser(db, appt.AgentID); err == nil {
		msg.To = agent.Email
		notify.Deliver(ctx, s.Notifier, msg)
	}
	if emp, err := directory.GetEmployee(db, appt.EmployeeID); err == nil {
		msg.To = emp.Email()
		notify.Deliver(ctx, s.Notifier, msg)
	}
	return appt, nil
}

// Get returns one appointment.
func Get(db *gorm.DB, id uint) (*models.Appointment, error) {
	var appt models.Appointment
	if err := db.First(&appt, id).Error; err != nil {
		return nil, apperr.FromLookup(err, "appointment", id)
	}
	return &appt, nil
}

// ListByAgent returns the agent's appointments ordered by start.
func ListByAgent(db *gorm.DB, agentID uint) ([]models.Appointment, error) {
	if _, err := directory.GetUser(db, agentID); err != nil {
		return nil, err
	}
	return list(db, "agent_id", agentID)
}

// ListByEmployee returns the employee's appointments ordered by start.
func ListByEmployee(db *gorm.DB, employeeID uint) ([]models.Appointment, error) {
	if _, err := directory.GetEmployee(db, employeeID); err != nil {
		return nil, err
	}
	return list(db, "employee_id", employeeID)
}

func list(db *gorm.DB, column string, id uint) ([]models.Appointment, error) {
	var appts []models.Appointment
	if err := db.Where(column+" = ?", id).Order("start_time ASC, id ASC").Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("scheduling: list by %s %d: %w", column, id, err)
	}
	return appts, nil
}
