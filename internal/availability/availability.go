// Package availability stores each agent's recurring weekly windows and
// projects them onto concrete bookable slots.
package availability

import (
	"fmt"
	"time"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"gorm.io/gorm"
)

// SaveOpts holds parameters for creating or updating a weekly window.
// A zero ID creates a new window.
type SaveOpts struct {
	ID        uint
	AgentID   uint
	DayOfWeek int
	Start     string
	End       string
	Off       bool
}

// Save validates and stores a weekly window. The overlap check and the
// write run in one transaction holding the agent's row lock.
func Save(db *gorm.DB, opts SaveOpts) (*models.AgentAvailability, error) {
	if _, err := directory.RequireRole(db, opts.AgentID, models.RoleAgent); err != nil {
		return nil, err
	}
	if opts.DayOfWeek < 1 || opts.DayOfWeek > 7 {
		return nil, apperr.Invalid("day of week must be 1..7, got %d", opts.DayOfWeek)
	}
	start, end, err := normalizeWindow(opts.Start, opts.End, opts.Off)
	if err != nil {
		return nil, err
	}

	slot := models.AgentAvailability{}
	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := directory.LockUser(tx, opts.AgentID); err != nil {
			return err
		}
		if opts.ID != 0 {
			if err := tx.First(&slot, opts.ID).Error; err != nil {
				return apperr.FromLookup(err, "availability slot", opts.ID)
			}
			if slot.AgentID != opts.AgentID {
				return apperr.Forbidden("availability slot %d belongs to agent %d", opts.ID, slot.AgentID)
			}
		}
		if !opts.Off {
			if err := checkOverlap(tx, opts.AgentID, opts.DayOfWeek, start, end, opts.ID); err != nil {
				return err
			}
		}

		slot.AgentID = opts.AgentID
		slot.DayOfWeek = opts.DayOfWeek
		slot.StartTime = start
		slot.EndTime = end
		slot.Off = opts.Off
		if err := tx.Save(&slot).Error; err != nil {
			return fmt.Errorf("availability: save slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// normalizeWindow validates a window and renders both ends as "HH:MM".
// An off window may omit its times.
func normalizeWindow(startStr, endStr string, off bool) (string, string, error) {
	if off && startStr == "" && endStr == "" {
		return "", "", nil
	}
	start, err := parseClock(startStr)
	if err != nil {
		return "", "", apperr.Invalid("start: %v", err)
	}
	end, err := parseClock(endStr)
	if err != nil {
		return "", "", apperr.Invalid("end: %v", err)
	}
	if !off && start >= end {
		return "", "", apperr.Invalid("start time %s must be before end time %s", startStr, endStr)
	}
	return formatClock(start), formatClock(end), nil
}

// checkOverlap rejects a window that intersects another non-off window of
// the same agent and day. "HH:MM" strings order the same as the clock.
func checkOverlap(tx *gorm.DB, agentID uint, day int, start, end string, excludeID uint) error {
	q := tx.Model(&models.AgentAvailability{}).
		Where("agent_id = ? AND day_of_week = ? AND off = ?", agentID, day, false).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var clash models.AgentAvailability
	err := q.Order("start_time ASC").Limit(1).Find(&clash).Error
	if err != nil {
		return fmt.Errorf("availability: overlap check: %w", err)
	}
	if clash.ID != 0 {
		return apperr.Invalid("window %s-%s overlaps existing slot %d (%s-%s)",
			start, end, clash.ID, clash.StartTime, clash.EndTime)
	}
	return nil
}

// ToggleOff flips a window's off flag. Turning a window back on re-runs
// the time and overlap checks.
func ToggleOff(db *gorm.DB, id uint) (*models.AgentAvailability, error) {
	var slot models.AgentAvailability
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&slot, id).Error; err != nil {
			return apperr.FromLookup(err, "availability slot", id)
		}
		if _, err := directory.LockUser(tx, slot.AgentID); err != nil {
			return err
		}
		if slot.Off {
			if _, _, err := normalizeWindow(slot.StartTime, slot.EndTime, false); err != nil {
				return err
			}
			if err := checkOverlap(tx, slot.AgentID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.ID); err != nil {
				return err
			}
		}
		slot.Off = !slot.Off
		if err := tx.Model(&slot).Update("off", slot.Off).Error; err != nil {
			return fmt.Errorf("availability: toggle slot %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Get returns one window.
func Get(db *gorm.DB, id uint) (*models.AgentAvailability, error) {
	var slot models.AgentAvailability
	if err := db.First(&slot, id).Error; err != nil {
		return nil, apperr.FromLookup(err, "availability slot", id)
	}
	return &slot, nil
}

// List returns an agent's windows ordered by day and start time.
func List(db *gorm.DB, agentID uint) ([]models.AgentAvailability, error) {
	if _, err := directory.GetUser(db, agentID); err != nil {
		return nil, err
	}
	return listSlots(db, agentID)
}

func listSlots(db *gorm.DB, agentID uint) ([]models.AgentAvailability, error) {
	var slots []models.AgentAvailability
	if err := db.Where("agent_id = ?", agentID).
		Order("day_of_week ASC, start_time ASC, id ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("availability: list agent %d: %w", agentID, err)
	}
	return slots, nil
}

// Delete removes a window.
func Delete(db *gorm.DB, id uint) error {
	result := db.Delete(&models.AgentAvailability{}, id)
	if result.Error != nil {
		return fmt.Errorf("availability: delete slot %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("availability slot not found: %d", id)
	}
	return nil
}

// FindCovering returns the non-off window of the agent that contains
// [start, end) on start's weekday, or nil when none does. start and end
// must fall on the same calendar day. A day carrying an off window has no
// cover.
func FindCovering(db *gorm.DB, agentID uint, start, end time.Time) (*models.AgentAvailability, error) {
	var slots []models.AgentAvailability
	if err := db.Where("agent_id = ? AND day_of_week = ?", agentID, DayOfWeek(start)).
		Order("start_time ASC, id ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("availability: find covering window: %w", err)
	}

	from, to := clockOf(start), clockOf(end)
	var cover *models.AgentAvailability
	for i := range slots {
		s := &slots[i]
		if s.Off {
			return nil, nil
		}
		ws, err1 := parseClock(s.StartTime)
		we, err2 := parseClock(s.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if cover == nil && ws <= from && to <= we {
			cover = s
		}
	}
	return cover, nil
}
