package availability

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"gorm.io/gorm"
)

// DefaultLookaheadDays is the projection horizon when none is configured.
const DefaultLookaheadDays = 14

// MaxLookaheadDays bounds the projection horizon.
const MaxLookaheadDays = 366

// Slot is one concrete bookable interval projected from a weekly window.
type Slot struct {
	AvailabilityID uint      `json:"availability_id"`
	AgentID        uint      `json:"agent_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

type window struct {
	id         uint
	start, end time.Duration
}

// Project returns the agent's free slots from today through today+days,
// inclusive, in now's location. Windows that intersect a non-cancelled
// appointment are dropped. Slots come out ascending by start, ties in
// window id order.
//
// The windows and appointments are read once; ranging the sequence again
// replays the same snapshot.
func Project(db *gorm.DB, agentID uint, days int, now time.Time) (iter.Seq[Slot], error) {
	if days < 0 || days > MaxLookaheadDays {
		return nil, apperr.Invalid("days must be between 0 and %d, got %d", MaxLookaheadDays, days)
	}
	if _, err := directory.GetUser(db, agentID); err != nil {
		return nil, err
	}

	rows, err := listSlots(db, agentID)
	if err != nil {
		return nil, err
	}
	byDay := make(map[int][]window)
	offDay := make(map[int]bool)
	for _, r := range rows {
		if r.Off {
			offDay[r.DayOfWeek] = true
			continue
		}
		start, err1 := parseClock(r.StartTime)
		end, err2 := parseClock(r.EndTime)
		if err1 != nil || err2 != nil || start >= end {
			continue
		}
		byDay[r.DayOfWeek] = append(byDay[r.DayOfWeek], window{id: r.ID, start: start, end: end})
	}
	if len(byDay) == 0 {
		return func(func(Slot) bool) {}, nil
	}
	for day, ws := range byDay {
		sortWindows(ws)
		byDay[day] = ws
	}

	first := midnight(now)
	horizon := first.AddDate(0, 0, days+1)
	var booked []models.Appointment
	if err := db.Where("agent_id = ? AND status <> ? AND start_time < ? AND end_time > ?",
		agentID, models.AppointmentCancelled, horizon.UTC(), first.UTC()).
		Find(&booked).Error; err != nil {
		return nil, fmt.Errorf("availability: load appointments of agent %d: %w", agentID, err)
	}

	return func(yield func(Slot) bool) {
		for i := 0; i <= days; i++ {
			date := first.AddDate(0, 0, i)
			dow := DayOfWeek(date)
			if offDay[dow] {
				continue
			}
			for _, w := range byDay[dow] {
				s := Slot{AvailabilityID: w.id, AgentID: agentID, Start: at(date, w.start), End: at(date, w.end)}
				if isBooked(booked, s.Start, s.End) {
					continue
				}
				if !yield(s) {
					return
				}
			}
		}
	}, nil
}

func isBooked(appts []models.Appointment, start, end time.Time) bool {
	for _, a := range appts {
		if Overlaps(a.StartTime, a.EndTime, start, end) {
			return true
		}
	}
	return false
}

func sortWindows(ws []window) {
	slices.SortFunc(ws, func(a, b window) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
}
