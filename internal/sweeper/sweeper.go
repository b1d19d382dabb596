// Package sweeper marks appointments that ended without being closed as
// MISSED.
package sweeper

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/insurai/claimdesk/internal/notify"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DefaultGrace is how long after its end a SCHEDULED appointment is left
// alone before it counts as missed.
const DefaultGrace = 15 * time.Minute

// Sweeper transitions overdue SCHEDULED appointments to MISSED.
type Sweeper struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	// Grace defaults to DefaultGrace when zero; a negative value disables it.
	Grace time.Duration
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sweep marks every SCHEDULED appointment whose end plus grace lies
// before now as MISSED and returns how many it moved. Each row moves with
// a compare-and-swap on its status, so concurrent sweepers never
// double-mark or double-notify. A row that fails is logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	db := s.DB.WithContext(ctx)
	grace := s.Grace
	switch {
	case grace == 0:
		grace = DefaultGrace
	case grace < 0:
		grace = 0
	}
	cutoff := s.now().Add(-grace).UTC()

	var due []models.Appointment
	if err := db.Where("status = ? AND end_time < ?", models.AppointmentScheduled, cutoff).
		Order("end_time ASC, id ASC").Find(&due).Error; err != nil {
		return 0, fmt.Errorf("sweeper: load overdue appointments: %w", err)
	}

	moved := 0
	for _, appt := range due {
		if ctx.Err() != nil {
			return moved, ctx.Err()
		}
		result := db.Model(&models.Appointment{}).
			Where("id = ? AND status = ?", appt.ID, models.AppointmentScheduled).
			Update("status", models.AppointmentMissed)
		if result.Error != nil {
			log.Printf("sweeper: mark appointment %d missed: %v", appt.ID, result.Error)
			continue
		}
		if result.RowsAffected != 1 {
			continue
		}
		moved++
		s.notifyAgent(ctx, db, appt)
	}
	return moved, nil
}

func (s *Sweeper) notifyAgent(ctx context.Context, db *gorm.DB, appt models.Appointment) {
	agent, err := directory.GetUser(db, appt.AgentID)
	if err != nil {
		log.Printf("sweeper: appointment %d: %v", appt.ID, err)
		return
	}
	notify.Deliver(ctx, s.Notifier, notify.Message{
		To:      agent.Email,
		Subject: "Appointment missed",
		Body: fmt.Sprintf("Appointment #%d scheduled %s to %s was marked MISSED.",
			appt.ID, appt.StartTime.Format(time.RFC3339), appt.EndTime.Format(time.RFC3339)),
	})
}

// Run sweeps on the given cron schedule (standard five-field or
// descriptor such as "@every 5m") until ctx is cancelled. A sweep still
// running when the next tick fires is not overlapped.
func (s *Sweeper) Run(ctx context.Context, schedule string, out io.Writer) error {
	if s.DB == nil {
		return fmt.Errorf("sweeper: db is required")
	}
	if out == nil {
		out = io.Discard
	}

	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(schedule, func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			log.Printf("sweeper: %v", err)
			return
		}
		if n > 0 {
			fmt.Fprintf(out, "Marked %d appointment(s) missed\n", n)
		}
	}); err != nil {
		return fmt.Errorf("sweeper: schedule %q: %w", schedule, err)
	}

	fmt.Fprintf(out, "Sweeper running (%s, grace %s)\n", schedule, s.Grace)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	fmt.Fprintf(out, "Sweeper stopped.\n")
	return nil
}
