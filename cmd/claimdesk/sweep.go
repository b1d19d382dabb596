package main

import (
	"context"
	"fmt"
	"time"

	"github.com/insurai/claimdesk/internal/availability"
	"github.com/insurai/claimdesk/internal/notify"
	"github.com/insurai/claimdesk/internal/sweeper"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue appointments as missed, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			notifier, err := notify.FromConfig(gormDB, cfg.Notify)
			if err != nil {
				return err
			}
			sw := &sweeper.Sweeper{DB: gormDB, Notifier: notifier, Grace: cfg.Sweeper.Grace}
			n, err := sw.Sweep(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d appointment(s) missed\n", n)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSlotsCmd() *cobra.Command {
	var (
		configPath string
		agentID    uint
		days       int
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List an agent's open slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == 0 {
				return fmt.Errorf("--agent is required")
			}
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = cfg.Scheduling.LookaheadDays
			}
			loc := cfg.Location()
			seq, err := availability.Project(gormDB, agentID, days, time.Now().In(loc))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			count := 0
			for s := range seq {
				fmt.Fprintf(out, "%-4d %s  %s-%s\n", s.AvailabilityID,
					s.Start.Format("Mon 2006-01-02"), s.Start.Format("15:04"), s.End.Format("15:04"))
				count++
			}
			if count == 0 {
				fmt.Fprintf(out, "No open slots in the next %d days.\n", days)
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&agentID, "agent", 0, "agent user id")
	cmd.Flags().IntVar(&days, "days", availability.DefaultLookaheadDays, "lookahead in days")
	return cmd
}

// commandContext returns cmd's context, or Background when run outside
// Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
