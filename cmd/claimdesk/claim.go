package main

import (
	"fmt"

	"github.com/insurai/claimdesk/internal/claims"
	"github.com/insurai/claimdesk/internal/models"
	"github.com/insurai/claimdesk/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim administration commands",
	}

	cmd.AddCommand(newClaimShowCmd())
	cmd.AddCommand(newClaimSettleCmd())
	return cmd
}

func newClaimShowCmd() *cobra.Command {
	var (
		configPath string
		claimID    uint
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a claim with its progress notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if claimID == 0 {
				return fmt.Errorf("--claim is required")
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			c, err := claims.Get(gormDB.WithContext(commandContext(cmd)), claimID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Claim %d  %s\n", c.ID, c.Status)
			fmt.Fprintf(out, "Amount:     %s\n", c.Amount.StringFixed(2))
			if c.Status == models.ClaimSettled {
				fmt.Fprintf(out, "Settlement: %s\n", c.SettlementAmount.StringFixed(2))
			}
			for _, p := range c.DocumentPaths() {
				fmt.Fprintf(out, "Document:   %s\n", p)
			}
			for _, n := range c.Notes {
				fmt.Fprintf(out, "  %s  %-12s %s\n", n.CreatedAt.Format("2006-01-02 15:04"), n.AuthorName(), n.Note)
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&claimID, "claim", 0, "claim id")
	return cmd
}

func newClaimSettleCmd() *cobra.Command {
	var (
		configPath string
		claimID    uint
		adminID    uint
		amount     string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Settle a claim against its policy's limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if claimID == 0 || adminID == 0 {
				return fmt.Errorf("--claim and --admin are required")
			}
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			notifier, err := notify.FromConfig(gormDB, cfg.Notify)
			if err != nil {
				return err
			}

			engine := &claims.Engine{DB: gormDB, Notifier: notifier}
			c, err := engine.Settle(commandContext(cmd), claimID, amt, adminID, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Claim %d settled for %s\n", c.ID, c.SettlementAmount.StringFixed(2))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&claimID, "claim", 0, "claim id")
	cmd.Flags().UintVar(&adminID, "admin", 0, "admin user id")
	cmd.Flags().StringVar(&amount, "amount", "", "settlement amount")
	cmd.Flags().StringVar(&notes, "notes", "", "resolution notes")
	return cmd
}
