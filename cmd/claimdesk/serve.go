package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/insurai/claimdesk/internal/api"
	"github.com/insurai/claimdesk/internal/assistant"
	"github.com/insurai/claimdesk/internal/blob"
	"github.com/insurai/claimdesk/internal/cache"
	"github.com/insurai/claimdesk/internal/claims"
	"github.com/insurai/claimdesk/internal/config"
	"github.com/insurai/claimdesk/internal/notify"
	"github.com/insurai/claimdesk/internal/scheduling"
	"github.com/insurai/claimdesk/internal/sweeper"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noSweeper  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the missed-appointment sweeper",
		Long:  "Starts the JSON API and, unless disabled, the sweeper cron. Both stop on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noSweeper)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().BoolVar(&noSweeper, "no-sweeper", false, "do not run the sweeper")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noSweeper bool) error {
	out := cmd.OutOrStdout()
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	notifier, err := notify.FromConfig(gormDB, cfg.Notify)
	if err != nil {
		return err
	}
	svc, err := buildServices(ctx, cfg, gormDB, notifier, out)
	if err != nil {
		return err
	}

	sweepDone := make(chan error, 1)
	if noSweeper || cfg.Sweeper.Disabled {
		sweepDone <- nil
	} else {
		sw := &sweeper.Sweeper{DB: gormDB, Notifier: notifier, Grace: cfg.Sweeper.Grace}
		go func() { sweepDone <- sw.Run(ctx, cfg.Sweeper.Schedule, out) }()
	}

	err = api.Start(ctx, api.StartOpts{Services: svc, Port: port, Out: out})
	cancel()
	if sweepErr := <-sweepDone; err == nil {
		err = sweepErr
	}
	return err
}

// buildServices wires the domain engines. Document storage and the
// assistant are optional and left nil when unconfigured.
func buildServices(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, notifier notify.Notifier, out io.Writer) (*api.Services, error) {
	loc := cfg.Location()
	svc := &api.Services{
		DB:            gormDB,
		Scheduler:     &scheduling.Scheduler{DB: gormDB, Notifier: notifier, Location: loc},
		Claims:        &claims.Engine{DB: gormDB, Notifier: notifier},
		LookaheadDays: cfg.Scheduling.LookaheadDays,
		Location:      loc,
	}

	if cfg.Blob.Bucket != "" {
		store, err := blob.New(ctx, cfg.Blob)
		if err != nil {
			return nil, err
		}
		svc.Blob = store
		fmt.Fprintf(out, "Documents stored in s3://%s\n", cfg.Blob.Bucket)
	}

	llm, err := assistant.NewOpenAIClient(cfg.Assistant)
	if err != nil {
		log.Printf("claimdesk: assistant disabled: %v", err)
	} else {
		svc.Assistant = &assistant.Assistant{
			DB:       gormDB,
			LLM:      llm,
			Cache:    cache.New[string, string](),
			TTL:      cfg.Assistant.ContextTTL,
			Days:     cfg.Scheduling.LookaheadDays,
			Location: loc,
		}
	}
	return svc, nil
}
