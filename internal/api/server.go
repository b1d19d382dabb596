// Package api serves the claimdesk JSON API over HTTP.
//
// Authentication is handled upstream; the acting user's id arrives in the
// X-User-ID header and is resolved against the directory on each request.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insurai/claimdesk/internal/assistant"
	"github.com/insurai/claimdesk/internal/availability"
	"github.com/insurai/claimdesk/internal/blob"
	"github.com/insurai/claimdesk/internal/claims"
	"github.com/insurai/claimdesk/internal/scheduling"
	"gorm.io/gorm"
)

// Services bundles the collaborators the handlers call into. Blob and
// Assistant are optional; their routes answer 503 when unset.
type Services struct {
	DB        *gorm.DB
	Scheduler *scheduling.Scheduler
	Claims    *claims.Engine
	Blob      blob.Store
	Assistant *assistant.Assistant
	// LookaheadDays is the default slot horizon.
	LookaheadDays int
	Location      *time.Location
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (s *Services) now() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}

func (s *Services) lookahead() int {
	if s.LookaheadDays > 0 {
		return s.LookaheadDays
	}
	return availability.DefaultLookaheadDays
}

// invalidate drops cached assistant context after a change to
// availability, bookings or authorizations.
func (s *Services) invalidate() {
	if s.Assistant != nil {
		s.Assistant.Invalidate()
	}
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Services *Services
	Port     int
	Out      io.Writer
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc *Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, svc)
	return router
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Services == nil || opts.Services.DB == nil {
		return fmt.Errorf("api: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts.Services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
