// Package dashboard serves a JSON status API for the delivery daemon,
// including a live event stream of delivery outcomes.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/switchboardhq/switchboard/internal/delivery"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB    *gorm.DB
	State func() delivery.Snapshot // live scheduler counters; optional
	Port  int
	Out   io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("dashboard: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8787
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts.DB, opts.State)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
