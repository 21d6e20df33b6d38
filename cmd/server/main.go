/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the permanent-disability rating server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse environment, then command-line flags
  2. Load the rating schedule
  3. Open the reference source (seeding an empty database)
  4. Build the engine and API handler
  5. Start the reload scheduler, if enabled
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -source         seed | csv | sqlite | postgres (default: seed)
  -data           Directory of reference CSV files
  -db             SQLite database path (default: pdrating.db)
                  Use ":memory:" for in-memory database
  -postgres       PostgreSQL DSN
  -schedule       Built-in schedule name (default: default)
  -schedule-file  JSON or YAML schedule file
  -policy         strict | lenient, overrides the schedule
  -workers        Concurrent impairment adjustments
  -reload         Reference table reload interval (0 disables)

  Every flag defaults to its PDR_* environment variable; see config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reload scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (PDR_SHUTDOWN_TIMEOUT)
  4. Close the reference source
  5. Exit

EXAMPLES:
  # Rate against the embedded seed tables
  ./server

  # Persist reference tables in SQLite, seeded from a CSV export
  ./server -source=sqlite -db=./data/reference.db -data=./export

  # Shared PostgreSQL tables, reloaded every ten minutes
  PDR_POSTGRES_DSN=postgres://... ./server -source=postgres -reload=10m

SEE ALSO:
  - config/config.go: Configuration
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/pd-rating/api"
	"github.com/warp/pd-rating/config"
	"github.com/warp/pd-rating/lookup"
	"github.com/warp/pd-rating/rating"
	"github.com/warp/pd-rating/store"
)

func main() {
	cfg, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	logger := log.Default()

	// Reference data and engine
	schedule, err := cfg.LoadSchedule()
	if err != nil {
		log.Fatalf("Failed to load rating schedule: %v", err)
	}
	src, closeSource, err := cfg.OpenSource(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to open reference source: %v", err)
	}
	defer closeSource()

	opts := cfg.EngineOptions(logger)
	handler, err := newHandler(ctx, src, schedule, opts)
	if err != nil {
		log.Fatalf("Failed to load reference tables: %v", err)
	}
	stats := handler.Engine().Tables().Stats()
	log.Printf("Loaded %d occupations from %s source, schedule %q (%s)",
		stats.Occupations, cfg.Source, schedule.Name, schedule.FailurePolicy)

	scheduler := api.NewReloadScheduler(handler, cfg.ReloadInterval)
	scheduler.Start()

	// Create router
	router := api.NewRouter(handler, cfg.AllowedOrigins...)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func newHandler(ctx context.Context, src lookup.Source, schedule rating.Schedule, opts []rating.Option) (*api.Handler, error) {
	engine, err := rating.Load(ctx, src, schedule, opts...)
	if err != nil {
		return nil, err
	}
	h := api.NewHandler(engine, src, opts...)
	if db, ok := src.(*store.DB); ok {
		h.Counter = db
	}
	return h, nil
}
