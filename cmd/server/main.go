/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift reconciliation server. Handles
  configuration, store selection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration
  2. Open the selected store backend (SQLite or PostgreSQL)
  3. Create the API handler with its dependencies
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

CONFIGURATION (environment):
  STORE            "sqlite" (default) or "postgres"
  SQLITE_PATH      SQLite database path (default: ./shifts.db)
  DATABASE_URL     PostgreSQL DSN, used when STORE=postgres
  SERVER_PORT      HTTP port (default: 8080)
  HOURS_PRECISION  Decimal places for persisted hours, 1 or 2
  SCHEDULER_ENABLED  Background reconciliation sweep (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
*/
package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shiftworks/shift-engine/api"
	"github.com/shiftworks/shift-engine/config"
	"github.com/shiftworks/shift-engine/store/postgres"
	"github.com/shiftworks/shift-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	var (
		store  api.Store
		closer io.Closer
	)
	switch cfg.Store {
	case "postgres":
		st, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open postgres store: %v", err)
		}
		store = st
	default:
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open sqlite store: %v", err)
		}
		store = st
		closer = st
	}

	handler := api.NewHandler(store, cfg.Rules)
	router := api.NewRouter(handler)

	scheduler := api.NewScheduler(store, cfg.Rules)
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Start()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Shift engine listening on http://localhost:%s/api (store: %s)", cfg.ServerPort, cfg.Store)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if closer != nil {
		closer.Close()
	}

	log.Println("Server stopped")
}
