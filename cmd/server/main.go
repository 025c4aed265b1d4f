// Package main is the entry point for Kosh, a personal portfolio tracker
// for Indian equities, crypto and gold.
//
// Startup sequence:
//  1. Load configuration from environment variables
//  2. Initialize logging
//  3. Wire all dependencies via the DI container (databases, clients,
//     repositories, services)
//  4. Start the HTTP server for the API and dashboard
//  5. Register background jobs with the scheduler
//  6. Wait for a shutdown signal and shut down gracefully
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koshlabs/kosh/internal/config"
	"github.com/koshlabs/kosh/internal/di"
	"github.com/koshlabs/kosh/internal/scheduler"
	"github.com/koshlabs/kosh/internal/server"
	"github.com/koshlabs/kosh/pkg/logger"
)

// cleanupSchedule removes expired cache entries hourly.
const cleanupSchedule = "0 0 * * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use a fallback logger so the configuration error is still logged
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting Kosh")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Handlers:  di.BuildHandlers(container, log),
		Databases: container.Databases(),
		Events:    container.EventHub,
	}, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SyncSchedule, jobs.SyncJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("Failed to register sync job")
	}
	if err := sched.AddJob(cleanupSchedule, jobs.CleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}
	sched.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
