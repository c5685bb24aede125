// Package main is the entry point for the quantum biome simulation service.
// It evolves many independent open quantum systems ahead of real time on a
// background worker and serves their observables over HTTP and websocket.
//
// Startup sequence:
//  1. Load configuration from environment variables
//  2. Initialize logging
//  3. Wire all dependencies via the DI container (database, store, backend
//     selection, subsystems, batcher, runner, scheduler, server)
//  4. Start the HTTP server, simulation loop and scheduler
//  5. Wait for shutdown signal and stop everything gracefully
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dudecon/SpaceWheat-sub021/internal/config"
	"github.com/dudecon/SpaceWheat-sub021/internal/di"
	"github.com/dudecon/SpaceWheat-sub021/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting SpaceWheat evolution service")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Start the HTTP server in its own goroutine so the simulation loop and
	// scheduler can start concurrently.
	go func() {
		if err := container.Server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started")

	container.Runner.Start()
	container.Scheduler.Start()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop producers before consumers: the scheduler first so no autosave
	// races the teardown, then the simulation loop, then the lookahead worker.
	container.Scheduler.Stop()
	container.Runner.Stop()

	// A lookahead worker that fails to join means buffer ownership cannot be
	// reclaimed; abort rather than free memory the worker may still touch.
	if err := container.Batcher.Close(10 * time.Second); err != nil {
		log.Fatal().Err(err).Msg("Evolution worker did not stop, aborting")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.Server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}
