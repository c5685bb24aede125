// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/backend"
	"github.com/dudecon/SpaceWheat-sub021/internal/batch"
	"github.com/dudecon/SpaceWheat-sub021/internal/biome"
	"github.com/dudecon/SpaceWheat-sub021/internal/config"
	"github.com/dudecon/SpaceWheat-sub021/internal/database"
	"github.com/dudecon/SpaceWheat-sub021/internal/scheduler"
	"github.com/dudecon/SpaceWheat-sub021/internal/server"
	"github.com/dudecon/SpaceWheat-sub021/internal/sim"
	"github.com/dudecon/SpaceWheat-sub021/internal/storage"
)

// Container holds every long-lived component of the running system.
type Container struct {
	SaveDB     *database.DB
	Store      *storage.Store
	Backup     *storage.S3Backup // nil unless a bucket is configured
	Selection  backend.Selection
	Subsystems []*biome.Subsystem
	Batcher    *batch.Batcher
	Runner     *sim.Runner
	Scheduler  *scheduler.Scheduler
	Server     *server.Server
}

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
//  1. Save database and store
//  2. Compute backend selection
//  3. Subsystems (restored from the store, or seeded fresh)
//  4. Batcher and simulation runner
//  5. Scheduled jobs (autosave, optional S3 backup)
//  6. HTTP server
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path: cfg.SavePath(),
		Name: "saves",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize save database: %w", err)
	}

	store, err := storage.New(db, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	selection := backend.NewSelector(log, backend.Options{
		Force:               cfg.Backend,
		BenchmarkIterations: cfg.BenchmarkIterations,
	}).Resolve()

	subs, err := loadOrSeedSubsystems(store, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize subsystems: %w", err)
	}

	batcher, err := batch.New(subs, selection, batch.Config{
		Lookahead: cfg.Lookahead,
		Depth:     cfg.LookaheadDepth,
		StepDt:    cfg.StepDt,
		MaxDt:     cfg.MaxDt,
	}, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize batcher: %w", err)
	}

	runner := sim.New(batcher, cfg.TickHz, cfg.StepDt, log)

	var backup *storage.S3Backup
	if cfg.S3Bucket != "" {
		backup, err = storage.NewS3Backup(context.Background(), cfg.S3Bucket, cfg.S3Region, db.Path(), log)
		if err != nil {
			log.Warn().Err(err).Msg("S3 backup unavailable, continuing without it")
			backup = nil
		}
	}

	sched := scheduler.New(log)
	if cfg.AutosaveSchedule != "" {
		job := storage.NewAutosaveJob(store, func() []*biome.Subsystem { return batcher.Subsystems() })
		if err := sched.AddJob(cfg.AutosaveSchedule, job); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to register autosave job: %w", err)
		}
	}
	if backup != nil {
		if err := sched.AddJob("@every 6h", storage.NewBackupJob(backup, 30)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Batcher:   batcher,
		Store:     store,
		Backup:    backup,
		Scheduler: sched,
		Selection: selection,
	})
	runner.OnTick(srv.Hub().Broadcast)

	log.Info().
		Str("backend", selection.Kind.String()).
		Int("subsystems", len(subs)).
		Bool("lookahead", !batcher.Fallback()).
		Msg("Dependency injection wiring completed")

	return &Container{
		SaveDB:     db,
		Store:      store,
		Backup:     backup,
		Selection:  selection,
		Subsystems: subs,
		Batcher:    batcher,
		Runner:     runner,
		Scheduler:  sched,
		Server:     srv,
	}, nil
}

// loadOrSeedSubsystems restores every saved subsystem, or seeds the default
// world when the save database is empty.
func loadOrSeedSubsystems(store *storage.Store, log zerolog.Logger) ([]*biome.Subsystem, error) {
	names, err := store.List()
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		log.Info().Msg("No saved subsystems, seeding default world")
		return SeedWorld(log)
	}

	subs := make([]*biome.Subsystem, 0, len(names))
	for _, name := range names {
		sub, err := store.Restore(name, log)
		if err != nil {
			return nil, err
		}
		// Operators are not persisted; reattach the default dynamics.
		if err := AttachDefaultDynamics(sub); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	log.Info().Int("subsystems", len(subs)).Msg("Restored subsystems from save database")
	return subs, nil
}

// Close releases everything the container owns. Safe on a partially
// started container.
func (c *Container) Close() error {
	return c.SaveDB.Close()
}
