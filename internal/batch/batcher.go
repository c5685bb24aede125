// Package batch is the per-tick entry point driven by the simulation loop.
// The batcher consumes precomputed lookahead snapshots when the lookahead
// engine is available and falls back to direct synchronous evolution when it
// is not. Starvation never stalls a tick: one bounded catch-up step is
// computed inline and the loop continues.
package batch

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/backend"
	"github.com/dudecon/SpaceWheat-sub021/internal/biome"
	"github.com/dudecon/SpaceWheat-sub021/internal/lookahead"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/evolve"
)

// Config holds batcher parameters.
type Config struct {
	Lookahead bool    // enables the lookahead engine
	Depth     int     // lookahead buffer capacity
	StepDt    float64 // lookahead step size in simulated seconds
	MaxDt     float64 // Euler substep bound
}

// Stats counts tick outcomes for diagnostics.
type Stats struct {
	Ticks       uint64 `json:"ticks"`
	Starvations uint64 `json:"starvations"`
	CatchUps    uint64 `json:"catch_ups"`
}

// Batcher orchestrates evolution for all subsystems once per tick and
// updates each subsystem's externally visible density matrix.
type Batcher struct {
	log zerolog.Logger
	cfg Config

	subs []*biome.Subsystem

	// Per-subsystem engines used by the fallback path and for inline
	// catch-up. Configured identically to the lookahead worker's engines
	// but never shared with it.
	engines []*evolve.Engine

	la       *lookahead.Engine // nil on the fallback path
	fallback bool

	// Counters are atomic: Tick writes on the simulation goroutine while
	// the stats endpoint reads concurrently.
	ticks       atomic.Uint64
	starvations atomic.Uint64
	catchUps    atomic.Uint64
}

// New builds a batcher over the supplied subsystems. When lookahead is
// enabled and constructible the background producer is started; otherwise
// the fallback flag is set (logged once) and every tick evolves each
// subsystem directly and synchronously.
func New(subs []*biome.Subsystem, sel backend.Selection, cfg Config, log zerolog.Logger) (*Batcher, error) {
	b := &Batcher{
		log:  log.With().Str("component", "batch").Logger(),
		cfg:  cfg,
		subs: subs,
	}

	// Dimension mismatches surface here, at initialization, as fatal
	// configuration errors for the batch.
	b.engines = make([]*evolve.Engine, len(subs))
	for i, sub := range subs {
		if sub.QubitCount() == 0 {
			return nil, fmt.Errorf("batch: subsystem %s has no qubits allocated", sub.Name())
		}
		eng := evolve.New(b.log)
		if err := eng.Configure(sub.Hamiltonian(), sub.Lindblads()); err != nil {
			return nil, fmt.Errorf("batch: subsystem %s: %w", sub.Name(), err)
		}
		if err := eng.Finalize(); err != nil {
			return nil, fmt.Errorf("batch: subsystem %s: %w", sub.Name(), err)
		}
		b.engines[i] = eng
	}

	if !cfg.Lookahead {
		b.fallback = true
		b.log.Info().Msg("Lookahead disabled, using direct synchronous evolution")
		return b, nil
	}

	la, err := b.buildLookahead(sel)
	if err != nil {
		b.fallback = true
		b.log.Warn().Err(err).Msg("Lookahead engine unavailable, falling back to direct evolution")
		return b, nil
	}
	b.la = la
	return b, nil
}

func (b *Batcher) buildLookahead(sel backend.Selection) (*lookahead.Engine, error) {
	la, err := lookahead.New(lookahead.Config{
		StepDt: b.cfg.StepDt,
		MaxDt:  b.cfg.MaxDt,
		Depth:  b.cfg.Depth,
	}, backend.NewEvolver(sel, b.log), b.log)
	if err != nil {
		return nil, err
	}

	for _, sub := range b.subs {
		if _, err := la.AddSubsystem(sub.Hamiltonian(), sub.Lindblads(), sub.Rho()); err != nil {
			return nil, err
		}
	}
	if err := la.Start(); err != nil {
		return nil, err
	}
	return la, nil
}

// Fallback reports whether the batcher runs the direct synchronous path.
func (b *Batcher) Fallback() bool { return b.fallback }

// Stats returns a snapshot of the tick counters.
func (b *Batcher) Stats() Stats {
	return Stats{
		Ticks:       b.ticks.Load(),
		Starvations: b.starvations.Load(),
		CatchUps:    b.catchUps.Load(),
	}
}

// Subsystems returns the managed subsystems.
func (b *Batcher) Subsystems() []*biome.Subsystem { return b.subs }

// Tick advances every subsystem by one step and publishes the new states.
// Starvation and numerical issues degrade, log, and continue; Tick never
// fails the simulation loop.
func (b *Batcher) Tick(dt float64) {
	b.ticks.Add(1)

	if b.fallback {
		for i, sub := range b.subs {
			b.evolveDirect(i, sub, dt)
		}
		return
	}

	for i, sub := range b.subs {
		snap, err := b.la.PopNext(i)
		switch {
		case err == nil:
			if setErr := sub.SetRho(snap.Rho); setErr != nil {
				b.log.Error().Err(setErr).Str("biome", sub.Name()).Msg("Failed to publish evolved state")
			}
		case errors.Is(err, lookahead.ErrStarved):
			// Bounded: exactly one synchronous step, then move on.
			b.starvations.Add(1)
			b.catchUps.Add(1)
			b.log.Debug().Str("biome", sub.Name()).Msg("Lookahead starved, inline catch-up step")
			b.evolveDirect(i, sub, b.cfg.StepDt)
		default:
			b.log.Error().Err(err).Str("biome", sub.Name()).Msg("Lookahead pop failed")
		}
	}
}

func (b *Batcher) evolveDirect(i int, sub *biome.Subsystem, dt float64) {
	next, err := b.engines[i].Evolve(sub.Rho(), dt, b.cfg.MaxDt)
	if err != nil {
		b.log.Error().Err(err).Str("biome", sub.Name()).Msg("Direct evolution failed")
		return
	}
	if err := sub.SetRho(next); err != nil {
		b.log.Error().Err(err).Str("biome", sub.Name()).Msg("Failed to publish evolved state")
	}
}

// Close stops the lookahead worker. A join timeout is fatal: buffers cannot
// be safely released, so the caller must abort rather than continue.
func (b *Batcher) Close(grace time.Duration) error {
	if b.la == nil {
		return nil
	}
	if err := b.la.Stop(grace); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	return nil
}
