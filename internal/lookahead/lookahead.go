// Package lookahead runs many subsystems' evolution ahead of real time on a
// background worker, into one bounded buffer per subsystem. The buffers are
// the only cross-thread structure: each is a single-producer single-consumer
// bounded queue (a buffered channel), so producer and consumer only meet at
// the full and empty boundaries and the hot path takes no lock.
package lookahead

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/backend"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/evolve"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

// ErrStarved signals an empty buffer: the consumer outran the producer.
// Recoverable; the caller performs its own bounded catch-up.
var ErrStarved = errors.New("lookahead: buffer empty")

// ErrAlreadyStarted is returned when mutating a running engine.
var ErrAlreadyStarted = errors.New("lookahead: engine already started")

// ErrShutdownTimeout is returned when the worker fails to join within the
// grace period. Fatal: buffer ownership cannot be safely reclaimed.
var ErrShutdownTimeout = errors.New("lookahead: worker did not stop within grace period")

// Snapshot is one precomputed (simulation-time, state) pair.
type Snapshot struct {
	Time float64
	Rho  *qmat.Matrix
}

// Config holds the lookahead parameters.
type Config struct {
	StepDt float64 // Simulated seconds per lookahead step
	MaxDt  float64 // Euler substep bound
	Depth  int     // Buffer capacity per subsystem
}

type subsystem struct {
	engine *evolve.Engine
	buf    chan Snapshot

	// Producer-owned; never touched after Start except by the worker.
	rho     *qmat.Matrix
	simTime float64
	failed  bool
}

// Engine owns N subsystems and one worker goroutine that keeps their
// buffers filled. Subsystems are added before Start; the worker holds
// produce-side ownership from Start until Stop joins it.
type Engine struct {
	log     zerolog.Logger
	cfg     Config
	evolver backend.BatchEvolver

	subs []*subsystem

	drained  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
	started  bool
}

// New creates a lookahead engine using the given batch evolver.
func New(cfg Config, evolver backend.BatchEvolver, log zerolog.Logger) (*Engine, error) {
	if cfg.StepDt <= 0 || cfg.MaxDt <= 0 {
		return nil, fmt.Errorf("lookahead: step dt and max dt must be positive (%v, %v)", cfg.StepDt, cfg.MaxDt)
	}
	if cfg.Depth < 1 {
		return nil, fmt.Errorf("lookahead: depth must be at least 1, got %d", cfg.Depth)
	}
	return &Engine{
		log:     log.With().Str("component", "lookahead").Logger(),
		cfg:     cfg,
		evolver: evolver,
		drained: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// AddSubsystem registers a subsystem from its Hamiltonian, Lindblad
// operators and initial state, returning its handle. Configuration errors
// (dimension mismatches) are fatal for the subsystem and reported here.
func (e *Engine) AddSubsystem(h *qmat.Matrix, ls []*qmat.Matrix, rho0 *qmat.Matrix) (int, error) {
	if e.started {
		return 0, ErrAlreadyStarted
	}

	eng := evolve.New(e.log)
	if err := eng.Configure(h, ls); err != nil {
		return 0, err
	}
	if err := eng.Finalize(); err != nil {
		return 0, err
	}
	if rho0.Dim() != eng.Dim() {
		return 0, fmt.Errorf("lookahead: initial state %w (%d vs %d)",
			qmat.ErrDimensionMismatch, rho0.Dim(), eng.Dim())
	}

	handle := len(e.subs)
	e.subs = append(e.subs, &subsystem{
		engine: eng,
		buf:    make(chan Snapshot, e.cfg.Depth),
		rho:    rho0.Clone(),
	})
	return handle, nil
}

// SubsystemCount returns the number of registered subsystems.
func (e *Engine) SubsystemCount() int { return len(e.subs) }

// Buffered returns how many snapshots are waiting for a subsystem.
func (e *Engine) Buffered(handle int) int {
	if handle < 0 || handle >= len(e.subs) {
		return 0
	}
	return len(e.subs[handle].buf)
}

// Start launches the background worker. Ownership of produce-side state
// transfers to the worker until Stop joins it.
func (e *Engine) Start() error {
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	go e.run()
	e.log.Info().
		Int("subsystems", len(e.subs)).
		Int("depth", e.cfg.Depth).
		Float64("step_dt", e.cfg.StepDt).
		Str("backend", e.evolver.Kind().String()).
		Msg("Lookahead worker started")
	return nil
}

// Stop signals the worker and joins it within the grace period. Matrix
// buffers may be released only after a nil return; a timeout is fatal.
func (e *Engine) Stop(grace time.Duration) error {
	if !e.started {
		return nil
	}
	e.stopOnce.Do(func() { close(e.stop) })
	select {
	case <-e.stopped:
		return nil
	case <-time.After(grace):
		return ErrShutdownTimeout
	}
}

// PopNext returns the oldest unread snapshot for a subsystem. Timestamps
// across successive calls are strictly increasing and no snapshot is
// delivered twice. An empty buffer returns ErrStarved.
func (e *Engine) PopNext(handle int) (Snapshot, error) {
	if handle < 0 || handle >= len(e.subs) {
		return Snapshot{}, fmt.Errorf("lookahead: invalid handle %d", handle)
	}

	select {
	case snap := <-e.subs[handle].buf:
		// Wake the producer if it parked on all-full.
		select {
		case e.drained <- struct{}{}:
		default:
		}
		return snap, nil
	default:
		return Snapshot{}, ErrStarved
	}
}

// run is the worker loop: fill every buffer with a free slot, park when all
// are full, exit on stop.
func (e *Engine) run() {
	defer close(e.stopped)

	for {
		select {
		case <-e.stop:
			return
		default:
		}

		if e.fillPass() == 0 {
			select {
			case <-e.stop:
				return
			case <-e.drained:
			}
		}
	}
}

// fillPass advances every subsystem with buffer space by one step and
// returns the number of snapshots pushed.
func (e *Engine) fillPass() int {
	var engines []*evolve.Engine
	var rhos []*qmat.Matrix
	var idx []int
	for i, sub := range e.subs {
		if sub.failed || len(sub.buf) == cap(sub.buf) {
			continue
		}
		engines = append(engines, sub.engine)
		rhos = append(rhos, sub.rho)
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return 0
	}

	next, err := e.evolver.EvolveBatch(engines, rhos, e.cfg.StepDt, e.cfg.MaxDt)
	if err != nil {
		// Post-finalize evolution errors indicate corrupted state; stop
		// producing for these subsystems rather than spin on the error.
		e.log.Error().Err(err).Msg("Lookahead evolution failed, marking batch subsystems failed")
		for _, i := range idx {
			e.subs[i].failed = true
		}
		return 0
	}

	for n, i := range idx {
		sub := e.subs[i]
		sub.rho = next[n]
		sub.simTime += e.cfg.StepDt
		// Space was checked above and this worker is the only producer.
		sub.buf <- Snapshot{Time: sub.simTime, Rho: next[n]}
	}
	return len(idx)
}
