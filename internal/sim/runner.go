// Package sim drives the batcher at a fixed wall-clock tick rate. The tick
// loop never blocks on numeric work: the batcher either consumes a buffered
// snapshot or performs one bounded inline step.
package sim

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/batch"
)

// TickFunc observes completed ticks. Listeners run on the simulation
// thread and must be cheap.
type TickFunc func(tick uint64)

// Runner owns the fixed-rate simulation loop.
type Runner struct {
	log     zerolog.Logger
	batcher *batch.Batcher

	interval time.Duration
	dt       float64 // simulated seconds per tick

	listeners []TickFunc
	tick      uint64

	stop    chan struct{}
	stopped chan struct{}
	started bool
}

// New creates a runner ticking at tickHz, advancing dt simulated seconds
// per tick.
func New(batcher *batch.Batcher, tickHz, dt float64, log zerolog.Logger) *Runner {
	return &Runner{
		log:      log.With().Str("component", "sim").Logger(),
		batcher:  batcher,
		interval: time.Duration(float64(time.Second) / tickHz),
		dt:       dt,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// OnTick registers a listener. Must be called before Start.
func (r *Runner) OnTick(fn TickFunc) {
	r.listeners = append(r.listeners, fn)
}

// Start launches the loop on its own goroutine.
func (r *Runner) Start() {
	if r.started {
		return
	}
	r.started = true
	go r.run()
	r.log.Info().
		Dur("interval", r.interval).
		Float64("dt", r.dt).
		Msg("Simulation loop started")
}

// Stop signals the loop and waits for it to exit.
func (r *Runner) Stop() {
	if !r.started {
		return
	}
	close(r.stop)
	<-r.stopped
	r.log.Info().Uint64("ticks", r.tick).Msg("Simulation loop stopped")
}

func (r *Runner) run() {
	defer close(r.stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.batcher.Tick(r.dt)
			r.tick++
			for _, fn := range r.listeners {
				fn(r.tick)
			}
		}
	}
}
