package backend

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/evolve"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

// BatchEvolver advances a batch of subsystem states by dt. The two
// implementations are the closed strategy set behind Kind; call sites
// dispatch through this interface and never branch on the kind themselves.
type BatchEvolver interface {
	Kind() Kind
	// EvolveBatch advances each state through its engine. Engines and states
	// are matched by index; a length mismatch is an error.
	EvolveBatch(engines []*evolve.Engine, rhos []*qmat.Matrix, dt, maxDt float64) ([]*qmat.Matrix, error)
}

// NewEvolver returns the evolver for a resolved selection.
func NewEvolver(sel Selection, log zerolog.Logger) BatchEvolver {
	switch sel.Kind {
	case GPUCompute:
		return &gpuEvolver{workers: sel.Probe.Cores}
	default:
		return &cpuEvolver{}
	}
}

// cpuEvolver is the native CPU path: one subsystem after another, on the
// calling thread, to completion.
type cpuEvolver struct{}

func (e *cpuEvolver) Kind() Kind { return NativeCPU }

func (e *cpuEvolver) EvolveBatch(engines []*evolve.Engine, rhos []*qmat.Matrix, dt, maxDt float64) ([]*qmat.Matrix, error) {
	if len(engines) != len(rhos) {
		return nil, fmt.Errorf("backend: %d engines for %d states", len(engines), len(rhos))
	}

	out := make([]*qmat.Matrix, len(rhos))
	for i := range rhos {
		next, err := engines[i].Evolve(rhos[i], dt, maxDt)
		if err != nil {
			return nil, fmt.Errorf("backend: subsystem %d: %w", i, err)
		}
		out[i] = next
	}
	return out, nil
}

// gpuEvolver is the compute-dispatch path: the batch is partitioned across
// dispatch queues, one queue per subsystem slot, and joined before results
// are returned. Each subsystem stays on a single queue, so the kernels need
// no internal synchronization.
type gpuEvolver struct {
	workers int
}

func (e *gpuEvolver) Kind() Kind { return GPUCompute }

func (e *gpuEvolver) EvolveBatch(engines []*evolve.Engine, rhos []*qmat.Matrix, dt, maxDt float64) ([]*qmat.Matrix, error) {
	if len(engines) != len(rhos) {
		return nil, fmt.Errorf("backend: %d engines for %d states", len(engines), len(rhos))
	}

	workers := e.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(rhos) {
		workers = len(rhos)
	}

	out := make([]*qmat.Matrix, len(rhos))
	errs := make([]error, len(rhos))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				next, err := engines[i].Evolve(rhos[i], dt, maxDt)
				if err != nil {
					errs[i] = err
					continue
				}
				out[i] = next
			}
		}()
	}
	for i := range rhos {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("backend: subsystem %d: %w", i, err)
		}
	}
	return out, nil
}
