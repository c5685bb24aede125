// Package evolve advances density matrices under the Lindblad master
// equation:
//
//	dρ/dt = −i[H, ρ] + Σ_k (L_k ρ L_k† − ½{L_k†L_k, ρ})
//
// using an explicit Euler integrator with bounded substeps. The engine
// enforces the density-matrix contracts after every step: Hermiticity is
// restored by projection and the trace is renormalized to one whenever
// drift exceeds tolerance. Both corrections are warnings, not failures — a
// simulation tolerates bounded numerical error.
package evolve

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

// DefaultTolerance bounds acceptable Hermiticity and trace drift per step.
const DefaultTolerance = 1e-9

// ErrNotFinalized is returned when evolving before Finalize.
var ErrNotFinalized = errors.New("evolve: engine not finalized")

// ErrNotConfigured is returned when finalizing an unconfigured engine.
var ErrNotConfigured = errors.New("evolve: engine not configured")

// Engine evolves a single subsystem's density matrix. Configure then
// Finalize locks the dimension; EvolveStep is afterwards a pure function of
// (ρ, dt) except for an internal step counter kept for diagnostics.
type Engine struct {
	log zerolog.Logger

	dim       int
	h         *qmat.Matrix
	ls        []*qmat.Matrix
	lDags     []*qmat.Matrix // L† precomputed at Finalize
	lDagLs    []*qmat.Matrix // L†L precomputed at Finalize
	finalized bool

	tol   float64
	steps uint64
}

// New creates an engine. It is unusable until Configure and Finalize succeed.
func New(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "evolve").Logger(),
		tol: DefaultTolerance,
	}
}

// Configure sets the Hamiltonian (nil for free dissipative evolution) and
// the Lindblad operators. All operators must share one dimension; a mismatch
// is a configuration error that leaves the engine unusable until it is
// reconfigured.
func (e *Engine) Configure(h *qmat.Matrix, ls []*qmat.Matrix) error {
	e.reset()

	dim := 0
	if h != nil {
		dim = h.Dim()
	} else if len(ls) > 0 {
		dim = ls[0].Dim()
	}
	if dim == 0 {
		return fmt.Errorf("%w: need a Hamiltonian or at least one Lindblad operator", ErrNotConfigured)
	}

	if h != nil {
		if !h.IsHermitian(e.tol) {
			return fmt.Errorf("evolve configure: Hamiltonian is not Hermitian within %g", e.tol)
		}
		if err := h.CheckFinite(); err != nil {
			return fmt.Errorf("evolve configure: Hamiltonian: %w", err)
		}
	}
	for k, l := range ls {
		if l.Dim() != dim {
			return fmt.Errorf("evolve configure: Lindblad %d: %w (%d vs %d)", k, qmat.ErrDimensionMismatch, l.Dim(), dim)
		}
		if err := l.CheckFinite(); err != nil {
			return fmt.Errorf("evolve configure: Lindblad %d: %w", k, err)
		}
	}

	e.dim = dim
	if h != nil {
		e.h = h.Clone()
	}
	e.ls = make([]*qmat.Matrix, len(ls))
	for k, l := range ls {
		e.ls[k] = l.Clone()
	}
	return nil
}

// Finalize precomputes L† and L†L for each Lindblad operator and locks the
// dimension. Evolution is rejected until this succeeds.
func (e *Engine) Finalize() error {
	if e.dim == 0 {
		return ErrNotConfigured
	}

	e.lDags = make([]*qmat.Matrix, len(e.ls))
	e.lDagLs = make([]*qmat.Matrix, len(e.ls))
	for k, l := range e.ls {
		dag := l.Dagger()
		ldl, err := dag.Mul(l)
		if err != nil {
			return fmt.Errorf("evolve finalize: Lindblad %d: %w", k, err)
		}
		e.lDags[k] = dag
		e.lDagLs[k] = ldl
	}

	e.finalized = true
	return nil
}

func (e *Engine) reset() {
	e.dim = 0
	e.h = nil
	e.ls = nil
	e.lDags = nil
	e.lDagLs = nil
	e.finalized = false
}

// Dim returns the locked dimension (0 before Configure).
func (e *Engine) Dim() int { return e.dim }

// LindbladCount returns the number of configured Lindblad operators.
func (e *Engine) LindbladCount() int { return len(e.ls) }

// Finalized reports whether the engine is ready to evolve.
func (e *Engine) Finalized() bool { return e.finalized }

// Steps returns the diagnostic step counter.
func (e *Engine) Steps() uint64 { return e.steps }

// EvolveStep advances ρ by a single Euler step of size dt and returns the
// new state. The input is never mutated.
func (e *Engine) EvolveStep(rho *qmat.Matrix, dt float64) (*qmat.Matrix, error) {
	if !e.finalized {
		return nil, ErrNotFinalized
	}
	if rho.Dim() != e.dim {
		return nil, fmt.Errorf("evolve step: %w (state %d vs engine %d)", qmat.ErrDimensionMismatch, rho.Dim(), e.dim)
	}

	next, err := e.step(rho, dt)
	if err != nil {
		return nil, err
	}
	e.steps++
	return e.enforceContracts(next), nil
}

// Evolve advances ρ by dt, subcycling into ⌈dt/maxDt⌉ Euler steps when dt
// exceeds the stability bound.
func (e *Engine) Evolve(rho *qmat.Matrix, dt, maxDt float64) (*qmat.Matrix, error) {
	if !e.finalized {
		return nil, ErrNotFinalized
	}
	if dt <= maxDt {
		return e.EvolveStep(rho, dt)
	}

	numSteps := int(math.Ceil(dt / maxDt))
	subDt := dt / float64(numSteps)

	current := rho
	for i := 0; i < numSteps; i++ {
		next, err := e.EvolveStep(current, subDt)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// step computes ρ + dt * dρ/dt without contract enforcement.
func (e *Engine) step(rho *qmat.Matrix, dt float64) (*qmat.Matrix, error) {
	drho := qmat.Zero(e.dim)

	// Coherent term: −i[H, ρ]
	if e.h != nil {
		comm, err := e.h.Commutator(rho)
		if err != nil {
			return nil, err
		}
		drho, err = drho.Add(comm.Scale(complex(0, -1)))
		if err != nil {
			return nil, err
		}
	}

	// Dissipators: Σ_k (L_k ρ L_k† − ½{L_k†L_k, ρ})
	for k := range e.ls {
		lRho, err := e.ls[k].Mul(rho)
		if err != nil {
			return nil, err
		}
		jump, err := lRho.Mul(e.lDags[k])
		if err != nil {
			return nil, err
		}
		anti, err := e.lDagLs[k].Anticommutator(rho)
		if err != nil {
			return nil, err
		}
		diss, err := jump.Sub(anti.Scale(0.5))
		if err != nil {
			return nil, err
		}
		drho, err = drho.Add(diss)
		if err != nil {
			return nil, err
		}
	}

	return rho.Add(drho.Scale(complex(dt, 0)))
}

// enforceContracts restores Hermiticity and unit trace when drift exceeds
// tolerance. Uncorrectable negativity is reported but evolution continues.
func (e *Engine) enforceContracts(rho *qmat.Matrix) *qmat.Matrix {
	if !rho.IsHermitian(e.tol) {
		e.log.Warn().
			Uint64("step", e.steps).
			Msg("Hermiticity drift exceeded tolerance, projecting onto Hermitian part")
		rho = rho.Hermitize()
	}

	tr := real(rho.Trace())
	if math.Abs(tr-1) > e.tol {
		if math.Abs(tr) < 1e-12 {
			// Trace collapsed entirely; renormalizing would divide by zero.
			e.log.Error().
				Uint64("step", e.steps).
				Float64("trace", tr).
				Msg("Density matrix trace collapsed, state left unnormalized")
			return rho
		}
		e.log.Warn().
			Uint64("step", e.steps).
			Float64("trace", tr).
			Msg("Trace drift exceeded tolerance, renormalizing")
		rho = rho.Scale(complex(1/tr, 0))
	}

	for i := 0; i < rho.Dim(); i++ {
		if p := real(rho.At(i, i)); p < -e.tol {
			e.log.Warn().
				Uint64("step", e.steps).
				Int("basis_state", i).
				Float64("population", p).
				Msg("Negative population beyond tolerance after correction")
			break
		}
	}

	return rho
}
