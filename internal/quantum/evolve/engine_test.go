package evolve

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

const eps = 1e-6

func newTestEngine(t *testing.T, h *qmat.Matrix, ls []*qmat.Matrix) *Engine {
	t.Helper()
	e := New(zerolog.Nop())
	require.NoError(t, e.Configure(h, ls))
	require.NoError(t, e.Finalize())
	return e
}

// diagonal Hamiltonian H = diag(0, 1, 2, 3) on two qubits
func diagHamiltonian() *qmat.Matrix {
	h := qmat.Zero(4)
	for i := 0; i < 4; i++ {
		h.Set(i, i, complex(float64(i), 0))
	}
	return h
}

// |00><00| on two qubits
func groundState() *qmat.Matrix {
	return qmat.Projector(4, 0)
}

// A slightly entangling two-qubit Hamiltonian: σx ⊗ I + I ⊗ σx + σz ⊗ σz.
func couplingHamiltonian() *qmat.Matrix {
	id := qmat.Identity(2)
	h := qmat.PauliX().Kron(id)
	h, _ = h.Add(id.Kron(qmat.PauliX()))
	h, _ = h.Add(qmat.PauliZ().Kron(qmat.PauliZ()))
	return h
}

func TestConfigureErrors(t *testing.T) {
	e := New(zerolog.Nop())

	t.Run("nothing configured", func(t *testing.T) {
		err := e.Configure(nil, nil)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("lindblad dimension mismatch", func(t *testing.T) {
		err := e.Configure(diagHamiltonian(), []*qmat.Matrix{qmat.Lowering()})
		require.Error(t, err)
		assert.ErrorIs(t, err, qmat.ErrDimensionMismatch)

		// Engine stays unusable until reconfigured
		_, stepErr := e.EvolveStep(groundState(), 0.01)
		assert.ErrorIs(t, stepErr, ErrNotFinalized)
	})

	t.Run("non-hermitian hamiltonian", func(t *testing.T) {
		bad := qmat.Zero(2)
		bad.Set(0, 1, complex(1, 0)) // missing conjugate partner
		err := e.Configure(bad, nil)
		assert.Error(t, err)
	})

	t.Run("recovers after reconfigure", func(t *testing.T) {
		require.NoError(t, e.Configure(diagHamiltonian(), nil))
		require.NoError(t, e.Finalize())
		_, err := e.EvolveStep(groundState(), 0.01)
		assert.NoError(t, err)
	})
}

func TestEvolveStepRequiresFinalize(t *testing.T) {
	e := New(zerolog.Nop())
	require.NoError(t, e.Configure(diagHamiltonian(), nil))

	_, err := e.EvolveStep(groundState(), 0.01)
	assert.ErrorIs(t, err, ErrNotFinalized)
}

func TestCommutingHamiltonianStationarity(t *testing.T) {
	// H = diag(0,1,2,3) and ρ = |00><00| commute, so any dt leaves ρ fixed.
	e := newTestEngine(t, diagHamiltonian(), nil)
	rho := groundState()

	for _, dt := range []float64{0.001, 0.1, 1.0} {
		got, err := e.EvolveStep(rho, dt)
		require.NoError(t, err)
		assert.True(t, got.EqualApprox(rho, eps), "dt=%v", dt)
	}
}

func TestTraceAndHermiticityPreservation(t *testing.T) {
	decay := qmat.Lowering().Kron(qmat.Identity(2)).Scale(complex(0.3, 0))
	e := newTestEngine(t, couplingHamiltonian(), []*qmat.Matrix{decay})

	rho := qmat.Projector(4, 3) // |11><11|
	for i := 0; i < 200; i++ {
		next, err := e.Evolve(rho, 0.1, 0.02)
		require.NoError(t, err)
		rho = next
	}

	assert.InDelta(t, 1.0, real(rho.Trace()), eps)
	assert.InDelta(t, 0.0, imag(rho.Trace()), eps)
	assert.True(t, rho.IsHermitian(eps))
	assert.EqualValues(t, 1000, e.Steps()) // 200 calls x 5 substeps
}

func TestDissipationDecaysExcitedState(t *testing.T) {
	// Pure amplitude damping on one qubit drives |1><1| toward |0><0|.
	e := newTestEngine(t, nil, []*qmat.Matrix{qmat.Lowering()})

	rho := qmat.Projector(2, 1)
	for i := 0; i < 100; i++ {
		next, err := e.Evolve(rho, 0.1, 0.02)
		require.NoError(t, err)
		rho = next
	}

	assert.Greater(t, real(rho.At(0, 0)), 0.99)
	assert.Less(t, real(rho.At(1, 1)), 0.01)
}

func TestEvolveSubcycles(t *testing.T) {
	e := newTestEngine(t, couplingHamiltonian(), nil)
	rho := groundState()

	// A large step subcycled to the stability bound stays a valid state;
	// a single raw Euler step of the same size would drift far more.
	got, err := e.Evolve(rho, 1.0, 0.02)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, real(got.Trace()), eps)
	assert.True(t, got.IsHermitian(eps))
}

func TestEvolveStepPure(t *testing.T) {
	e := newTestEngine(t, couplingHamiltonian(), nil)
	rho := groundState()
	before := rho.Clone()

	a, err := e.EvolveStep(rho, 0.05)
	require.NoError(t, err)
	b, err := e.EvolveStep(rho, 0.05)
	require.NoError(t, err)

	// Input untouched, identical inputs give identical outputs.
	assert.True(t, rho.EqualApprox(before, 0))
	assert.True(t, a.EqualApprox(b, 0))
}

func TestEvolveStepDimensionMismatch(t *testing.T) {
	e := newTestEngine(t, diagHamiltonian(), nil)
	_, err := e.EvolveStep(qmat.Projector(2, 0), 0.01)
	assert.ErrorIs(t, err, qmat.ErrDimensionMismatch)
}

func TestUnitaryPopulationTransfer(t *testing.T) {
	// H = σx rotates |0> toward |1>; after evolution some population must
	// have moved while the trace stays 1.
	e := newTestEngine(t, qmat.PauliX(), nil)

	rho := qmat.Projector(2, 0)
	for i := 0; i < 10; i++ {
		next, err := e.Evolve(rho, 0.1, 0.01)
		require.NoError(t, err)
		rho = next
	}

	assert.Greater(t, real(rho.At(1, 1)), 0.1)
	assert.InDelta(t, 1.0, real(rho.Trace()), eps)
	assert.False(t, math.IsNaN(real(rho.At(0, 0))))
}
