package biome

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

func TestAllocateQubitGrowsState(t *testing.T) {
	s := New("meadow", zerolog.Nop())
	require.Equal(t, 1, s.Dimension())

	idx, err := s.AllocateQubit("wheat", "soil")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 2, s.Dimension())
	assert.Equal(t, 2, s.Rho().Dim())
	assert.Equal(t, 2, s.Hamiltonian().Dim())

	_, err = s.AllocateQubit("wheat", "water")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Dimension())

	// The grown state is still a valid density matrix
	assert.InDelta(t, 1.0, real(s.Rho().Trace()), 1e-12)
	assert.True(t, s.Rho().IsHermitian(1e-12))
}

func TestAllocateQubitIdempotent(t *testing.T) {
	s := New("meadow", zerolog.Nop())

	first, err := s.AllocateQubit("wheat", "soil")
	require.NoError(t, err)
	again, err := s.AllocateQubit("soil", "wheat")
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.Equal(t, 2, s.Dimension())
}

func TestReEmbeddingPreservesOperators(t *testing.T) {
	s := New("meadow", zerolog.Nop())
	_, err := s.AllocateQubit("wheat", "soil")
	require.NoError(t, err)

	require.NoError(t, s.SetHamiltonian(qmat.PauliZ()))
	require.NoError(t, s.AddLindblad(qmat.Lowering()))

	// Growing the basis tensor-extends H and L with identity
	_, err = s.AllocateQubit("wheat", "water")
	require.NoError(t, err)

	h := s.Hamiltonian()
	assert.Equal(t, 4, h.Dim())
	assert.True(t, h.IsHermitian(1e-12))
	want := qmat.PauliZ().Kron(qmat.Identity(2))
	assert.True(t, h.EqualApprox(want, 1e-12))

	ls := s.Lindblads()
	require.Len(t, ls, 1)
	assert.Equal(t, 4, ls[0].Dim())
}

func TestOperatorDimensionChecks(t *testing.T) {
	s := New("meadow", zerolog.Nop())
	_, err := s.AllocateQubit("wheat", "soil")
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetHamiltonian(qmat.Identity(4)), qmat.ErrDimensionMismatch)
	assert.ErrorIs(t, s.AddLindblad(qmat.Identity(4)), qmat.ErrDimensionMismatch)
	assert.ErrorIs(t, s.SetRho(qmat.Identity(4)), qmat.ErrDimensionMismatch)
}

func TestProbability(t *testing.T) {
	s := New("meadow", zerolog.Nop())
	_, err := s.AllocateQubit("wheat", "soil")
	require.NoError(t, err)
	_, err = s.AllocateQubit("wheat", "water")
	require.NoError(t, err)

	// Fresh qubits start in the ground state
	p, err := s.Probability("wheat", "soil")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, p, 1e-12)

	// Excite the second qubit (low bit): basis index 0b01
	rho := qmat.Projector(4, 1)
	require.NoError(t, s.SetRho(rho))

	p, err = s.Probability("wheat", "water")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p, 1e-12)

	p, err = s.Probability("wheat", "soil")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, p, 1e-12)

	_, err = s.Probability("never", "allocated")
	assert.Error(t, err)
}

func TestForgetKeepsQuantumState(t *testing.T) {
	s := New("meadow", zerolog.Nop())
	_, err := s.AllocateQubit("wheat", "soil")
	require.NoError(t, err)
	require.True(t, s.IsActive("wheat", "soil"))

	dimBefore := s.Dimension()
	s.Forget("soil", "wheat")

	assert.False(t, s.IsActive("wheat", "soil"))
	// The matrix never shrinks and the qubit stays addressable
	assert.Equal(t, dimBefore, s.Dimension())
	_, err = s.Probability("wheat", "soil")
	assert.NoError(t, err)
}
