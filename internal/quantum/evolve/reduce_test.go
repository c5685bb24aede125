package evolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

// product state |1>|0> on two qubits (qubit 0 excited)
func productState() *qmat.Matrix {
	q0 := qmat.Projector(2, 1)
	q1 := qmat.Projector(2, 0)
	// qubit 0 occupies the low bit, so it is the right Kron factor
	return q1.Kron(q0)
}

// maximally entangled Bell state (|00> + |11>)/sqrt2 as a density matrix
func bellState() *qmat.Matrix {
	rho := qmat.Zero(4)
	for _, i := range []int{0, 3} {
		for _, j := range []int{0, 3} {
			rho.Set(i, j, 0.5)
		}
	}
	return rho
}

func TestPartialTraceSingle(t *testing.T) {
	t.Run("product state marginals", func(t *testing.T) {
		rho := productState()

		r0, err := PartialTraceSingle(rho, 0, 2)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, real(r0.At(0, 0)), 1e-12)
		assert.InDelta(t, 1.0, real(r0.At(1, 1)), 1e-12)

		r1, err := PartialTraceSingle(rho, 1, 2)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, real(r1.At(0, 0)), 1e-12)
	})

	t.Run("bell state marginal is maximally mixed", func(t *testing.T) {
		r0, err := PartialTraceSingle(bellState(), 0, 2)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, real(r0.At(0, 0)), 1e-12)
		assert.InDelta(t, 0.5, real(r0.At(1, 1)), 1e-12)
		assert.InDelta(t, 0.0, real(r0.At(0, 1)), 1e-12)
	})

	t.Run("reduced trace is one", func(t *testing.T) {
		r, err := PartialTraceSingle(bellState(), 1, 2)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, real(r.Trace()), 1e-12)
	})

	t.Run("qubit out of range", func(t *testing.T) {
		_, err := PartialTraceSingle(bellState(), 2, 2)
		assert.Error(t, err)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := PartialTraceSingle(qmat.Identity(3), 0, 2)
		assert.ErrorIs(t, err, qmat.ErrDimensionMismatch)
	})
}

func TestPartialTracePair(t *testing.T) {
	// Three qubits: qubits 0, 2 in |1>, qubit 1 in |0>. Tracing out qubit 1
	// leaves |11><11| on the (0, 2) pair, basis |ab> with a = qubit 0.
	rho := qmat.Projector(8, 0b101)

	r, err := PartialTracePair(rho, 0, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 4, r.Dim())
	assert.InDelta(t, 1.0, real(r.At(3, 3)), 1e-12)
	assert.InDelta(t, 1.0, real(r.Trace()), 1e-12)

	_, err = PartialTracePair(rho, 1, 1, 3)
	assert.Error(t, err)
}

func TestMarginalProbability(t *testing.T) {
	p, err := MarginalProbability(productState(), 0, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p, 1e-12)

	p, err = MarginalProbability(productState(), 1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, p, 1e-12)
}

func TestVonNeumannEntropy(t *testing.T) {
	t.Run("pure state has zero entropy", func(t *testing.T) {
		assert.InDelta(t, 0.0, VonNeumannEntropy(qmat.Projector(2, 0)), 1e-9)
	})

	t.Run("maximally mixed qubit has one bit", func(t *testing.T) {
		assert.InDelta(t, 1.0, VonNeumannEntropy(qmat.Identity(2).Scale(0.5)), 1e-9)
	})

	t.Run("maximally mixed two qubits have two bits", func(t *testing.T) {
		assert.InDelta(t, 2.0, VonNeumannEntropy(qmat.Identity(4).Scale(0.25)), 1e-9)
	})
}

func TestMutualInformation(t *testing.T) {
	t.Run("product state has zero MI", func(t *testing.T) {
		mi, err := MutualInformation(productState(), 0, 1, 2)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, mi, 1e-9)
	})

	t.Run("bell state has two bits", func(t *testing.T) {
		mi, err := MutualInformation(bellState(), 0, 1, 2)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, mi, 1e-9)
	})
}

func TestAllMutualInformation(t *testing.T) {
	t.Run("upper triangle ordering", func(t *testing.T) {
		mis, err := AllMutualInformation(qmat.Identity(8).Scale(complex(1.0/8, 0)), 3)
		require.NoError(t, err)
		require.Len(t, mis, 3) // pairs (0,1), (0,2), (1,2)
		for _, mi := range mis {
			assert.InDelta(t, 0.0, mi, 1e-9)
		}
	})

	t.Run("fewer than two qubits", func(t *testing.T) {
		mis, err := AllMutualInformation(qmat.Identity(2).Scale(0.5), 1)
		require.NoError(t, err)
		assert.Empty(t, mis)
	})
}

func TestBlochPacket(t *testing.T) {
	packet, err := BlochPacket(productState(), 2)
	require.NoError(t, err)
	require.Len(t, packet, 2*BlochStride)

	// Qubit 0 is excited: p1 = 1, z = -1, radius 1
	assert.InDelta(t, 0.0, packet[0], 1e-12) // p0
	assert.InDelta(t, 1.0, packet[1], 1e-12) // p1
	assert.InDelta(t, -1.0, packet[4], 1e-12) // z
	assert.InDelta(t, 1.0, packet[5], 1e-12)  // r

	// Qubit 1 is ground: z = +1
	assert.InDelta(t, 1.0, packet[BlochStride+4], 1e-12)
}
