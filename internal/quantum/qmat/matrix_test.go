package qmat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-12

func TestIdentity(t *testing.T) {
	id := Identity(4)

	assert.Equal(t, 4, id.Dim())
	assert.Equal(t, complex128(4), id.Trace())
	assert.True(t, id.IsHermitian(tol))
}

func TestMul(t *testing.T) {
	t.Run("identity is neutral", func(t *testing.T) {
		x := PauliX()
		got, err := x.Mul(Identity(2))
		require.NoError(t, err)
		assert.True(t, got.EqualApprox(x, tol))
	})

	t.Run("pauli algebra", func(t *testing.T) {
		// σx σy = i σz
		got, err := PauliX().Mul(PauliY())
		require.NoError(t, err)
		want := PauliZ().Scale(complex(0, 1))
		assert.True(t, got.EqualApprox(want, tol))
	})

	t.Run("composite dimension", func(t *testing.T) {
		// (σx ⊗ σy)(σx ⊗ σy) = I₄, checking the product beyond 2x2.
		a := PauliX().Kron(PauliY())
		got, err := a.Mul(a)
		require.NoError(t, err)
		assert.True(t, got.EqualApprox(Identity(4), tol))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := PauliX().Mul(Identity(4))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestDagger(t *testing.T) {
	m, err := FromSlice(2, []complex128{
		complex(1, 2), complex(3, 4),
		complex(5, 6), complex(7, 8),
	})
	require.NoError(t, err)

	d := m.Dagger()
	assert.Equal(t, complex(1, -2), d.At(0, 0))
	assert.Equal(t, complex(5, -6), d.At(0, 1))
	assert.Equal(t, complex(3, -4), d.At(1, 0))

	// (m†)† = m
	assert.True(t, d.Dagger().EqualApprox(m, tol))
}

func TestKron(t *testing.T) {
	got := PauliZ().Kron(Identity(2))

	assert.Equal(t, 4, got.Dim())
	assert.Equal(t, complex128(1), got.At(0, 0))
	assert.Equal(t, complex128(1), got.At(1, 1))
	assert.Equal(t, complex128(-1), got.At(2, 2))
	assert.Equal(t, complex128(-1), got.At(3, 3))
}

func TestCommutator(t *testing.T) {
	t.Run("commuting matrices", func(t *testing.T) {
		c, err := PauliZ().Commutator(Identity(2))
		require.NoError(t, err)
		assert.True(t, c.EqualApprox(Zero(2), tol))
	})

	t.Run("pauli commutator", func(t *testing.T) {
		// [σx, σy] = 2i σz
		c, err := PauliX().Commutator(PauliY())
		require.NoError(t, err)
		want := PauliZ().Scale(complex(0, 2))
		assert.True(t, c.EqualApprox(want, tol))
	})
}

func TestHermitize(t *testing.T) {
	m, err := FromSlice(2, []complex128{
		complex(1, 0.1), complex(0.5, 0.2),
		complex(0.5, -0.1), complex(0, 0),
	})
	require.NoError(t, err)
	require.False(t, m.IsHermitian(tol))

	h := m.Hermitize()
	assert.True(t, h.IsHermitian(tol))
}

func TestPurity(t *testing.T) {
	t.Run("pure state", func(t *testing.T) {
		rho := Projector(4, 0)
		assert.InDelta(t, 1.0, rho.Purity(), tol)
	})

	t.Run("maximally mixed", func(t *testing.T) {
		rho := Identity(4).Scale(0.25)
		assert.InDelta(t, 0.25, rho.Purity(), tol)
	})
}

func TestCheckFinite(t *testing.T) {
	m := Identity(2)
	require.NoError(t, m.CheckFinite())

	m.Set(0, 1, complex(math.NaN(), 0))
	assert.ErrorIs(t, m.CheckFinite(), ErrNotFinite)
}

func TestPackRoundTrip(t *testing.T) {
	m, err := FromSlice(2, []complex128{
		complex(0.7, 0), complex(0.1, -0.2),
		complex(0.1, 0.2), complex(0.3, 0),
	})
	require.NoError(t, err)

	packed := m.Pack()
	require.Len(t, packed, 8)

	got, err := Unpack(2, packed)
	require.NoError(t, err)
	assert.True(t, got.EqualApprox(m, tol))
}

func TestUnpackValidation(t *testing.T) {
	_, err := Unpack(2, make([]float64, 7))
	assert.Error(t, err)

	_, err = Unpack(0, nil)
	assert.Error(t, err)
}
