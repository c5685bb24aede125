// Package qmat provides the dense complex matrix primitive used by the
// quantum evolution engine. Matrices are always square; density matrices and
// Hamiltonians are additionally Hermitian, which callers verify through
// IsHermitian. All operations are pure: results are freshly allocated and
// never alias an operand.
package qmat

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when two operands of a binary operation
// have different dimensions.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// ErrNotFinite is returned when a matrix contains NaN or Inf entries.
var ErrNotFinite = errors.New("matrix contains non-finite entries")

// Matrix is a square complex matrix backed by a gonum CDense.
type Matrix struct {
	d   *mat.CDense
	dim int
}

// Zero returns a dim x dim zero matrix.
func Zero(dim int) *Matrix {
	if dim < 1 {
		panic(fmt.Sprintf("qmat: invalid dimension %d", dim))
	}
	return &Matrix{d: mat.NewCDense(dim, dim, nil), dim: dim}
}

// Identity returns the dim x dim identity matrix.
func Identity(dim int) *Matrix {
	m := Zero(dim)
	for i := 0; i < dim; i++ {
		m.d.Set(i, i, 1)
	}
	return m
}

// FromSlice builds a matrix from row-major complex data.
func FromSlice(dim int, data []complex128) (*Matrix, error) {
	if len(data) != dim*dim {
		return nil, fmt.Errorf("qmat: want %d elements for dim %d, got %d", dim*dim, dim, len(data))
	}
	buf := make([]complex128, len(data))
	copy(buf, data)
	return &Matrix{d: mat.NewCDense(dim, dim, buf), dim: dim}, nil
}

// Dim returns the matrix dimension.
func (m *Matrix) Dim() int { return m.dim }

// At returns the element at (i, j).
func (m *Matrix) At(i, j int) complex128 { return m.d.At(i, j) }

// Set assigns the element at (i, j). It is the only mutating method and is
// used during state construction, never on matrices shared across threads.
func (m *Matrix) Set(i, j int, v complex128) { m.d.Set(i, j, v) }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := Zero(m.dim)
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			out.d.Set(i, j, m.d.At(i, j))
		}
	}
	return out
}

// Mul returns m * other.
func (m *Matrix) Mul(other *Matrix) (*Matrix, error) {
	if m.dim != other.dim {
		return nil, fmt.Errorf("qmat mul: %w (%d vs %d)", ErrDimensionMismatch, m.dim, other.dim)
	}
	out := Zero(m.dim)
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			var sum complex128
			for k := 0; k < m.dim; k++ {
				sum += m.d.At(i, k) * other.d.At(k, j)
			}
			out.d.Set(i, j, sum)
		}
	}
	return out, nil
}

// Add returns m + other.
func (m *Matrix) Add(other *Matrix) (*Matrix, error) {
	if m.dim != other.dim {
		return nil, fmt.Errorf("qmat add: %w (%d vs %d)", ErrDimensionMismatch, m.dim, other.dim)
	}
	out := Zero(m.dim)
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			out.d.Set(i, j, m.d.At(i, j)+other.d.At(i, j))
		}
	}
	return out, nil
}

// Sub returns m - other.
func (m *Matrix) Sub(other *Matrix) (*Matrix, error) {
	if m.dim != other.dim {
		return nil, fmt.Errorf("qmat sub: %w (%d vs %d)", ErrDimensionMismatch, m.dim, other.dim)
	}
	out := Zero(m.dim)
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			out.d.Set(i, j, m.d.At(i, j)-other.d.At(i, j))
		}
	}
	return out, nil
}

// Scale returns z * m.
func (m *Matrix) Scale(z complex128) *Matrix {
	out := Zero(m.dim)
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			out.d.Set(i, j, z*m.d.At(i, j))
		}
	}
	return out
}

// Dagger returns the conjugate transpose m†.
func (m *Matrix) Dagger() *Matrix {
	out := Zero(m.dim)
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			out.d.Set(j, i, cmplx.Conj(m.d.At(i, j)))
		}
	}
	return out
}

// Kron returns the tensor product m ⊗ other, combining two subsystems'
// bases into a matrix of dimension m.Dim() * other.Dim().
func (m *Matrix) Kron(other *Matrix) *Matrix {
	n, p := m.dim, other.dim
	out := Zero(n * p)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a := m.d.At(i, j)
			if a == 0 {
				continue
			}
			for k := 0; k < p; k++ {
				for l := 0; l < p; l++ {
					out.d.Set(i*p+k, j*p+l, a*other.d.At(k, l))
				}
			}
		}
	}
	return out
}

// Commutator returns [m, other] = m*other - other*m.
func (m *Matrix) Commutator(other *Matrix) (*Matrix, error) {
	ab, err := m.Mul(other)
	if err != nil {
		return nil, err
	}
	ba, err := other.Mul(m)
	if err != nil {
		return nil, err
	}
	return ab.Sub(ba)
}

// Anticommutator returns {m, other} = m*other + other*m.
func (m *Matrix) Anticommutator(other *Matrix) (*Matrix, error) {
	ab, err := m.Mul(other)
	if err != nil {
		return nil, err
	}
	ba, err := other.Mul(m)
	if err != nil {
		return nil, err
	}
	return ab.Add(ba)
}

// Trace returns the sum of diagonal elements.
func (m *Matrix) Trace() complex128 {
	var tr complex128
	for i := 0; i < m.dim; i++ {
		tr += m.d.At(i, i)
	}
	return tr
}

// Purity returns Tr(m²) as a real number, clamped at zero. For a density
// matrix this is 1 for pure states and 1/dim for the maximally mixed state.
func (m *Matrix) Purity() float64 {
	sq, _ := m.Mul(m)
	p := real(sq.Trace())
	return math.Max(0, p)
}

// IsHermitian reports whether m equals its conjugate transpose within tol.
func (m *Matrix) IsHermitian(tol float64) bool {
	for i := 0; i < m.dim; i++ {
		for j := i; j < m.dim; j++ {
			if cmplx.Abs(m.d.At(i, j)-cmplx.Conj(m.d.At(j, i))) > tol {
				return false
			}
		}
	}
	return true
}

// Hermitize returns (m + m†)/2, projecting onto the Hermitian part. Used by
// the evolution engine to correct accumulated numerical drift.
func (m *Matrix) Hermitize() *Matrix {
	out := Zero(m.dim)
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			out.d.Set(i, j, (m.d.At(i, j)+cmplx.Conj(m.d.At(j, i)))/2)
		}
	}
	return out
}

// CheckFinite returns ErrNotFinite if any entry is NaN or Inf. NaN must not
// propagate silently into the evolution loop.
func (m *Matrix) CheckFinite() error {
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			v := m.d.At(i, j)
			if math.IsNaN(real(v)) || math.IsNaN(imag(v)) ||
				math.IsInf(real(v), 0) || math.IsInf(imag(v), 0) {
				return fmt.Errorf("%w at (%d, %d)", ErrNotFinite, i, j)
			}
		}
	}
	return nil
}

// EqualApprox reports element-wise equality within tol.
func (m *Matrix) EqualApprox(other *Matrix, tol float64) bool {
	if m.dim != other.dim {
		return false
	}
	return mat.CEqualApprox(m.d, other.d, tol)
}
