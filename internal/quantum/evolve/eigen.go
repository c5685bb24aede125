package evolve

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

// hermitianEigenvalues returns the eigenvalues of a Hermitian matrix in
// ascending order. gonum's EigenSym handles real symmetric matrices only, so
// the complex Hermitian matrix A = X + iY is embedded as the real symmetric
//
//	[ X  -Y ]
//	[ Y   X ]
//
// whose spectrum is A's with every eigenvalue doubled; the doubles are
// adjacent after sorting and every second value is kept.
func hermitianEigenvalues(m *qmat.Matrix) []float64 {
	n := m.Dim()
	data := make([]float64, 2*n*2*n)
	at := func(i, j int) *float64 { return &data[i*2*n+j] }

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.At(i, j)
			*at(i, j) = real(v)
			*at(n+i, n+j) = real(v)
			*at(i, n+j) = -imag(v)
			*at(n+i, j) = imag(v)
		}
	}

	sym := mat.NewSymDense(2*n, data)
	var es mat.EigenSym
	if !es.Factorize(sym, false) {
		// Factorization failing on a finite Hermitian input would indicate a
		// corrupted state; report an empty spectrum (entropy 0) rather than
		// propagate garbage.
		return nil
	}

	values := es.Values(nil)
	sort.Float64s(values)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = values[2*i]
	}
	return out
}
