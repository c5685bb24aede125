package qmat

import "fmt"

// Pack serializes the matrix as a flat row-major sequence of (re, im)
// float64 pairs. This is the wire format shared with the persisted state
// records: element (i, j) occupies indices (i*dim+j)*2 and (i*dim+j)*2+1.
func (m *Matrix) Pack() []float64 {
	out := make([]float64, m.dim*m.dim*2)
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			v := m.d.At(i, j)
			idx := (i*m.dim + j) * 2
			out[idx] = real(v)
			out[idx+1] = imag(v)
		}
	}
	return out
}

// Unpack rebuilds a matrix from the Pack wire format. The explicit dim is
// validated against the payload length; a mismatch is a hard failure.
func Unpack(dim int, data []float64) (*Matrix, error) {
	if dim < 1 {
		return nil, fmt.Errorf("qmat unpack: invalid dimension %d", dim)
	}
	if len(data) != dim*dim*2 {
		return nil, fmt.Errorf("qmat unpack: want %d floats for dim %d, got %d", dim*dim*2, dim, len(data))
	}
	m := Zero(dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			idx := (i*dim + j) * 2
			m.d.Set(i, j, complex(data[idx], data[idx+1]))
		}
	}
	return m, nil
}
