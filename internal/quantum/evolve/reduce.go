package evolve

import (
	"fmt"
	"math"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

// Partial traces and the information-theoretic quantities built on them.
// Qubit q occupies bit q of the basis index: basis state |b_{n-1}...b_1 b_0⟩
// has index Σ b_q << q.

// PartialTraceSingle traces out every qubit except the given one, returning
// the 2x2 reduced density matrix.
func PartialTraceSingle(rho *qmat.Matrix, qubit, numQubits int) (*qmat.Matrix, error) {
	if err := checkQubits(rho, numQubits, qubit); err != nil {
		return nil, err
	}

	reduced := qmat.Zero(2)
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			var sum complex128
			for other := 0; other < 1<<(numQubits-1); other++ {
				row, col := insertBit(other, qubit, a), insertBit(other, qubit, b)
				sum += rho.At(row, col)
			}
			reduced.Set(a, b, sum)
		}
	}
	return reduced, nil
}

// PartialTracePair traces out every qubit except qa and qb, returning the
// 4x4 reduced matrix in the basis |ab⟩ where a is qa's bit and b is qb's.
func PartialTracePair(rho *qmat.Matrix, qa, qb, numQubits int) (*qmat.Matrix, error) {
	if qa == qb {
		return nil, fmt.Errorf("evolve partial trace: identical qubits %d", qa)
	}
	if err := checkQubits(rho, numQubits, qa, qb); err != nil {
		return nil, err
	}

	reduced := qmat.Zero(4)
	for rowAB := 0; rowAB < 4; rowAB++ {
		for colAB := 0; colAB < 4; colAB++ {
			aRow, bRow := (rowAB>>1)&1, rowAB&1
			aCol, bCol := (colAB>>1)&1, colAB&1

			var sum complex128
			for other := 0; other < 1<<(numQubits-2); other++ {
				row := interleave(other, qa, aRow, qb, bRow, numQubits)
				col := interleave(other, qa, aCol, qb, bCol, numQubits)
				sum += rho.At(row, col)
			}
			reduced.Set(rowAB, colAB, sum)
		}
	}
	return reduced, nil
}

// MarginalProbability returns the excited-state population of a qubit, read
// from the diagonal of its reduced density matrix.
func MarginalProbability(rho *qmat.Matrix, qubit, numQubits int) (float64, error) {
	reduced, err := PartialTraceSingle(rho, qubit, numQubits)
	if err != nil {
		return 0, err
	}
	p := real(reduced.At(1, 1))
	return math.Min(1, math.Max(0, p)), nil
}

// VonNeumannEntropy returns S(ρ) = −Σ λ log2 λ in bits, clamped at zero.
func VonNeumannEntropy(rho *qmat.Matrix) float64 {
	const eps = 1e-15

	entropy := 0.0
	for _, lambda := range hermitianEigenvalues(rho) {
		if lambda > eps {
			entropy -= lambda * math.Log2(lambda)
		}
	}
	return math.Max(entropy, 0)
}

// MutualInformation returns I(A:B) = S(A) + S(B) − S(AB) for two qubits.
// Subadditivity guarantees the result is non-negative up to numerical error,
// so it is clamped at zero.
func MutualInformation(rho *qmat.Matrix, qa, qb, numQubits int) (float64, error) {
	ra, err := PartialTraceSingle(rho, qa, numQubits)
	if err != nil {
		return 0, err
	}
	rb, err := PartialTraceSingle(rho, qb, numQubits)
	if err != nil {
		return 0, err
	}
	rab, err := PartialTracePair(rho, qa, qb, numQubits)
	if err != nil {
		return 0, err
	}

	mi := VonNeumannEntropy(ra) + VonNeumannEntropy(rb) - VonNeumannEntropy(rab)
	return math.Max(mi, 0), nil
}

// AllMutualInformation computes MI for every qubit pair in upper-triangular
// order: [mi_01, mi_02, ..., mi_12, ...], n*(n-1)/2 values.
func AllMutualInformation(rho *qmat.Matrix, numQubits int) ([]float64, error) {
	if numQubits < 2 {
		return nil, nil
	}

	out := make([]float64, 0, numQubits*(numQubits-1)/2)
	for i := 0; i < numQubits; i++ {
		for j := i + 1; j < numQubits; j++ {
			mi, err := MutualInformation(rho, i, j, numQubits)
			if err != nil {
				return nil, err
			}
			out = append(out, mi)
		}
	}
	return out, nil
}

// BlochStride is the per-qubit width of a Bloch packet.
const BlochStride = 8

// BlochPacket returns [p0, p1, x, y, z, r, theta, phi] per qubit,
// concatenated in qubit order. The packet feeds the force-graph layout.
func BlochPacket(rho *qmat.Matrix, numQubits int) ([]float64, error) {
	out := make([]float64, 0, numQubits*BlochStride)
	for q := 0; q < numQubits; q++ {
		reduced, err := PartialTraceSingle(rho, q, numQubits)
		if err != nil {
			return nil, err
		}

		p0 := real(reduced.At(0, 0))
		p1 := real(reduced.At(1, 1))
		x := 2 * real(reduced.At(0, 1))
		y := -2 * imag(reduced.At(0, 1))
		z := p0 - p1
		r := math.Sqrt(x*x + y*y + z*z)

		theta := 0.0
		if r > 1e-12 {
			theta = math.Acos(math.Max(-1, math.Min(1, z/r)))
		}
		phi := math.Atan2(y, x)

		out = append(out, p0, p1, x, y, z, r, theta, phi)
	}
	return out, nil
}

func checkQubits(rho *qmat.Matrix, numQubits int, qubits ...int) error {
	if rho.Dim() != 1<<numQubits {
		return fmt.Errorf("evolve partial trace: %w (state dim %d, %d qubits imply %d)",
			qmat.ErrDimensionMismatch, rho.Dim(), numQubits, 1<<numQubits)
	}
	for _, q := range qubits {
		if q < 0 || q >= numQubits {
			return fmt.Errorf("evolve partial trace: qubit %d out of range [0, %d)", q, numQubits)
		}
	}
	return nil
}

// insertBit places bit value v at position q, shifting higher bits of rest up.
func insertBit(rest, q, v int) int {
	low := rest & ((1 << q) - 1)
	high := rest >> q
	return low | v<<q | high<<(q+1)
}

// interleave builds a full basis index from the trace bits and the values of
// two distinguished qubits.
func interleave(rest, qa, va, qb, vb, numQubits int) int {
	idx := 0
	bit := 0
	for q := 0; q < numQubits; q++ {
		switch q {
		case qa:
			idx |= va << q
		case qb:
			idx |= vb << q
		default:
			idx |= ((rest >> bit) & 1) << q
			bit++
		}
	}
	return idx
}
