package qmat

// Standard single-qubit operators. Each call returns a fresh 2x2 matrix.

// PauliX returns the bit-flip operator σx.
func PauliX() *Matrix {
	m := Zero(2)
	m.Set(0, 1, 1)
	m.Set(1, 0, 1)
	return m
}

// PauliY returns σy.
func PauliY() *Matrix {
	m := Zero(2)
	m.Set(0, 1, complex(0, -1))
	m.Set(1, 0, complex(0, 1))
	return m
}

// PauliZ returns σz.
func PauliZ() *Matrix {
	m := Zero(2)
	m.Set(0, 0, 1)
	m.Set(1, 1, -1)
	return m
}

// Lowering returns σ- = |0⟩⟨1|, the decay operator used to build
// dissipative Lindblad terms.
func Lowering() *Matrix {
	m := Zero(2)
	m.Set(0, 1, 1)
	return m
}

// Raising returns σ+ = |1⟩⟨0|, the excitation operator.
func Raising() *Matrix {
	m := Zero(2)
	m.Set(1, 0, 1)
	return m
}

// Embed lifts a single-qubit operator into an n-qubit space, acting on the
// qubit at the given bit position with identity everywhere else.
func Embed(g *Matrix, bit, qubits int) *Matrix {
	return Identity(1 << (qubits - 1 - bit)).Kron(g).Kron(Identity(1 << bit))
}

// Projector returns |k⟩⟨k| in a dim-dimensional basis.
func Projector(dim, k int) *Matrix {
	m := Zero(dim)
	m.Set(k, k, 1)
	return m
}
