// Package register maps symbolic label pairs to qubit indices within a
// subsystem's composite basis. The map only ever grows: indices are dense,
// start at zero, and are never reordered or reclaimed, so the Hilbert space
// dimension is always 2^count.
package register

import (
	"errors"
	"fmt"
)

// MaxQubits bounds the index space. 16 qubits already means a 65536-dim
// density matrix; hitting this limit implies an unbounded gameplay loop and
// is treated as a fatal configuration error.
const MaxQubits = 16

// ErrCapacityExhausted is returned when allocating beyond MaxQubits.
var ErrCapacityExhausted = errors.New("register: qubit index space exhausted")

// Pair is an unordered pair of symbolic labels. NewPair normalizes the
// ordering so that (a, b) and (b, a) are the same key.
type Pair struct {
	A string
	B string
}

// NewPair returns the normalized pair for two labels.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Map assigns label pairs to qubit indices, insertion ordered.
type Map struct {
	index map[Pair]int
	order []Pair
}

// New creates an empty register map.
func New() *Map {
	return &Map{index: make(map[Pair]int)}
}

// Allocate returns the qubit index for the pair, inserting it if absent.
// Allocation is idempotent: the same pair always yields the same index and
// repeated calls never change the dimension.
func (m *Map) Allocate(a, b string) (int, error) {
	p := NewPair(a, b)
	if idx, ok := m.index[p]; ok {
		return idx, nil
	}
	if len(m.order) >= MaxQubits {
		return 0, fmt.Errorf("%w (max %d)", ErrCapacityExhausted, MaxQubits)
	}
	idx := len(m.order)
	m.index[p] = idx
	m.order = append(m.order, p)
	return idx, nil
}

// Has reports whether the pair has been allocated.
func (m *Map) Has(a, b string) bool {
	_, ok := m.index[NewPair(a, b)]
	return ok
}

// IndexOf returns the allocated index for the pair, if any.
func (m *Map) IndexOf(a, b string) (int, bool) {
	idx, ok := m.index[NewPair(a, b)]
	return idx, ok
}

// Count returns the number of allocated qubits.
func (m *Map) Count() int { return len(m.order) }

// Dimension returns 2^count, the Hilbert space dimension implied by the
// allocated qubits. An empty map has dimension 1 (the trivial space).
func (m *Map) Dimension() int { return 1 << len(m.order) }

// Pairs returns the allocated pairs in insertion order.
func (m *Map) Pairs() []Pair {
	out := make([]Pair, len(m.order))
	copy(out, m.order)
	return out
}
