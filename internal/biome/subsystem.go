// Package biome is the gameplay-facing wrapper around one independently
// evolving quantum subsystem. It owns the register map, the density matrix,
// the Hamiltonian and the Lindblad operators, and keeps their dimensions in
// lockstep as gameplay lazily allocates qubits. Re-embedding operators into
// the grown basis is this package's responsibility, not the evolution
// kernel's.
package biome

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/evolve"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/register"
)

// Subsystem is one biome (or a player-vocabulary tracker): a register map
// plus ρ, H and L operators, all of matching dimension.
type Subsystem struct {
	name string
	log  zerolog.Logger

	registers *register.Map
	h         *qmat.Matrix
	lindblads []*qmat.Matrix

	// rho is published by the simulation thread and read by observers
	// (HTTP handlers, autosave). Evolved states are never mutated after
	// publication, so only the pointer swap needs the lock.
	rhoMu sync.RWMutex
	rho   *qmat.Matrix

	// Associations the gameplay layer still considers active. Forgetting
	// removes an entry here but deliberately keeps the qubit and its
	// amplitudes in place; matrices never shrink.
	active map[register.Pair]bool
}

// New creates an empty subsystem with the trivial one-dimensional state.
func New(name string, log zerolog.Logger) *Subsystem {
	s := &Subsystem{
		name:      name,
		log:       log.With().Str("component", "biome").Str("biome", name).Logger(),
		registers: register.New(),
		rho:       qmat.Identity(1),
		h:         qmat.Zero(1),
		active:    make(map[register.Pair]bool),
	}
	return s
}

// Name returns the subsystem name.
func (s *Subsystem) Name() string { return s.name }

// Dimension returns the current Hilbert space dimension.
func (s *Subsystem) Dimension() int { return s.registers.Dimension() }

// QubitCount returns the number of allocated qubits.
func (s *Subsystem) QubitCount() int { return s.registers.Count() }

// Rho returns the externally visible current density matrix.
func (s *Subsystem) Rho() *qmat.Matrix {
	s.rhoMu.RLock()
	defer s.rhoMu.RUnlock()
	return s.rho
}

// SetRho replaces the visible density matrix; dimension must match. Called
// by the batcher once per tick with the next evolved state.
func (s *Subsystem) SetRho(rho *qmat.Matrix) error {
	if rho.Dim() != s.Dimension() {
		return fmt.Errorf("biome %s: %w (state %d vs subsystem %d)",
			s.name, qmat.ErrDimensionMismatch, rho.Dim(), s.Dimension())
	}
	s.rhoMu.Lock()
	s.rho = rho
	s.rhoMu.Unlock()
	return nil
}

// Hamiltonian returns the current Hamiltonian.
func (s *Subsystem) Hamiltonian() *qmat.Matrix { return s.h }

// Lindblads returns the current Lindblad operators.
func (s *Subsystem) Lindblads() []*qmat.Matrix {
	out := make([]*qmat.Matrix, len(s.lindblads))
	copy(out, s.lindblads)
	return out
}

// Registers returns the register map.
func (s *Subsystem) Registers() *register.Map { return s.registers }

// AllocateQubit assigns (or looks up) the qubit for a label pair. On first
// allocation the state grows: ρ is tensor-extended with |0⟩⟨0|, H and every
// Lindblad operator with the identity, so existing amplitudes and dynamics
// are untouched.
func (s *Subsystem) AllocateQubit(a, b string) (int, error) {
	pair := register.NewPair(a, b)
	if idx, ok := s.registers.IndexOf(a, b); ok {
		s.active[pair] = true
		return idx, nil
	}

	idx, err := s.registers.Allocate(a, b)
	if err != nil {
		return 0, fmt.Errorf("biome %s: %w", s.name, err)
	}
	s.active[pair] = true

	// New qubit occupies the low bit of the grown basis, so the fresh
	// single-qubit factor is the right Kron operand.
	s.rhoMu.Lock()
	s.rho = s.rho.Kron(qmat.Projector(2, 0))
	s.rhoMu.Unlock()
	s.h = s.h.Kron(qmat.Identity(2))
	for i, l := range s.lindblads {
		s.lindblads[i] = l.Kron(qmat.Identity(2))
	}

	s.log.Debug().
		Str("label_a", a).
		Str("label_b", b).
		Int("qubit", idx).
		Int("dimension", s.Dimension()).
		Msg("Allocated qubit")
	return idx, nil
}

// qubitFor maps an allocated pair to the bit position it occupies. The
// register assigns indices in allocation order, but Kron extension places
// each new qubit at the low bit, so register index i sits at bit count-1-i.
func (s *Subsystem) qubitFor(a, b string) (int, error) {
	idx, ok := s.registers.IndexOf(a, b)
	if !ok {
		return 0, fmt.Errorf("biome %s: no qubit for pair (%s, %s)", s.name, a, b)
	}
	return s.registers.Count() - 1 - idx, nil
}

// SetHamiltonian replaces the Hamiltonian; dimension must match.
func (s *Subsystem) SetHamiltonian(h *qmat.Matrix) error {
	if h.Dim() != s.Dimension() {
		return fmt.Errorf("biome %s: Hamiltonian %w (%d vs %d)",
			s.name, qmat.ErrDimensionMismatch, h.Dim(), s.Dimension())
	}
	s.h = h.Clone()
	return nil
}

// AddLindblad appends a dissipative operator; dimension must match.
func (s *Subsystem) AddLindblad(l *qmat.Matrix) error {
	if l.Dim() != s.Dimension() {
		return fmt.Errorf("biome %s: Lindblad %w (%d vs %d)",
			s.name, qmat.ErrDimensionMismatch, l.Dim(), s.Dimension())
	}
	s.lindblads = append(s.lindblads, l.Clone())
	return nil
}

// Forget removes a learned association from the active list. The qubit
// index and the density-matrix amplitudes stay: the matrix never shrinks.
func (s *Subsystem) Forget(a, b string) {
	pair := register.NewPair(a, b)
	if s.active[pair] {
		delete(s.active, pair)
		s.log.Debug().
			Str("label_a", pair.A).
			Str("label_b", pair.B).
			Msg("Forgot association, quantum state retained")
	}
}

// IsActive reports whether the association is still active.
func (s *Subsystem) IsActive(a, b string) bool {
	return s.active[register.NewPair(a, b)]
}

// Probability returns the excited-state population of the qubit associated
// with the label pair, from the diagonal of its reduced density matrix.
func (s *Subsystem) Probability(a, b string) (float64, error) {
	q, err := s.qubitFor(a, b)
	if err != nil {
		return 0, err
	}
	return evolve.MarginalProbability(s.Rho(), q, s.QubitCount())
}

// MutualInformation returns the pairwise MI over all qubits in upper
// triangular order, for visualization consumers.
func (s *Subsystem) MutualInformation() ([]float64, error) {
	return evolve.AllMutualInformation(s.Rho(), s.QubitCount())
}

// BlochPacket returns the per-qubit Bloch data for visualization.
func (s *Subsystem) BlochPacket() ([]float64, error) {
	return evolve.BlochPacket(s.Rho(), s.QubitCount())
}
