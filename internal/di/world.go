package di

import (
	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/biome"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

// Default dynamics per qubit: a coherent drive plus a weak decay channel.
const (
	driveStrength = 0.5
	decayRate     = 0.1
)

// seedPairs is the label layout of a fresh world.
var seedPairs = map[string][][2]string{
	"meadow": {{"wheat", "soil"}, {"wheat", "water"}},
	"swamp":  {{"reed", "mud"}},
}

// SeedWorld builds the default biomes of a new game.
func SeedWorld(log zerolog.Logger) ([]*biome.Subsystem, error) {
	names := []string{"meadow", "swamp"}

	subs := make([]*biome.Subsystem, 0, len(names))
	for _, name := range names {
		sub := biome.New(name, log)
		for _, pair := range seedPairs[name] {
			if _, err := sub.AllocateQubit(pair[0], pair[1]); err != nil {
				return nil, err
			}
		}
		if err := AttachDefaultDynamics(sub); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// AttachDefaultDynamics installs the per-qubit drive Hamiltonian and decay
// Lindblad operators sized to the subsystem's current dimension. Operators
// are not persisted in save records, so restores call this too.
func AttachDefaultDynamics(sub *biome.Subsystem) error {
	n := sub.QubitCount()
	if n == 0 {
		return nil
	}

	h := qmat.Zero(sub.Dimension())
	for bit := 0; bit < n; bit++ {
		term := qmat.Embed(qmat.PauliX(), bit, n).Scale(complex(driveStrength, 0))
		sum, err := h.Add(term)
		if err != nil {
			return err
		}
		h = sum
	}
	if err := sub.SetHamiltonian(h); err != nil {
		return err
	}

	for bit := 0; bit < n; bit++ {
		l := qmat.Embed(qmat.Lowering(), bit, n).Scale(complex(decayRate, 0))
		if err := sub.AddLindblad(l); err != nil {
			return err
		}
	}
	return nil
}
