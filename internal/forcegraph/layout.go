// Package forcegraph computes force-directed 2D positions for qubit bubbles
// from evolution observables. Three quantum-driven springs (purity radial,
// phase angular, mutual-information attraction) plus pairwise repulsion,
// integrated with damped explicit steps. Pure layout math: no goroutines,
// no shared state, the caller owns the position buffers.
package forcegraph

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/evolve"
)

// Vec2 is a 2D vector.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) length() float64      { return math.Hypot(v.X, v.Y) }

// Config holds the spring constants and integration parameters.
type Config struct {
	PurityRadialSpring float64
	PhaseAngularSpring float64
	MISpring           float64
	RepulsionStrength  float64
	Damping            float64
	BaseDistance       float64
	MinDistance        float64
	CorrelationScaling float64
	MaxRadius          float64
}

// DefaultConfig returns the tuned physics constants.
func DefaultConfig() Config {
	return Config{
		PurityRadialSpring: 0.08,
		PhaseAngularSpring: 0.04,
		MISpring:           0.18,
		RepulsionStrength:  1500.0,
		Damping:            0.89, // 11% energy loss per step
		BaseDistance:       120.0,
		MinDistance:        15.0,
		CorrelationScaling: 3.0,
		MaxRadius:          250.0,
	}
}

// Engine computes layout updates for one biome's bubbles.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// New creates a layout engine.
func New(cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log.With().Str("component", "forcegraph").Logger(),
	}
}

// Step advances positions and velocities in place by one timestep.
//
// bloch is the per-qubit observable packet (stride evolve.BlochStride), mi
// the upper-triangular mutual information array, frozen marks nodes pinned
// by the caller. Slices shorter than the node count disable the
// corresponding force for out-of-range nodes rather than failing.
func (e *Engine) Step(positions, velocities []Vec2, bloch, mi []float64, center Vec2, dt float64, frozen []bool) {
	n := len(positions)
	for len(velocities) < n {
		velocities = append(velocities, Vec2{})
	}

	for i := 0; i < n; i++ {
		if i < len(frozen) && frozen[i] {
			continue
		}

		var force Vec2
		if (i+1)*evolve.BlochStride <= len(bloch) {
			force = force.add(e.purityRadialForce(i, positions[i], bloch, center))
			force = force.add(e.phaseAngularForce(i, positions[i], bloch, center))
		}
		if len(mi) > 0 {
			force = force.add(e.correlationForces(i, positions[i], positions, mi))
		}
		force = force.add(e.repulsionForces(i, positions[i], positions))

		velocities[i] = velocities[i].add(force.scale(dt)).scale(e.cfg.Damping)
		positions[i] = positions[i].add(velocities[i].scale(dt))
	}
}

// purityRadialForce pulls pure states toward the biome center and mixed
// states toward the edge.
func (e *Engine) purityRadialForce(i int, pos Vec2, bloch []float64, center Vec2) Vec2 {
	off := i * evolve.BlochStride
	p0, p1 := bloch[off], bloch[off+1]
	purity := math.Abs(p0 - p1)

	targetRadius := e.cfg.MaxRadius * (1.0 - purity)

	delta := pos.sub(center)
	radius := delta.length()
	if radius < 1e-6 {
		if targetRadius > 1.0 {
			return Vec2{X: 1}.scale(e.cfg.PurityRadialSpring * targetRadius)
		}
		return Vec2{}
	}

	return delta.scale(e.cfg.PurityRadialSpring * (targetRadius - radius) / radius)
}

// phaseAngularForce clusters qubits with similar Bloch polar angle at
// similar angular positions around the center.
func (e *Engine) phaseAngularForce(i int, pos Vec2, bloch []float64, center Vec2) Vec2 {
	theta := bloch[i*evolve.BlochStride+6]

	delta := pos.sub(center)
	radius := delta.length()
	if radius < 1e-6 {
		return Vec2{}
	}

	angularError := theta - math.Atan2(delta.Y, delta.X)
	for angularError > math.Pi {
		angularError -= 2 * math.Pi
	}
	for angularError < -math.Pi {
		angularError += 2 * math.Pi
	}

	tangent := Vec2{X: -delta.Y / radius, Y: delta.X / radius}
	return tangent.scale(e.cfg.PhaseAngularSpring * angularError * radius)
}

// correlationForces attracts correlated pairs toward a target distance that
// shrinks with mutual information. Pinned nodes still exert forces; pinning
// only excludes a node from integration.
func (e *Engine) correlationForces(i int, pos Vec2, positions []Vec2, mi []float64) Vec2 {
	var total Vec2
	n := len(positions)

	for j := 0; j < n; j++ {
		if j == i {
			continue
		}

		idx := miIndex(i, j, n)
		if idx < 0 || idx >= len(mi) {
			continue
		}
		v := mi[idx]
		if v < 1e-6 {
			continue
		}

		delta := positions[j].sub(pos)
		dist := delta.length()
		if dist < 1e-6 {
			continue
		}

		target := e.cfg.BaseDistance / (1.0 + e.cfg.CorrelationScaling*v)
		target = math.Max(target, e.cfg.MinDistance)

		total = total.add(delta.scale(e.cfg.MISpring * (dist - target) / dist))
	}
	return total
}

// repulsionForces keeps bubbles from overlapping with inverse-square
// repulsion.
func (e *Engine) repulsionForces(i int, pos Vec2, positions []Vec2) Vec2 {
	var total Vec2
	for j := range positions {
		if j == i {
			continue
		}

		delta := pos.sub(positions[j])
		dist := delta.length()
		if dist < 1e-6 {
			// Coincident nodes get a deterministic strong push apart.
			dir := Vec2{X: 1, Y: 1}
			if i%2 != 0 {
				dir.X = -1
			}
			if (i/2)%2 != 0 {
				dir.Y = -1
			}
			total = total.add(dir.scale(e.cfg.RepulsionStrength / dir.length()))
			continue
		}

		total = total.add(delta.scale(e.cfg.RepulsionStrength / (dist * dist) / dist))
	}
	return total
}

// miIndex maps an unordered node pair to its upper-triangular array index.
func miIndex(i, j, n int) int {
	if i == j {
		return -1
	}
	row, col := i, j
	if col < row {
		row, col = col, row
	}
	return row*n - row*(row+1)/2 + (col - row - 1)
}
