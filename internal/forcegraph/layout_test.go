package forcegraph

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// blochFor builds a packet for n qubits with the given (p0, p1, theta).
func blochFor(entries ...[3]float64) []float64 {
	packet := make([]float64, 0, len(entries)*8)
	for _, e := range entries {
		packet = append(packet, e[0], e[1], 0, 0, 0, 0, e[2], 0)
	}
	return packet
}

func TestMIIndexUpperTriangular(t *testing.T) {
	// 4 nodes: pairs in order 01 02 03 12 13 23
	assert.Equal(t, 0, miIndex(0, 1, 4))
	assert.Equal(t, 1, miIndex(0, 2, 4))
	assert.Equal(t, 2, miIndex(0, 3, 4))
	assert.Equal(t, 3, miIndex(1, 2, 4))
	assert.Equal(t, 4, miIndex(1, 3, 4))
	assert.Equal(t, 5, miIndex(2, 3, 4))
	assert.Equal(t, 3, miIndex(2, 1, 4), "order must not matter")
	assert.Equal(t, -1, miIndex(2, 2, 4))
}

func TestRepulsionPushesApart(t *testing.T) {
	e := New(DefaultConfig(), zerolog.Nop())
	positions := []Vec2{{X: -10}, {X: 10}}
	velocities := make([]Vec2, 2)

	before := positions[1].X - positions[0].X
	e.Step(positions, velocities, nil, nil, Vec2{}, 0.016, nil)

	assert.Greater(t, positions[1].X-positions[0].X, before)
	assert.InDelta(t, 0, positions[0].Y, 1e-12, "symmetric layout stays on axis")
}

func TestCorrelationPullsTowardTargetDistance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepulsionStrength = 0 // isolate the MI spring
	e := New(cfg, zerolog.Nop())

	// Far beyond the target distance with strong correlation.
	positions := []Vec2{{X: 0}, {X: 500}}
	velocities := make([]Vec2, 2)
	mi := []float64{2.0}

	before := positions[1].X - positions[0].X
	e.Step(positions, velocities, nil, mi, Vec2{}, 0.016, nil)

	assert.Less(t, positions[1].X-positions[0].X, before, "correlated nodes attract")
}

func TestPureStatePulledTowardCenter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepulsionStrength = 0
	e := New(cfg, zerolog.Nop())

	// purity |p0-p1| = 1 makes the target radius zero.
	positions := []Vec2{{X: 100, Y: 0}}
	velocities := make([]Vec2, 1)
	bloch := blochFor([3]float64{1, 0, 0})

	e.Step(positions, velocities, bloch, nil, Vec2{}, 0.016, nil)
	assert.Less(t, positions[0].X, 100.0)
}

func TestMixedStatePushedTowardEdge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepulsionStrength = 0
	e := New(cfg, zerolog.Nop())

	// Maximally mixed: target radius is MaxRadius, node sits inside it.
	positions := []Vec2{{X: 50, Y: 0}}
	velocities := make([]Vec2, 1)
	bloch := blochFor([3]float64{0.5, 0.5, 0})

	e.Step(positions, velocities, bloch, nil, Vec2{}, 0.016, nil)
	assert.Greater(t, positions[0].X, 50.0)
}

func TestFrozenNodesDoNotMove(t *testing.T) {
	e := New(DefaultConfig(), zerolog.Nop())
	positions := []Vec2{{X: -5}, {X: 5}}
	velocities := make([]Vec2, 2)
	frozen := []bool{true, false}

	e.Step(positions, velocities, nil, nil, Vec2{}, 0.016, frozen)

	assert.Equal(t, Vec2{X: -5}, positions[0])
	assert.Equal(t, Vec2{}, velocities[0])
	// The pinned node still repels: the free node is pushed away from it.
	assert.Greater(t, positions[1].X, 5.0)
}

func TestDampingBleedsVelocity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepulsionStrength = 0
	e := New(cfg, zerolog.Nop())

	positions := []Vec2{{X: 1}}
	velocities := []Vec2{{X: 10}}

	e.Step(positions, velocities, nil, nil, Vec2{}, 0.016, nil)
	assert.InDelta(t, 10*cfg.Damping, velocities[0].X, 1e-12)
}

func TestCoincidentNodesSeparate(t *testing.T) {
	e := New(DefaultConfig(), zerolog.Nop())
	positions := []Vec2{{X: 1, Y: 1}, {X: 1, Y: 1}}
	velocities := make([]Vec2, 2)

	e.Step(positions, velocities, nil, nil, Vec2{}, 0.016, nil)

	dist := math.Hypot(positions[1].X-positions[0].X, positions[1].Y-positions[0].Y)
	assert.Greater(t, dist, 0.0)
}
