package sim

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudecon/SpaceWheat-sub021/internal/backend"
	"github.com/dudecon/SpaceWheat-sub021/internal/batch"
	"github.com/dudecon/SpaceWheat-sub021/internal/biome"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
)

func testBatcher(t *testing.T) *batch.Batcher {
	t.Helper()
	s := biome.New("meadow", zerolog.Nop())
	_, err := s.AllocateQubit("wheat", "soil")
	require.NoError(t, err)
	require.NoError(t, s.SetHamiltonian(qmat.PauliX()))
	require.NoError(t, s.SetRho(qmat.Projector(2, 0)))

	b, err := batch.New([]*biome.Subsystem{s},
		backend.Selection{Kind: backend.NativeCPU},
		batch.Config{Lookahead: false, Depth: 4, StepDt: 0.1, MaxDt: 0.02},
		zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestRunnerTicksAndStops(t *testing.T) {
	b := testBatcher(t)
	r := New(b, 200, 0.1, zerolog.Nop())

	var ticks atomic.Uint64
	r.OnTick(func(tick uint64) { ticks.Store(tick) })

	r.Start()
	require.Eventually(t, func() bool {
		return ticks.Load() >= 3
	}, 5*time.Second, time.Millisecond)
	r.Stop()

	stopped := ticks.Load()
	assert.GreaterOrEqual(t, stopped, uint64(3))
	assert.EqualValues(t, stopped, b.Stats().Ticks)

	// No ticks after Stop returns
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load())
}

func TestRunnerStopWithoutStart(t *testing.T) {
	r := New(testBatcher(t), 100, 0.1, zerolog.Nop())
	r.Stop() // must not hang or panic
}
