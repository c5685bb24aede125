package di

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudecon/SpaceWheat-sub021/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:             t.TempDir(),
		LogLevel:            "info",
		Port:                0,
		TickHz:              10,
		StepDt:              0.1,
		MaxDt:               0.02,
		LookaheadDepth:      4,
		Lookahead:           true,
		Backend:             "cpu",
		BenchmarkIterations: 10,
		AutosaveSchedule:    "@every 1h",
	}
}

func TestWireBuildsFullContainer(t *testing.T) {
	cfg := testConfig(t)
	c, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	defer c.Batcher.Close(time.Second)

	assert.NotNil(t, c.Store)
	assert.NotNil(t, c.Batcher)
	assert.NotNil(t, c.Runner)
	assert.NotNil(t, c.Scheduler)
	assert.NotNil(t, c.Server)
	assert.Nil(t, c.Backup, "no bucket configured")
	assert.Equal(t, "NATIVE_CPU", c.Selection.Kind.String())

	require.Len(t, c.Subsystems, 2)
	for _, sub := range c.Subsystems {
		assert.Greater(t, sub.QubitCount(), 0)
	}
}

func TestWireRestoresSavedWorld(t *testing.T) {
	cfg := testConfig(t)

	first, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Store.Save(first.Subsystems))
	require.NoError(t, first.Batcher.Close(time.Second))
	require.NoError(t, first.Close())

	second, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()
	defer second.Batcher.Close(time.Second)

	require.Len(t, second.Subsystems, 2)
	names := map[string]int{}
	for _, sub := range second.Subsystems {
		names[sub.Name()] = sub.QubitCount()
	}
	assert.Equal(t, 2, names["meadow"])
	assert.Equal(t, 1, names["swamp"])
}

func TestSeedWorldDynamics(t *testing.T) {
	subs, err := SeedWorld(zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, subs, 2)

	for _, sub := range subs {
		assert.True(t, sub.Hamiltonian().IsHermitian(1e-12))
		assert.Len(t, sub.Lindblads(), sub.QubitCount())
	}
}
