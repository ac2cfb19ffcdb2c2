package hub

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	return log
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Health.Addr = "127.0.0.1:0"

	return cfg
}

func TestHub_StartStopLifecycle(t *testing.T) {
	h, err := New(testLog(), testConfig())
	require.NoError(t, err)

	require.NoError(t, h.Start(context.Background()))

	h.Engine().RecordEvent("List", "setState")

	stat, ok := h.Engine().Stats("List")
	require.True(t, ok)
	assert.Equal(t, 1, stat.Count)

	require.NoError(t, h.Stop())
}

func TestHub_MCPDisabledByDefault(t *testing.T) {
	h, err := New(testLog(), testConfig())
	require.NoError(t, err)

	inner, ok := h.(*hub)
	require.True(t, ok)
	assert.Nil(t, inner.mcp)
}

func TestHub_MCPSharesEngine(t *testing.T) {
	cfg := testConfig()
	cfg.MCP.Enabled = true

	h, err := New(testLog(), cfg)
	require.NoError(t, err)

	inner, ok := h.(*hub)
	require.True(t, ok)

	// The MCP surface is built around the hub's own engine, so its
	// tools answer from the same records the ingest path feeds.
	require.NotNil(t, inner.mcp)
	assert.Same(t, inner.engine, h.Engine())
}

func TestHub_InvalidConfigRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.MediumCutoff = 50
	cfg.Engine.HighCutoff = 20

	_, err := New(testLog(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}
