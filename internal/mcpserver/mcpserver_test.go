package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebuildscope/rebuildscope/internal/export"
	"github.com/rebuildscope/rebuildscope/internal/server"
	"github.com/rebuildscope/rebuildscope/rebuild"
)

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	return log
}

func newTestServer(t *testing.T) (*Server, *rebuild.Engine) {
	t.Helper()

	engine := rebuild.New(testLog(), rebuild.DefaultConfig())

	return New(testLog(), engine), engine
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestStatsHandler(t *testing.T) {
	s, engine := newTestServer(t)

	for range 3 {
		engine.RecordEvent("List", "setState")
	}

	result, err := s.statsHandler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	text := toolText(t, result)
	assert.Contains(t, text, `"name": "List"`)
	assert.Contains(t, text, `"count": 3`)
	assert.Contains(t, text, `"reason": "local_state"`)
}

func TestTopHandler_Limit(t *testing.T) {
	s, engine := newTestServer(t)

	engine.RecordEvent("a", "")
	engine.RecordEvent("b", "")
	engine.RecordEvent("b", "")
	engine.RecordEvent("c", "")

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"top_n": float64(1)}

	result, err := s.topHandler(context.Background(), req)
	require.NoError(t, err)

	text := toolText(t, result)
	assert.Contains(t, text, `"name": "b"`)
	assert.NotContains(t, text, `"name": "a"`)
}

func TestResetHandler(t *testing.T) {
	s, engine := newTestServer(t)

	engine.RecordEvent("a", "")
	engine.RecordEvent("b", "")

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"name": "a"}

	_, err := s.resetHandler(context.Background(), req)
	require.NoError(t, err)

	stat, ok := engine.Stats("a")
	require.True(t, ok)
	assert.Equal(t, 0, stat.Count)

	stat, ok = engine.Stats("b")
	require.True(t, ok)
	assert.Equal(t, 1, stat.Count)

	// No name resets everything.
	_, err = s.resetHandler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	stat, ok = engine.Stats("b")
	require.True(t, ok)
	assert.Equal(t, 0, stat.Count)
}

func TestStatsHandler_ObservesLiveIngest(t *testing.T) {
	clk := clock.NewMock()
	geo := server.NewGeometryRegistry(clk, 0)

	engineCfg := rebuild.DefaultConfig()
	engineCfg.Clock = clk
	engineCfg.ResolveGeometry = geo.Resolve

	engine := rebuild.New(testLog(), engineCfg)

	health := export.NewHealthMetrics(testLog(), export.HealthConfig{
		Addr: "127.0.0.1:0",
	})

	ingest := server.New(
		testLog(), server.Config{Addr: "127.0.0.1:0"}, engine, geo, health,
	)
	require.NoError(t, ingest.Start(context.Background()))

	t.Cleanup(func() {
		ingest.Stop()
	})

	time.Sleep(50 * time.Millisecond)

	resp, err := http.Post(
		fmt.Sprintf("http://%s/api/v1/events", ingest.Addr()),
		"application/json",
		strings.NewReader(`{"name": "Cart", "capture": "notifyListeners"}`),
	)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// An MCP server sharing the ingest engine sees the event.
	s := New(testLog(), engine)

	result, err := s.statsHandler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	text := toolText(t, result)
	assert.Contains(t, text, `"name": "Cart"`)
	assert.Contains(t, text, `"count": 1`)
	assert.Contains(t, text, `"reason": "store_broadcast"`)
}

func TestSuggestionsHandler(t *testing.T) {
	s, engine := newTestServer(t)

	for range 60 {
		engine.RecordEvent("hot", "")
	}

	result, err := s.suggestionsHandler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	text := toolText(t, result)
	assert.Contains(t, text, `"target_name": "hot"`)
	assert.Contains(t, text, "costing frame time")
}
