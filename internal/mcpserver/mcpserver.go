// Package mcpserver exposes the telemetry engine over the Model
// Context Protocol so AI tooling can interrogate a live hub: which
// components churn, why, and what to do about it.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/rebuildscope/rebuildscope/internal/version"
	"github.com/rebuildscope/rebuildscope/rebuild"
)

// Config configures the MCP surface of the hub.
type Config struct {
	// Enabled attaches the MCP server to the hub's stdio when the hub
	// itself runs in the foreground. The mcp subcommand serves stdio
	// regardless of this flag.
	Enabled bool `yaml:"enabled"`
}

// Server wraps an MCP stdio server around the engine's query API.
type Server struct {
	log    logrus.FieldLogger
	engine *rebuild.Engine
	mcp    *server.MCPServer
}

// New builds the MCP server and registers its tools.
func New(log logrus.FieldLogger, engine *rebuild.Engine) *Server {
	s := &Server{
		log:    log.WithField("component", "mcp"),
		engine: engine,
		mcp: server.NewMCPServer(
			"rebuildscope",
			version.Release,
			server.WithToolCapabilities(true),
		),
	}

	s.registerTools()

	return s
}

// ServeStdio blocks serving MCP requests over stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("MCP server starting on stdio")

	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	statsTool := mcp.NewTool("get_rebuild_stats",
		mcp.WithDescription("Returns every tracked component's rebuild count, "+
			"inferred trigger reason, and severity tier, worst first"),
	)

	topTool := mcp.NewTool("get_top_rebuilders",
		mcp.WithDescription("Returns the N components with the highest rebuild counts"),
		mcp.WithNumber("top_n",
			mcp.Description("Number of components to return (default: 10)")),
	)

	suggestionsTool := mcp.NewTool("get_suggestions",
		mcp.WithDescription("Returns ranked optimization suggestions derived "+
			"from the current rebuild counts"),
	)

	resetTool := mcp.NewTool("reset_stats",
		mcp.WithDescription("Resets rebuild counters, either for one component "+
			"or for all of them"),
		mcp.WithString("name",
			mcp.Description("Component name to reset; omit to reset everything")),
	)

	s.mcp.AddTool(statsTool, s.statsHandler)
	s.mcp.AddTool(topTool, s.topHandler)
	s.mcp.AddTool(suggestionsTool, s.suggestionsHandler)
	s.mcp.AddTool(resetTool, s.resetHandler)
}

func (s *Server) statsHandler(
	_ context.Context, _ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	return s.statsResult(s.engine.AllStats())
}

func (s *Server) topHandler(
	_ context.Context, request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	topN := 10

	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if n, ok := args["top_n"].(float64); ok {
			topN = int(n)
		}
	}

	return s.statsResult(s.engine.Top(topN))
}

func (s *Server) statsResult(stats []rebuild.ComponentStat) (*mcp.CallToolResult, error) {
	entries := make([]map[string]interface{}, len(stats))

	for i, stat := range stats {
		entries[i] = map[string]interface{}{
			"name":          stat.Name,
			"count":         stat.Count,
			"last_event_ms": stat.LastEvent.UnixMilli(),
			"reason":        stat.Reason.String(),
			"severity":      s.engine.Severity(stat.Count).String(),
		}
	}

	result, err := json.MarshalIndent(map[string]interface{}{
		"components": entries,
		"version":    s.engine.Version(),
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(
			fmt.Sprintf("Failed to encode stats: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) suggestionsHandler(
	_ context.Context, _ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	suggestions := s.engine.Suggestions()

	entries := make([]map[string]interface{}, len(suggestions))
	for i, sug := range suggestions {
		entries[i] = map[string]interface{}{
			"target_name":      sug.TargetName,
			"message":          sug.Message,
			"fix_hint":         sug.FixHint,
			"triggering_count": sug.TriggeringCount,
		}
	}

	result, err := json.MarshalIndent(map[string]interface{}{
		"suggestions": entries,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(
			fmt.Sprintf("Failed to encode suggestions: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) resetHandler(
	_ context.Context, request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name := ""

	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		name, _ = args["name"].(string)
	}

	if name == "" {
		s.engine.ResetAll()

		return mcp.NewToolResultText("Reset all rebuild counters"), nil
	}

	s.engine.Reset(name)

	return mcp.NewToolResultText(
		fmt.Sprintf("Reset rebuild counter for %q", name)), nil
}
