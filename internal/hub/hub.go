package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/rebuildscope/rebuildscope/internal/export"
	"github.com/rebuildscope/rebuildscope/internal/mcpserver"
	"github.com/rebuildscope/rebuildscope/internal/server"
	"github.com/rebuildscope/rebuildscope/rebuild"
)

// Hub is the top-level orchestrator for the rebuildscope daemon.
type Hub interface {
	// Start initializes all components and begins serving.
	Start(ctx context.Context) error
	// Stop shuts down all components gracefully.
	Stop() error
	// Engine exposes the telemetry engine, mainly for embedding
	// surfaces like the MCP server.
	Engine() *rebuild.Engine
}

type hub struct {
	log    logrus.FieldLogger
	cfg    *Config
	health *export.HealthMetrics
	engine *rebuild.Engine
	geo    *server.GeometryRegistry
	server *server.Server
	mcp    *mcpserver.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Hub.
func New(log logrus.FieldLogger, cfg *Config) (Hub, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	health := export.NewHealthMetrics(log, cfg.Health)

	clk := clock.New()
	geo := server.NewGeometryRegistry(clk, cfg.Server.GeometryTTL)

	engineCfg := cfg.Engine
	engineCfg.Clock = clk
	engineCfg.ResolveGeometry = geo.Resolve

	engine := rebuild.New(log, engineCfg)

	h := &hub{
		log:    log.WithField("component", "hub"),
		cfg:    cfg,
		health: health,
		engine: engine,
		geo:    geo,
		server: server.New(log, cfg.Server, engine, geo, health),
	}

	// The MCP surface shares the hub's engine, so its tools report the
	// same records the ingest path feeds.
	if cfg.MCP.Enabled {
		h.mcp = mcpserver.New(log, engine)
	}

	return h, nil
}

func (h *hub) Engine() *rebuild.Engine {
	return h.engine
}

func (h *hub) Start(ctx context.Context) error {
	ctx, h.cancel = context.WithCancel(ctx)

	if err := h.health.Start(ctx); err != nil {
		return fmt.Errorf("starting health metrics: %w", err)
	}

	if err := h.server.Start(ctx); err != nil {
		return fmt.Errorf("starting ingest server: %w", err)
	}

	h.wg.Add(1)

	go h.monitorNotifications(ctx)

	if h.mcp != nil {
		// ServeStdio returns when stdin closes, which in a managed
		// deployment means the supervisor is done with us.
		go func() {
			if err := h.mcp.ServeStdio(); err != nil {
				h.log.WithError(err).Error("MCP server error")
			}
		}()
	}

	h.log.WithFields(logrus.Fields{
		"ingest_addr": h.server.Addr(),
		"health_addr": h.health.Addr(),
		"run_id":      h.server.RunID(),
		"enabled":     h.engine.Enabled(),
		"mcp":         h.mcp != nil,
	}).Info("Hub fully started")

	return nil
}

func (h *hub) Stop() error {
	if h.cancel != nil {
		h.cancel()
	}

	h.wg.Wait()

	// Stop in reverse order.
	if h.server != nil {
		if err := h.server.Stop(); err != nil {
			h.log.WithError(err).Error("Error stopping ingest server")
		}
	}

	if h.health != nil {
		if err := h.health.Stop(); err != nil {
			h.log.WithError(err).Error("Error stopping health metrics")
		}
	}

	return nil
}

// monitorNotifications counts coalesced change notifications so the
// dispatch rate is visible on /metrics.
func (h *hub) monitorNotifications(ctx context.Context) {
	defer h.wg.Done()

	ch := h.engine.Subscribe()
	defer h.engine.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			h.health.NotificationsTotal.Inc()
		}
	}
}
