package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rebuildscope/rebuildscope/internal/export"
	"github.com/rebuildscope/rebuildscope/rebuild"
)

// Config configures the ingest and dashboard HTTP server.
type Config struct {
	// Addr is the listen address. Defaults to ":8077".
	Addr string `yaml:"addr"`

	// GeometryTTL is how long a remote geometry report stays fresh
	// without a refresh. Defaults to DefaultGeometryTTL.
	GeometryTTL time.Duration `yaml:"geometry_ttl"`
}

// Server is the remote-host surface of the hub: render-event ingest,
// geometry reports, read-only dashboard queries, and the websocket
// change feed.
type Server struct {
	log      logrus.FieldLogger
	cfg      Config
	engine   *rebuild.Engine
	geo      *GeometryRegistry
	health   *export.HealthMetrics
	runID    uuid.UUID
	upgrader websocket.Upgrader

	server   *http.Server
	listener net.Listener
}

// New creates a Server around an engine and its geometry registry.
// The run ID distinguishes hub restarts to dashboard clients.
func New(
	log logrus.FieldLogger,
	cfg Config,
	engine *rebuild.Engine,
	geo *GeometryRegistry,
	health *export.HealthMetrics,
) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8077"
	}

	return &Server{
		log:    log.WithField("component", "server"),
		cfg:    cfg,
		engine: engine,
		geo:    geo,
		health: health,
		runID:  uuid.New(),
		upgrader: websocket.Upgrader{
			// The hub serves local tooling; dashboards connect from
			// arbitrary dev origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RunID returns the identity of this hub run.
func (s *Server) RunID() string {
	return s.runID.String()
}

// Start begins serving. The listener address is available from Addr
// once Start returns.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler: s.handler(),
	}

	go func() {
		s.log.WithFields(logrus.Fields{
			"addr":   ln.Addr().String(),
			"run_id": s.runID.String(),
		}).Info("Ingest server started")

		if err := s.server.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("Ingest server error")
		}
	}()

	return nil
}

// Addr returns the actual listener address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.cfg.Addr
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	return s.server.Close()
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/events", s.handleEvents)
	mux.HandleFunc("POST /api/v1/geometry", s.handleGeometryReport)
	mux.HandleFunc("DELETE /api/v1/geometry/{name}", s.handleGeometryForget)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/stats/top", s.handleTop)
	mux.HandleFunc("GET /api/v1/suggestions", s.handleSuggestions)
	mux.HandleFunc("GET /api/v1/heatmap", s.handleHeatmap)
	mux.HandleFunc("POST /api/v1/reset", s.handleReset)
	mux.HandleFunc("POST /api/v1/clear", s.handleClear)
	mux.HandleFunc("GET /api/v1/ws", s.handleFeed)

	return mux
}

// handleEvents ingests one render event or a batch of them. This is
// the per-render callback hook for out-of-process hosts.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		s.health.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	events, err := decodeEvents(r)
	if err != nil {
		s.health.IngestErrors.Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	for _, ev := range events {
		s.engine.RecordEvent(ev.Name, ev.Capture)
		s.health.EventsReceived.Inc()

		// A capture-less event carries no classification of its own,
		// so it counts under unknown rather than the record's sticky
		// reason.
		label := rebuild.ReasonUnknown.String()

		if ev.Capture != "" {
			if stat, ok := s.engine.Stats(ev.Name); ok {
				label = stat.Reason.String()
			}
		}

		s.health.EventsByReason.WithLabelValues(label).Inc()
	}

	s.health.ComponentsTracked.Set(float64(len(s.engine.AllStats())))

	writeJSON(w, http.StatusAccepted, ingestResponse{Accepted: len(events)})
}

// decodeEvents accepts either a single event object or an array.
func decodeEvents(r *http.Request) ([]eventRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading event body: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("event body is empty")
	}

	var events []eventRequest

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("decoding event batch: %w", err)
		}
	} else {
		var ev eventRequest
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}

		events = append(events, ev)
	}

	for _, ev := range events {
		if ev.Name == "" {
			return nil, fmt.Errorf("event name is required")
		}
	}

	return events, nil
}

func (s *Server) handleGeometryReport(w http.ResponseWriter, r *http.Request) {
	var req geometryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.health.IngestErrors.Inc()
		http.Error(w, fmt.Sprintf("decoding geometry: %v", err),
			http.StatusBadRequest)

		return
	}

	if req.Name == "" {
		s.health.IngestErrors.Inc()
		http.Error(w, "geometry name is required", http.StatusBadRequest)

		return
	}

	handle := s.geo.Report(req.Name, rebuild.Rect{
		X:      req.X,
		Y:      req.Y,
		Width:  req.Width,
		Height: req.Height,
	})

	s.engine.RegisterGeometry(req.Name, handle)
	s.health.GeometryRegistered.Set(float64(s.geo.Len()))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGeometryForget(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	s.geo.Forget(name)
	s.engine.UnregisterGeometry(name)
	s.health.GeometryRegistered.Set(float64(s.geo.Len()))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statsResponse(s.engine.AllStats()))
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n := 10

	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid n: %v", err),
				http.StatusBadRequest)

			return
		}

		n = parsed
	}

	writeJSON(w, http.StatusOK, s.statsResponse(s.engine.Top(n)))
}

func (s *Server) statsResponse(stats []rebuild.ComponentStat) statsResponse {
	resp := statsResponse{
		RunID:      s.runID.String(),
		Version:    s.engine.Version(),
		Components: make([]statJSON, 0, len(stats)),
	}

	for _, stat := range stats {
		resp.Components = append(resp.Components,
			toStatJSON(stat, s.engine.Severity(stat.Count)))
	}

	return resp
}

func (s *Server) handleSuggestions(w http.ResponseWriter, _ *http.Request) {
	suggestions := s.engine.Suggestions()

	resp := suggestionsResponse{
		RunID:       s.runID.String(),
		Version:     s.engine.Version(),
		Suggestions: make([]suggestionJSON, 0, len(suggestions)),
	}

	for _, sug := range suggestions {
		resp.Suggestions = append(resp.Suggestions, suggestionJSON{
			TargetName:      sug.TargetName,
			Message:         sug.Message,
			FixHint:         sug.FixHint,
			TriggeringCount: sug.TriggeringCount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.HeatmapSnapshot()

	s.health.HeatmapEntriesResolved.Add(float64(len(snap)))

	if dropped := s.geo.Len() - len(snap); dropped > 0 {
		s.health.HeatmapEntriesDropped.Add(float64(dropped))
	}

	resp := heatmapResponse{
		RunID:   s.runID.String(),
		Version: s.engine.Version(),
		Entries: make([]heatmapEntryJSON, 0, len(snap)),
	}

	for _, entry := range snap {
		resp.Entries = append(resp.Entries, heatmapEntryJSON{
			Name:     entry.Name,
			Rect:     entry.Rect,
			Count:    entry.Count,
			Severity: s.engine.Severity(entry.Count).String(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		s.engine.Reset(name)
	} else {
		s.engine.ResetAll()
	}

	s.health.ResetsTotal.Inc()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.engine.Clear()
	s.geo.Clear()

	s.health.ClearsTotal.Inc()
	s.health.ComponentsTracked.Set(0)
	s.health.GeometryRegistered.Set(0)

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
