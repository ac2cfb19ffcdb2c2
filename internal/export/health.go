package export

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// HealthConfig configures the Prometheus health metrics server.
type HealthConfig struct {
	// Addr is the listen address for the health metrics server.
	// Defaults to ":9090".
	Addr string `yaml:"addr"`
}

// HealthMetrics exposes Prometheus metrics for hub health.
type HealthMetrics struct {
	log      logrus.FieldLogger
	addr     string
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry

	// Ingest
	EventsReceived prometheus.Counter
	EventsByReason *prometheus.CounterVec
	IngestErrors   prometheus.Counter
	IngestDuration prometheus.Histogram

	// Engine
	ComponentsTracked  prometheus.Gauge
	NotificationsTotal prometheus.Counter
	ResetsTotal        prometheus.Counter
	ClearsTotal        prometheus.Counter

	// Heatmap
	GeometryRegistered     prometheus.Gauge
	HeatmapEntriesResolved prometheus.Counter
	HeatmapEntriesDropped  prometheus.Counter

	// Change feed
	FeedClientsConnected prometheus.Gauge
	FeedPushesTotal      prometheus.Counter

	running atomic.Bool
}

// NewHealthMetrics creates a new health metrics server.
func NewHealthMetrics(
	log logrus.FieldLogger,
	cfg HealthConfig,
) *HealthMetrics {
	reg := prometheus.NewRegistry()

	h := &HealthMetrics{
		log:      log.WithField("component", "health"),
		addr:     cfg.Addr,
		registry: reg,

		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rebuildscope",
			Name:      "events_received_total",
			Help:      "Total render events ingested.",
		}),
		EventsByReason: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rebuildscope",
				Name:      "events_by_reason_total",
				Help:      "Total render events by inferred trigger reason.",
			},
			[]string{"reason"},
		),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rebuildscope",
			Name:      "ingest_errors_total",
			Help:      "Total malformed ingest requests rejected.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rebuildscope",
			Name:      "ingest_duration_seconds",
			Help:      "Time to handle one ingest request.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05}, // 100us-50ms
		}),

		ComponentsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rebuildscope",
			Name:      "components_tracked",
			Help:      "Number of component names with a stats record.",
		}),
		NotificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rebuildscope",
			Name:      "notifications_total",
			Help:      "Total coalesced change notifications observed.",
		}),
		ResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rebuildscope",
			Name:      "resets_total",
			Help:      "Total reset operations applied to the store.",
		}),
		ClearsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rebuildscope",
			Name:      "clears_total",
			Help:      "Total full clears of the store.",
		}),

		GeometryRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rebuildscope",
			Name:      "geometry_registered",
			Help:      "Number of geometry handles currently registered.",
		}),
		HeatmapEntriesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rebuildscope",
			Name:      "heatmap_entries_resolved_total",
			Help:      "Total heatmap entries resolved across snapshots.",
		}),
		HeatmapEntriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rebuildscope",
			Name:      "heatmap_entries_dropped_total",
			Help:      "Total stale geometry entries dropped from snapshots.",
		}),

		FeedClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rebuildscope",
			Name:      "feed_clients_connected",
			Help:      "Websocket change-feed clients currently connected.",
		}),
		FeedPushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rebuildscope",
			Name:      "feed_pushes_total",
			Help:      "Total version pushes sent over the change feed.",
		}),
	}

	reg.MustRegister(
		h.EventsReceived,
		h.EventsByReason,
		h.IngestErrors,
		h.IngestDuration,
		h.ComponentsTracked,
		h.NotificationsTotal,
		h.ResetsTotal,
		h.ClearsTotal,
		h.GeometryRegistered,
		h.HeatmapEntriesResolved,
		h.HeatmapEntriesDropped,
		h.FeedClientsConnected,
		h.FeedPushesTotal,
	)

	return h
}

// Start begins serving the /metrics endpoint.
func (h *HealthMetrics) Start(_ context.Context) error {
	if h.addr == "" {
		h.addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		h.registry,
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	// pprof endpoints for CPU/memory profiling.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	h.listener = ln

	h.server = &http.Server{
		Handler: mux,
	}

	h.running.Store(true)

	go func() {
		h.log.WithField("addr", ln.Addr().String()).
			Info("Health metrics server started")

		if err := h.server.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			h.log.WithError(err).
				Error("Health metrics server error")
		}

		h.running.Store(false)
	}()

	return nil
}

// Addr returns the actual listener address. Useful when started
// with ":0" to get the OS-assigned port.
func (h *HealthMetrics) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}

	return h.addr
}

// Stop gracefully shuts down the health metrics server.
func (h *HealthMetrics) Stop() error {
	if h.server == nil {
		return nil
	}

	return h.server.Close()
}
