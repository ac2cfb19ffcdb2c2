package rebuild

import "github.com/benbjohnson/clock"

// Config configures an Engine.
type Config struct {
	// Enabled gates instrumentation. When false the engine is inert:
	// every mutating call is a no-op and every query returns an
	// empty or absent result.
	Enabled bool `yaml:"enabled"`

	// Thresholds are the severity cut points applied when annotating
	// snapshots. Zero value means DefaultThresholds.
	Thresholds Thresholds `yaml:"thresholds"`

	// MediumCutoff and HighCutoff are the suggestion cut points.
	// Zero values default to the severity thresholds.
	MediumCutoff int `yaml:"medium_cutoff"`
	HighCutoff   int `yaml:"high_cutoff"`

	// LogThresholdCrossings enables the edge-triggered debug log
	// line emitted once per component when its count first crosses
	// each default threshold.
	LogThresholdCrossings bool `yaml:"log_threshold_crossings"`

	// Markers overrides the reason classifier's substring patterns.
	// An all-empty value means DefaultMarkers.
	Markers Markers `yaml:"markers"`

	// Clock is the engine's time source. Defaults to the wall clock;
	// tests inject a mock.
	Clock clock.Clock `yaml:"-"`

	// Schedule is the host's defer-to-next-tick primitive used for
	// change notification dispatch. Defaults to an asynchronous
	// goroutine dispatch.
	Schedule Scheduler `yaml:"-"`

	// ResolveGeometry resolves registered geometry handles for
	// heatmap snapshots. Defaults to resolving nothing, which makes
	// every heatmap snapshot empty until a resolver is supplied.
	ResolveGeometry GeometryResolver `yaml:"-"`
}

// DefaultConfig returns an enabled engine configuration with default
// thresholds and markers.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Thresholds:   DefaultThresholds,
		MediumCutoff: DefaultThresholds.Stable,
		HighCutoff:   DefaultThresholds.Warning,
	}
}

// withDefaults fills the zero-valued fields a caller left unset.
func (c Config) withDefaults() Config {
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = DefaultThresholds
	}

	if c.MediumCutoff <= 0 {
		c.MediumCutoff = c.Thresholds.Stable
	}

	if c.HighCutoff <= 0 {
		c.HighCutoff = c.Thresholds.Warning
	}

	if c.Markers.empty() {
		c.Markers = DefaultMarkers()
	}

	if c.Clock == nil {
		c.Clock = clock.New()
	}

	if c.Schedule == nil {
		c.Schedule = func(fn func()) { go fn() }
	}

	if c.ResolveGeometry == nil {
		c.ResolveGeometry = func(GeometryHandle) (Rect, bool) {
			return Rect{}, false
		}
	}

	return c
}
