package rebuild

// Severity is the tier a rebuild count falls into for a given pair of
// thresholds.
type Severity uint8

const (
	SeverityStable Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "stable"
	}
}

// Thresholds defines the two cut points separating the three severity
// tiers: [0, Stable) is stable, [Stable, Warning) is medium, and
// [Warning, inf) is high. Stable < Warning is assumed, not enforced.
type Thresholds struct {
	Stable  int `yaml:"stable"`
	Warning int `yaml:"warning"`
}

// DefaultThresholds is the cut-point pair used by purely visual
// consumers that do not carry their own Thresholds value, and the pair
// the engine's threshold-crossing debug log is keyed to.
var DefaultThresholds = Thresholds{
	Stable:  20,
	Warning: 50,
}

// ClassifySeverity maps a rebuild count to its severity tier.
func ClassifySeverity(count int, t Thresholds) Severity {
	switch {
	case count < t.Stable:
		return SeverityStable
	case count < t.Warning:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}
