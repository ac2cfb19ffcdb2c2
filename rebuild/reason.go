package rebuild

import "strings"

// ReasonCategory is a best-effort classification of what kind of state
// change likely triggered a render event. It is a UI hint derived from
// textual capture of the calling context, never ground truth.
type ReasonCategory uint8

const (
	// ReasonUnknown means no capture was supplied or no marker matched.
	ReasonUnknown ReasonCategory = iota
	// ReasonLocalState is an explicit local state mutation.
	ReasonLocalState
	// ReasonInheritedState is ancestor-provided shared state propagation.
	ReasonInheritedState
	// ReasonAsyncResolution is an asynchronous stream/future callback.
	ReasonAsyncResolution
	// ReasonStoreBroadcast is an external state-container broadcast.
	ReasonStoreBroadcast
)

func (r ReasonCategory) String() string {
	switch r {
	case ReasonLocalState:
		return "local_state"
	case ReasonInheritedState:
		return "inherited_state"
	case ReasonAsyncResolution:
		return "async_resolution"
	case ReasonStoreBroadcast:
		return "store_broadcast"
	default:
		return "unknown"
	}
}

// Markers holds the substring patterns used to infer a trigger reason
// from a context capture. Lists are checked in declaration order with
// first match winning: local state, then inherited state, then async
// resolution, then store broadcast.
type Markers struct {
	LocalState      []string `yaml:"local_state"`
	InheritedState  []string `yaml:"inherited_state"`
	AsyncResolution []string `yaml:"async_resolution"`
	StoreBroadcast  []string `yaml:"store_broadcast"`
}

// DefaultMarkers returns marker lists covering the trigger vocabulary
// common across UI framework ecosystems.
func DefaultMarkers() Markers {
	return Markers{
		LocalState: []string{
			"setState", "set_state", "markNeedsBuild",
		},
		InheritedState: []string{
			"InheritedWidget", "dependOnInherited",
			"didChangeDependencies", "useContext",
		},
		AsyncResolution: []string{
			"Future", "Stream", "Promise", "microtask",
		},
		StoreBroadcast: []string{
			"notifyListeners", "ChangeNotifier", "dispatch", "emit(",
		},
	}
}

// Classify maps a context capture to a reason category. It is a pure
// function: the same capture always yields the same category.
func (m Markers) Classify(capture string) ReasonCategory {
	ordered := []struct {
		markers []string
		reason  ReasonCategory
	}{
		{m.LocalState, ReasonLocalState},
		{m.InheritedState, ReasonInheritedState},
		{m.AsyncResolution, ReasonAsyncResolution},
		{m.StoreBroadcast, ReasonStoreBroadcast},
	}

	for _, rule := range ordered {
		for _, marker := range rule.markers {
			if strings.Contains(capture, marker) {
				return rule.reason
			}
		}
	}

	return ReasonUnknown
}

// Classify maps a context capture to a reason category using the
// default marker lists.
func Classify(capture string) ReasonCategory {
	return DefaultMarkers().Classify(capture)
}

func (m Markers) empty() bool {
	return len(m.LocalState) == 0 &&
		len(m.InheritedState) == 0 &&
		len(m.AsyncResolution) == 0 &&
		len(m.StoreBroadcast) == 0
}
