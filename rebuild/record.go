package rebuild

import "time"

// ComponentStat is a point-in-time copy of one tracked component's
// record. Mutating a returned value has no effect on the store.
type ComponentStat struct {
	// Name is the caller-supplied tracking key.
	Name string
	// Count is the number of render events since creation or the
	// last reset.
	Count int
	// LastEvent is the time of the most recent render event.
	LastEvent time.Time
	// Reason is the inferred trigger for the most recent event that
	// carried a context capture. ReasonUnknown when no capture has
	// been seen since creation or the last reset.
	Reason ReasonCategory
}

// statRecord is the live, mutable record behind ComponentStat. Only
// the engine touches it, always under the engine mutex.
type statRecord struct {
	name      string
	count     int
	lastEvent time.Time
	reason    ReasonCategory

	// seq is the insertion sequence, used as the deterministic
	// tie-break when counts are equal.
	seq uint64

	// Edge-trigger latches for the threshold-crossing debug log.
	noticedMedium bool
	noticedHigh   bool
}

func (r *statRecord) snapshot() ComponentStat {
	return ComponentStat{
		Name:      r.name,
		Count:     r.count,
		LastEvent: r.lastEvent,
		Reason:    r.reason,
	}
}

// Rect is an on-screen bounding rectangle in the host framework's
// coordinate space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GeometryHandle is an opaque reference into the host framework's
// layout system. The engine never inspects it; it only passes it to
// the configured GeometryResolver.
type GeometryHandle any

// GeometryResolver resolves a handle to its current on-screen
// rectangle, reporting false when the handle is stale, detached, or
// has no measurable size.
type GeometryResolver func(handle GeometryHandle) (Rect, bool)

// HeatmapEntry joins a registered geometry with the component's
// current rebuild count for overlay drawing.
type HeatmapEntry struct {
	Name  string
	Rect  Rect
	Count int
}

// Scheduler defers a function to the host's next scheduling tick (the
// "after current frame" primitive). The engine uses it to dispatch
// change notifications outside the mutating call, so a notification
// can never re-enter the store synchronously.
type Scheduler func(fn func())
