package rebuild

import (
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Engine is the rebuild telemetry store. It owns the per-component
// counters and the geometry registrations, and is the single source of
// truth every presentational consumer reads from.
//
// All mutating methods are guarded by one coarse mutex; contention is
// negligible at the expected call rate of at most one event per
// rendered frame per tracked component.
type Engine struct {
	log      logrus.FieldLogger
	cfg      Config
	clk      clock.Clock
	schedule Scheduler
	resolve  GeometryResolver
	markers  Markers

	mu            sync.Mutex
	enabled       bool
	records       map[string]*statRecord
	geometry      map[string]GeometryHandle
	order         uint64
	version       uint64
	notifyPending bool
	subs          map[chan struct{}]struct{}
}

// New creates an Engine from the given configuration, filling unset
// fields with defaults.
func New(log logrus.FieldLogger, cfg Config) *Engine {
	cfg = cfg.withDefaults()

	return &Engine{
		log:      log.WithField("component", "rebuild"),
		cfg:      cfg,
		clk:      cfg.Clock,
		schedule: cfg.Schedule,
		resolve:  cfg.ResolveGeometry,
		markers:  cfg.Markers,
		enabled:  cfg.Enabled,
		records:  make(map[string]*statRecord),
		geometry: make(map[string]GeometryHandle),
		subs:     make(map[chan struct{}]struct{}),
	}
}

// RecordEvent records one completed render of the named component,
// lazily creating its record. A non-empty capture runs the reason
// classifier and replaces the stored reason; an empty capture leaves
// the previous reason untouched.
func (e *Engine) RecordEvent(name, capture string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}

	rec := e.records[name]
	if rec == nil {
		e.order++
		rec = &statRecord{name: name, seq: e.order}
		e.records[name] = rec
	}

	rec.count++
	rec.lastEvent = e.clk.Now()

	if capture != "" {
		rec.reason = e.markers.Classify(capture)
	}

	e.logCrossings(rec)
	e.bump()
}

// Stats returns a copy of the named component's record, reporting
// false when the name is untracked.
func (e *Engine) Stats(name string) (ComponentStat, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return ComponentStat{}, false
	}

	rec := e.records[name]
	if rec == nil {
		return ComponentStat{}, false
	}

	return rec.snapshot(), true
}

// AllStats returns a snapshot of every tracked record sorted by count
// descending. Equal counts are ordered by insertion so results are
// deterministic.
func (e *Engine) AllStats() []ComponentStat {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ComponentStat, 0, len(e.records))

	if !e.enabled {
		return out
	}

	recs := make([]*statRecord, 0, len(e.records))
	for _, rec := range e.records {
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].count != recs[j].count {
			return recs[i].count > recs[j].count
		}

		return recs[i].seq < recs[j].seq
	})

	for _, rec := range recs {
		out = append(out, rec.snapshot())
	}

	return out
}

// Top returns the first n entries of AllStats.
func (e *Engine) Top(n int) []ComponentStat {
	all := e.AllStats()

	if n < 0 {
		n = 0
	}

	if n > len(all) {
		n = len(all)
	}

	return all[:n]
}

// Suggestions derives optimization hints from the current snapshot
// using the configured cutoffs.
func (e *Engine) Suggestions() []Suggestion {
	return BuildSuggestions(e.AllStats(), e.cfg.MediumCutoff, e.cfg.HighCutoff)
}

// Severity classifies a count against the engine's configured
// thresholds.
func (e *Engine) Severity(count int) Severity {
	return ClassifySeverity(count, e.cfg.Thresholds)
}

// Reset zeroes the named component's count, clears its inferred
// reason, and re-arms its threshold-crossing log. Untracked names are
// left untracked.
func (e *Engine) Reset(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}

	if rec := e.records[name]; rec != nil {
		rec.reset()
	}

	e.bump()
}

// ResetAll resets every tracked record, firing a single change
// notification regardless of how many records exist.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}

	for _, rec := range e.records {
		rec.reset()
	}

	e.bump()
}

// Clear removes every record and every geometry registration. Unlike
// Reset, a cleared name is absent afterwards, not zeroed.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}

	e.records = make(map[string]*statRecord)
	e.geometry = make(map[string]GeometryHandle)

	e.bump()
}

// RegisterGeometry stores or overwrites the geometry handle for the
// named component.
func (e *Engine) RegisterGeometry(name string, handle GeometryHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}

	e.geometry[name] = handle
	e.bump()
}

// UnregisterGeometry removes the named component's geometry handle.
func (e *Engine) UnregisterGeometry(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}

	delete(e.geometry, name)
	e.bump()
}

// HeatmapSnapshot resolves every registered handle and joins it with
// the component's current count (zero when untracked). Handles the
// resolver reports as unavailable are dropped silently. Entries are
// ordered by name so output is deterministic.
func (e *Engine) HeatmapSnapshot() []HeatmapEntry {
	type pending struct {
		name   string
		handle GeometryHandle
		count  int
	}

	e.mu.Lock()

	if !e.enabled {
		e.mu.Unlock()

		return []HeatmapEntry{}
	}

	queue := make([]pending, 0, len(e.geometry))

	for name, handle := range e.geometry {
		count := 0
		if rec := e.records[name]; rec != nil {
			count = rec.count
		}

		queue = append(queue, pending{name: name, handle: handle, count: count})
	}

	e.mu.Unlock()

	// Resolution calls out into the host framework, so it happens
	// outside the engine mutex.
	out := make([]HeatmapEntry, 0, len(queue))

	for _, p := range queue {
		rect, ok := e.resolve(p.handle)
		if !ok {
			e.log.WithField("name", p.name).
				Debug("Dropping unresolvable geometry from heatmap")

			continue
		}

		out = append(out, HeatmapEntry{
			Name:  p.name,
			Rect:  rect,
			Count: p.count,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}

// Version returns the change counter. Every mutating call on an
// enabled engine advances it by exactly one; consumers re-query when
// it moves, the notification itself carries no payload.
func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.version
}

// Subscribe returns a channel receiving a coalesced wakeup after each
// mutation. Sends are non-blocking: a subscriber that has not drained
// its channel misses nothing, since the wakeup carries no data and the
// next query observes the latest state.
func (e *Engine) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)

	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	return ch
}

// Unsubscribe removes a channel obtained from Subscribe.
func (e *Engine) Unsubscribe(ch chan struct{}) {
	e.mu.Lock()
	delete(e.subs, ch)
	e.mu.Unlock()
}

// SetEnabled toggles instrumentation at runtime. Disabling does not
// clear accumulated data; queries simply stop reporting it until
// re-enabled.
func (e *Engine) SetEnabled(v bool) {
	e.mu.Lock()
	e.enabled = v
	e.mu.Unlock()
}

// Enabled reports whether instrumentation is active.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.enabled
}

// bump advances the version and schedules one coalesced notification
// dispatch. Callers hold e.mu. Dispatch always runs through the
// scheduler so a subscriber reacting to the wakeup can never re-enter
// the store inside the mutating call that triggered it.
func (e *Engine) bump() {
	e.version++

	if e.notifyPending {
		return
	}

	e.notifyPending = true
	e.schedule(e.dispatch)
}

func (e *Engine) dispatch() {
	e.mu.Lock()
	e.notifyPending = false

	targets := make([]chan struct{}, 0, len(e.subs))
	for ch := range e.subs {
		targets = append(targets, ch)
	}
	e.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// logCrossings emits the edge-triggered debug line the first time a
// record crosses each default threshold. Callers hold e.mu.
func (e *Engine) logCrossings(rec *statRecord) {
	if !e.cfg.LogThresholdCrossings {
		return
	}

	if !rec.noticedMedium && rec.count >= DefaultThresholds.Stable {
		rec.noticedMedium = true
		e.log.WithFields(logrus.Fields{
			"name":  rec.name,
			"count": rec.count,
		}).Debug("Component crossed the medium rebuild line")
	}

	if !rec.noticedHigh && rec.count >= DefaultThresholds.Warning {
		rec.noticedHigh = true
		e.log.WithFields(logrus.Fields{
			"name":  rec.name,
			"count": rec.count,
		}).Debug("Component crossed the high rebuild line")
	}
}

func (r *statRecord) reset() {
	r.count = 0
	r.reason = ReasonUnknown
	r.noticedMedium = false
	r.noticedHigh = false
}
