package server

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rebuildscope/rebuildscope/rebuild"
)

// DefaultGeometryTTL is how long a remote geometry report stays
// resolvable without a refresh.
const DefaultGeometryTTL = 5 * time.Second

// report is the opaque geometry handle the hub registers with the
// engine for remote components: the last rectangle a host reported and
// when it reported it.
type report struct {
	mu     sync.Mutex
	rect   rebuild.Rect
	seenAt time.Time
}

// GeometryRegistry tracks geometry reported by remote hosts. A report
// not refreshed within the TTL resolves as unavailable, which is how a
// detached remote component reads at snapshot time.
type GeometryRegistry struct {
	clk clock.Clock
	ttl time.Duration

	mu      sync.Mutex
	reports map[string]*report
}

// NewGeometryRegistry creates a registry with the given staleness TTL.
func NewGeometryRegistry(clk clock.Clock, ttl time.Duration) *GeometryRegistry {
	if ttl <= 0 {
		ttl = DefaultGeometryTTL
	}

	return &GeometryRegistry{
		clk:     clk,
		ttl:     ttl,
		reports: make(map[string]*report),
	}
}

// Report stores or refreshes the rectangle for name and returns the
// handle to register with the engine.
func (g *GeometryRegistry) Report(name string, rect rebuild.Rect) rebuild.GeometryHandle {
	g.mu.Lock()
	r := g.reports[name]
	if r == nil {
		r = &report{}
		g.reports[name] = r
	}
	g.mu.Unlock()

	r.mu.Lock()
	r.rect = rect
	r.seenAt = g.clk.Now()
	r.mu.Unlock()

	return r
}

// Forget drops the stored report for name. Absent names are a no-op.
func (g *GeometryRegistry) Forget(name string) {
	g.mu.Lock()
	delete(g.reports, name)
	g.mu.Unlock()
}

// Clear drops every stored report.
func (g *GeometryRegistry) Clear() {
	g.mu.Lock()
	g.reports = make(map[string]*report)
	g.mu.Unlock()
}

// Len returns the number of stored reports.
func (g *GeometryRegistry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.reports)
}

// Resolve implements rebuild.GeometryResolver for registry handles.
// Handles of a foreign type, expired reports, and rectangles with no
// measurable size all read as unavailable.
func (g *GeometryRegistry) Resolve(handle rebuild.GeometryHandle) (rebuild.Rect, bool) {
	r, ok := handle.(*report)
	if !ok {
		return rebuild.Rect{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seenAt.IsZero() || g.clk.Now().Sub(r.seenAt) > g.ttl {
		return rebuild.Rect{}, false
	}

	if r.rect.Width <= 0 || r.rect.Height <= 0 {
		return rebuild.Rect{}, false
	}

	return r.rect, true
}
