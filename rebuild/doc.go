// Package rebuild implements the rebuild telemetry and classification
// engine: a process-wide store of per-component render counts, a
// best-effort trigger-reason classifier, severity tiers with derived
// optimization suggestions, and an on-screen geometry aggregator that
// feeds heatmap overlays.
//
// The engine is an explicit, constructible object. Hosts embed one per
// process (or per test), feed it render events through RecordEvent, and
// poll the query methods whenever the change notification fires. All
// operations are total: an unknown name is an absent result, never an
// error, and a disabled engine degrades every call to a no-op.
package rebuild
