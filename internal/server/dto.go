package server

import (
	"github.com/rebuildscope/rebuildscope/rebuild"
)

// eventRequest is the JSON schema for ingesting render events. A body
// may carry a single object or an array of them.
type eventRequest struct {
	Name    string `json:"name"`
	Capture string `json:"capture,omitempty"`
}

// geometryRequest is the JSON schema for geometry reports.
type geometryRequest struct {
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// statJSON is one component's record as served to dashboards.
type statJSON struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	LastEventMs int64  `json:"last_event_ms"`
	Reason      string `json:"reason"`
	Severity    string `json:"severity"`
}

type statsResponse struct {
	RunID      string     `json:"run_id"`
	Version    uint64     `json:"version"`
	Components []statJSON `json:"components"`
}

type suggestionJSON struct {
	TargetName      string `json:"target_name"`
	Message         string `json:"message"`
	FixHint         string `json:"fix_hint"`
	TriggeringCount int    `json:"triggering_count"`
}

type suggestionsResponse struct {
	RunID       string           `json:"run_id"`
	Version     uint64           `json:"version"`
	Suggestions []suggestionJSON `json:"suggestions"`
}

type heatmapEntryJSON struct {
	Name     string       `json:"name"`
	Rect     rebuild.Rect `json:"rect"`
	Count    int          `json:"count"`
	Severity string       `json:"severity"`
}

type heatmapResponse struct {
	RunID   string             `json:"run_id"`
	Version uint64             `json:"version"`
	Entries []heatmapEntryJSON `json:"entries"`
}

type ingestResponse struct {
	Accepted int `json:"accepted"`
}

// feedPush is the websocket change-feed payload. It carries only the
// version counter; clients re-query the snapshot endpoints.
type feedPush struct {
	RunID   string `json:"run_id"`
	Version uint64 `json:"version"`
}

func toStatJSON(stat rebuild.ComponentStat, sev rebuild.Severity) statJSON {
	return statJSON{
		Name:        stat.Name,
		Count:       stat.Count,
		LastEventMs: stat.LastEvent.UnixMilli(),
		Reason:      stat.Reason.String(),
		Severity:    sev.String(),
	}
}
