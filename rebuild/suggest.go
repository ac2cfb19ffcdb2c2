package rebuild

import "fmt"

// Suggestion is a derived, human-readable optimization hint for one
// tracked component. Suggestions are never persisted; they are
// recomputed from the current snapshot on every query.
type Suggestion struct {
	TargetName      string
	Message         string
	FixHint         string
	TriggeringCount int
}

// BuildSuggestions derives one suggestion for every record in the
// snapshot whose count is at or above mediumCutoff. Records at or above
// highCutoff get the stronger wording and the more aggressive fix hint.
// Output preserves the snapshot's ordering, so a count-descending
// snapshot yields suggestions worst-first.
//
// The function is deterministic, performs no I/O, and holds no state;
// it is usable without an Engine.
func BuildSuggestions(snapshot []ComponentStat, mediumCutoff, highCutoff int) []Suggestion {
	out := make([]Suggestion, 0, len(snapshot))

	for _, stat := range snapshot {
		switch {
		case stat.Count >= highCutoff:
			out = append(out, Suggestion{
				TargetName: stat.Name,
				Message: fmt.Sprintf(
					"%s rebuilt %d times and is likely costing frame time",
					stat.Name, stat.Count,
				),
				FixHint: "Split this component up and cache unchanged " +
					"subtrees so state changes stop invalidating the " +
					"whole region.",
				TriggeringCount: stat.Count,
			})
		case stat.Count >= mediumCutoff:
			out = append(out, Suggestion{
				TargetName: stat.Name,
				Message: fmt.Sprintf(
					"%s rebuilt %d times, more often than expected",
					stat.Name, stat.Count,
				),
				FixHint: "Check which state this component listens to; " +
					"narrowing its inputs usually removes the extra " +
					"rebuilds.",
				TriggeringCount: stat.Count,
			})
		}
	}

	return out
}
