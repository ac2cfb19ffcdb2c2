package rebuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSuggestions_TieredWording(t *testing.T) {
	snapshot := []ComponentStat{
		{Name: "A", Count: 25},
		{Name: "B", Count: 12},
		{Name: "C", Count: 3},
	}

	got := BuildSuggestions(snapshot, 10, 20)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].TargetName)
	assert.Equal(t, 25, got[0].TriggeringCount)
	assert.Contains(t, got[0].Message, "costing frame time")

	assert.Equal(t, "B", got[1].TargetName)
	assert.Equal(t, 12, got[1].TriggeringCount)
	assert.Contains(t, got[1].Message, "more often than expected")
}

func TestBuildSuggestions_PreservesSnapshotOrder(t *testing.T) {
	snapshot := []ComponentStat{
		{Name: "worst", Count: 90},
		{Name: "bad", Count: 60},
		{Name: "meh", Count: 30},
	}

	got := BuildSuggestions(snapshot, 20, 50)
	require.Len(t, got, 3)
	assert.Equal(t, "worst", got[0].TargetName)
	assert.Equal(t, "bad", got[1].TargetName)
	assert.Equal(t, "meh", got[2].TargetName)
}

func TestBuildSuggestions_EmptySnapshot(t *testing.T) {
	assert.Empty(t, BuildSuggestions(nil, 10, 20))
	assert.Empty(t, BuildSuggestions([]ComponentStat{}, 10, 20))
}

func TestBuildSuggestions_Deterministic(t *testing.T) {
	snapshot := []ComponentStat{{Name: "A", Count: 42}}

	first := BuildSuggestions(snapshot, 10, 20)
	second := BuildSuggestions(snapshot, 10, 20)

	assert.Equal(t, first, second)
}

func TestEngine_SuggestionsComposeSnapshotAndCutoffs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MediumCutoff = 5
	cfg.HighCutoff = 10

	e, _, _ := newTestEngine(t, cfg)

	for range 12 {
		e.RecordEvent("hot", "")
	}

	for range 6 {
		e.RecordEvent("warm", "")
	}

	e.RecordEvent("cold", "")

	got := e.Suggestions()
	require.Len(t, got, 2)
	assert.Equal(t, "hot", got[0].TargetName)
	assert.Equal(t, "warm", got[1].TargetName)
}
