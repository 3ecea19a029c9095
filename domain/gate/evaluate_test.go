package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateTracksAnd(t *testing.T) {
	cfg := validConfig()
	values := map[string]float64{"coverage": 0.8, "f_words": 6}

	results, accepted := EvaluateTracks(cfg, values)
	assert.True(t, accepted)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Passed, r.Name)
	}

	// One failing track sinks the AND.
	values["f_words"] = 2
	results, accepted = EvaluateTracks(cfg, values)
	assert.False(t, accepted)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
}

func TestEvaluateTracksOr(t *testing.T) {
	cfg := validConfig()
	cfg.Combinator = CombinatorOr
	values := map[string]float64{"coverage": 0.1, "f_words": 6}

	results, accepted := EvaluateTracks(cfg, values)
	assert.True(t, accepted, "one passing track carries the OR")
	assert.False(t, results[0].Passed)
	assert.True(t, results[1].Passed)

	values["f_words"] = 0
	_, accepted = EvaluateTracks(cfg, values)
	assert.False(t, accepted)
}

func TestEvaluateTracksThresholdIsInclusive(t *testing.T) {
	cfg := Config{
		Alpha:      0.01,
		Family:     []string{"coverage"},
		Combinator: CombinatorAnd,
		Tracks: []TrackConfig{
			{Name: "edge", Thresholds: map[string]float64{"coverage": 0.5}},
		},
	}

	_, accepted := EvaluateTracks(cfg, map[string]float64{"coverage": 0.5})
	assert.True(t, accepted, "value equal to threshold passes")

	_, accepted = EvaluateTracks(cfg, map[string]float64{"coverage": 0.4999})
	assert.False(t, accepted)
}

func TestEvaluateTracksMissingMetricFailsTrack(t *testing.T) {
	cfg := Config{
		Alpha:      0.01,
		Family:     []string{"coverage"},
		Combinator: CombinatorAnd,
		Tracks: []TrackConfig{
			{Name: "typo", Thresholds: map[string]float64{"coverge": 0.1}},
		},
	}

	results, accepted := EvaluateTracks(cfg, map[string]float64{"coverage": 0.9})
	assert.False(t, accepted)
	require.Len(t, results, 1)
	require.Len(t, results[0].Checks, 1)
	check := results[0].Checks[0]
	assert.False(t, check.Found)
	assert.False(t, check.Met)
	assert.Equal(t, "coverge", check.Metric)
}

func TestEvaluateTracksChecksSortedByMetric(t *testing.T) {
	cfg := Config{
		Alpha:      0.01,
		Family:     []string{"coverage"},
		Combinator: CombinatorAnd,
		Tracks: []TrackConfig{
			{Name: "multi", Thresholds: map[string]float64{
				"f_words":        1,
				"coverage":       0.2,
				"letter_logprob": -9,
			}},
		},
	}
	values := map[string]float64{"coverage": 0.5, "f_words": 3, "letter_logprob": -4}

	results, accepted := EvaluateTracks(cfg, values)
	assert.True(t, accepted)
	require.Len(t, results[0].Checks, 3)
	assert.Equal(t, "coverage", results[0].Checks[0].Metric)
	assert.Equal(t, "f_words", results[0].Checks[1].Metric)
	assert.Equal(t, "letter_logprob", results[0].Checks[2].Metric)
}
