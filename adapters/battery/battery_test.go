package battery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokryptos/domain/candidate"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/internal/testkit"
	"gokryptos/ports"
)

// englishWindow is 73 letters of concatenated lexicon words, sized to
// match the non-anchor portion of the panel.
const englishWindow = "WESEETHETIMEANDTHELIGHTFALLONTHEOLDWALLANDWEREADTHETRUTHINTHEDARKSTONETHE"

func gateConfig() gate.Config {
	return gate.Config{
		Alpha:      0.01,
		Family:     []string{"coverage", "f_words"},
		Combinator: gate.CombinatorAnd,
		Tracks: []gate.TrackConfig{
			{Name: "lexical", Thresholds: map[string]float64{"coverage": 0.5}},
		},
	}
}

func newBattery(t *testing.T) *Battery {
	t.Helper()
	kit, err := testkit.New()
	require.NoError(t, err)
	return New(kit.Scorer(), kit.RNG())
}

func fullyDetermined(t *testing.T, s string) candidate.Plaintext {
	t.Helper()
	b := candidate.NewBuilder(len(s))
	for i := 0; i < len(s); i++ {
		b.Determine(i, res(t, s[i]))
	}
	return b.Build()
}

func emptyAnchors(t *testing.T, textLen int) cipher.AnchorSet {
	t.Helper()
	anchors, err := cipher.NewAnchorSet(textLen)
	require.NoError(t, err)
	return anchors
}

func TestBatteryEnglishWindowPublishable(t *testing.T) {
	b := newBattery(t)

	result, err := b.TestCandidate(context.Background(), ports.NullTestRequest{
		RunID:     core.RunID("run-english"),
		Candidate: core.CandidateID("cand-english"),
		Plaintext: fullyDetermined(t, englishWindow),
		Anchors:   emptyAnchors(t, len(englishWindow)),
		Policy:    ports.PolicyShuffle,
		Samples:   1000,
		Seed:      42,
		Gate:      gateConfig(),
	})
	require.NoError(t, err)

	assert.Equal(t, len(englishWindow), result.WindowSize)
	assert.Equal(t, 1000, result.Report.NullSamples)
	assert.True(t, result.Publishable)

	for _, name := range []string{"coverage", "f_words"} {
		score, ok := result.Report.Score(name)
		require.True(t, ok, name)
		assert.True(t, score.InFamily, name)
		assert.Less(t, score.AdjustedP, 0.01, name)
		assert.GreaterOrEqual(t, score.AdjustedP, score.EmpiricalP, name)
		assert.Greater(t, score.Value, score.Null.Mean,
			"%s: ordered English should beat its own shuffles", name)
	}

	// Diagnostics ride along unadjusted and never join the family.
	chi, ok := result.Report.Score("chi2_letters_p")
	require.True(t, ok)
	assert.False(t, chi.InFamily)
	assert.InDelta(t, chi.EmpiricalP, chi.AdjustedP, 1e-12)
}

func TestBatteryGibberishNotPublishable(t *testing.T) {
	// Scenario: a fully determined candidate whose non-anchor window is
	// vowelless noise. Anchors are masked, and mirrored nulls of noise
	// score exactly like the noise itself, so every in-family p lands on
	// 1 and the candidate must not publish even at K=10000.
	anchors := testkit.K4Anchors()
	gibberish := "QZXJVK"

	b := candidate.NewBuilder(anchors.TextLen())
	k := 0
	for i := 0; i < anchors.TextLen(); i++ {
		if r, ok := anchors.PlaintextAt(i); ok {
			b.Determine(i, r)
			continue
		}
		b.Determine(i, res(t, gibberish[k%len(gibberish)]))
		k++
	}
	plain := b.Build()

	result, err := newBattery(t).TestCandidate(context.Background(), ports.NullTestRequest{
		RunID:     core.RunID("run-gibberish"),
		Candidate: core.CandidateID("cand-gibberish"),
		Plaintext: plain,
		Anchors:   anchors,
		Policy:    ports.PolicyMirror,
		Samples:   10000,
		Seed:      7,
		Gate:      gateConfig(),
	})
	require.NoError(t, err)

	assert.Equal(t, 73, result.WindowSize)
	assert.False(t, result.Publishable)

	for _, name := range []string{"coverage", "f_words"} {
		score, ok := result.Report.Score(name)
		require.True(t, ok, name)
		assert.InDelta(t, 0.0, score.Value, 1e-12, name)
		assert.InDelta(t, 0.0, score.Null.Mean, 1e-12, name)
		assert.InDelta(t, 1.0, score.EmpiricalP, 1e-12, name)
		assert.InDelta(t, 1.0, score.AdjustedP, 1e-12, name)
	}
}

func TestBatteryAnchorsAloneAreNoEvidence(t *testing.T) {
	// A candidate that determines nothing beyond the anchors has an
	// empty window: every null scores exactly like it, p pins to 1.
	anchors := testkit.K4Anchors()
	b := candidate.NewBuilder(anchors.TextLen())
	for i := 0; i < anchors.TextLen(); i++ {
		if r, ok := anchors.PlaintextAt(i); ok {
			b.Determine(i, r)
		}
	}

	result, err := newBattery(t).TestCandidate(context.Background(), ports.NullTestRequest{
		RunID:     core.RunID("run-anchors-only"),
		Candidate: core.CandidateID("cand-anchors-only"),
		Plaintext: b.Build(),
		Anchors:   anchors,
		Policy:    ports.PolicyShuffle,
		Samples:   50,
		Seed:      1,
		Gate:      gateConfig(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.WindowSize)
	assert.False(t, result.Publishable)
	for _, score := range result.Report.FamilyScores() {
		assert.InDelta(t, 1.0, score.EmpiricalP, 1e-12, score.Metric)
	}
}

func TestBatteryBitIdenticalAcrossWorkers(t *testing.T) {
	req := ports.NullTestRequest{
		RunID:     core.RunID("run-det"),
		Candidate: core.CandidateID("cand-det"),
		Plaintext: fullyDetermined(t, englishWindow),
		Anchors:   emptyAnchors(t, len(englishWindow)),
		Policy:    ports.PolicyShuffle,
		Samples:   300,
		Seed:      1234,
		Gate:      gateConfig(),
	}

	serial := newBattery(t)
	serial.SetWorkers(1)
	parallel := newBattery(t)
	parallel.SetWorkers(8)

	a, err := serial.TestCandidate(context.Background(), req)
	require.NoError(t, err)
	b, err := parallel.TestCandidate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a.Report, b.Report)

	// Same request again on the same battery: still bit-identical.
	c, err := parallel.TestCandidate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, b.Report, c.Report)
}

func TestBatteryIgnoresRunAndCandidateIDs(t *testing.T) {
	// Run and candidate uuids are minted fresh on every invocation; the
	// null streams must key off the plaintext content instead, or a
	// replayed run could never reproduce its p-values.
	req := ports.NullTestRequest{
		RunID:     core.RunID("run-one"),
		Candidate: core.CandidateID("cand-one"),
		Plaintext: fullyDetermined(t, englishWindow),
		Anchors:   emptyAnchors(t, len(englishWindow)),
		Policy:    ports.PolicyShuffle,
		Samples:   200,
		Seed:      77,
		Gate:      gateConfig(),
	}
	b := newBattery(t)

	first, err := b.TestCandidate(context.Background(), req)
	require.NoError(t, err)

	req.RunID = core.RunID("run-two")
	req.Candidate = core.CandidateID("cand-two")
	second, err := b.TestCandidate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Report, second.Report)
}

func TestBatterySeedChangesNulls(t *testing.T) {
	base := ports.NullTestRequest{
		RunID:     core.RunID("run-seed"),
		Candidate: core.CandidateID("cand-seed"),
		Plaintext: fullyDetermined(t, englishWindow),
		Anchors:   emptyAnchors(t, len(englishWindow)),
		Policy:    ports.PolicyShuffle,
		Samples:   200,
		Seed:      1,
		Gate:      gateConfig(),
	}
	b := newBattery(t)

	first, err := b.TestCandidate(context.Background(), base)
	require.NoError(t, err)

	base.Seed = 2
	second, err := b.TestCandidate(context.Background(), base)
	require.NoError(t, err)

	assert.NotEqual(t, first.Report.Scores, second.Report.Scores)
}

func TestBatteryPolicyChangesNulls(t *testing.T) {
	base := ports.NullTestRequest{
		RunID:     core.RunID("run-policy"),
		Candidate: core.CandidateID("cand-policy"),
		Plaintext: fullyDetermined(t, englishWindow),
		Anchors:   emptyAnchors(t, len(englishWindow)),
		Policy:    ports.PolicyShuffle,
		Samples:   150,
		Seed:      5,
		Gate:      gateConfig(),
	}
	b := newBattery(t)

	shuffled, err := b.TestCandidate(context.Background(), base)
	require.NoError(t, err)

	base.Policy = ports.PolicyBootstrap
	boot, err := b.TestCandidate(context.Background(), base)
	require.NoError(t, err)

	// Bootstrap resamples the letter multiset, so even order-invariant
	// letter statistics shift; shuffle keeps them fixed.
	assert.NotEqual(t, shuffled.Report.Scores, boot.Report.Scores)
}

func TestBatteryDefaultsSampleCount(t *testing.T) {
	req := ports.NullTestRequest{
		RunID:     core.RunID("run-defaults"),
		Candidate: core.CandidateID("cand-defaults"),
		Plaintext: fullyDetermined(t, "THETIME"),
		Anchors:   emptyAnchors(t, 7),
		Policy:    ports.PolicyShuffle,
		Samples:   0,
		Seed:      3,
		Gate:      gateConfig(),
	}

	result, err := newBattery(t).TestCandidate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1000, result.Report.NullSamples)
}

func TestBatteryRejectsBadInputs(t *testing.T) {
	b := newBattery(t)
	valid := ports.NullTestRequest{
		RunID:     core.RunID("run-bad"),
		Candidate: core.CandidateID("cand-bad"),
		Plaintext: fullyDetermined(t, "THETIME"),
		Anchors:   emptyAnchors(t, 7),
		Policy:    ports.PolicyShuffle,
		Samples:   10,
		Seed:      3,
		Gate:      gateConfig(),
	}

	t.Run("unknown policy", func(t *testing.T) {
		req := valid
		req.Policy = ports.NullPolicy("banana")
		_, err := b.TestCandidate(context.Background(), req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown null policy")
	})

	t.Run("invalid gate config", func(t *testing.T) {
		req := valid
		req.Gate.Alpha = 0
		_, err := b.TestCandidate(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrInvalidGateConfig)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := b.TestCandidate(ctx, valid)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
