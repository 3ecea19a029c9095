package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokryptos/adapters/battery"
	"gokryptos/app"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/domain/schedule"
	"gokryptos/internal/testkit"
)

// englishPhrase is 73 letters of concatenated lexicon words. Anchoring
// the first six leaves a 67-letter window that tiles almost completely.
const englishPhrase = "WESEETHETIMEANDTHELIGHTFALLONTHEOLDWALLANDWEREADTHETRUTHINTHEDARKSTONETHE"

// noisePhrase repeats six vowelless letters; no window or shuffle of it
// ever contains a lexicon word.
const noisePhrase = "QZXJVKQZXJVKQZXJVKQZXJVKQZXJVKQZXJV"

func gateCfg() gate.Config {
	return gate.Config{
		Alpha:      0.01,
		Family:     []string{"coverage", "f_words"},
		Combinator: gate.CombinatorAnd,
		Tracks: []gate.TrackConfig{
			{Name: "lexical", Thresholds: map[string]float64{"coverage": 0.5}},
		},
	}
}

func newGateService(t *testing.T, kit *testkit.Kit) *app.GateService {
	t.Helper()
	return app.NewGateService(kit.Solver(), kit.Scorer(), battery.New(kit.Scorer(), kit.RNG()), kit.Ledger())
}

// encipheredFixture builds a ciphertext with a known true schedule: a
// uniform period-2 plan gives every baseline class a single live slot,
// so anchoring the first six letters determines the whole text.
func encipheredFixture(t *testing.T, phrase string) (cipher.Text, cipher.AnchorSet, schedule.Plan) {
	t.Helper()
	plan, err := schedule.UniformPlan("baseline", schedule.ClassConfig{
		Family: cipher.Vigenere, Period: 2, Phase: 0,
	})
	require.NoError(t, err)

	text, err := testkit.Encipher(plan, phrase, func(class, slot int) cipher.Residue {
		return cipher.Residue(class + 1)
	})
	require.NoError(t, err)

	head, err := cipher.NewAnchor(0, phrase[:6])
	require.NoError(t, err)
	anchors, err := cipher.NewAnchorSet(len(phrase), head)
	require.NoError(t, err)
	return text, anchors, plan
}

func TestGateRunCandidatePublishable(t *testing.T) {
	kit := newKit(t)
	svc := newGateService(t, kit)
	ctx := context.Background()
	text, anchors, plan := encipheredFixture(t, englishPhrase)

	res, err := svc.RunCandidate(ctx, app.GateRequest{
		Text:        text,
		Anchors:     anchors,
		Plan:        plan,
		Seed:        42,
		NullPolicy:  "shuffle",
		NullSamples: 1000,
		Gate:        gateCfg(),
	})
	require.NoError(t, err)

	require.NotNil(t, res.Candidate)
	assert.Equal(t, englishPhrase, res.Candidate.Plaintext)
	assert.Equal(t, len(englishPhrase), res.Candidate.Determined)

	v := res.Verdict
	assert.Equal(t, gate.StageDecided, v.Reached)
	assert.Equal(t, gate.DecisionPublishable, v.Decision)
	assert.Equal(t, gate.ReasonNone, v.Reason)
	assert.True(t, v.Publishable())
	assert.Equal(t, res.Manifest.ID, v.RunID)
	assert.Equal(t, res.Candidate.ID, v.CandidateID)

	require.Len(t, v.Tracks, 1)
	assert.True(t, v.Tracks[0].Passed)

	require.NotNil(t, v.Report)
	assert.True(t, v.Report.Publishable())
	for _, name := range []string{"coverage", "f_words"} {
		score, ok := v.Report.Score(name)
		require.True(t, ok, name)
		assert.Less(t, score.AdjustedP, 0.01, name)
	}

	stored, err := kit.Ledger().GetVerdict(ctx, res.Candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, stored.ID)
	assert.Equal(t, gate.DecisionPublishable, stored.Decision)
}

func TestGateRunCandidateUnlawfulPassThrough(t *testing.T) {
	kit := newKit(t)
	svc := newGateService(t, kit)
	ctx := context.Background()

	res, err := svc.RunCandidate(ctx, app.GateRequest{
		Text:        testkit.K4Text(),
		Anchors:     testkit.K4Anchors(),
		Plan:        allVigenerePlan(t),
		Seed:        1,
		NullPolicy:  "shuffle",
		NullSamples: 100,
		Gate:        gateCfg(),
	})
	require.NoError(t, err)

	assert.Nil(t, res.Candidate)
	v := res.Verdict
	assert.Equal(t, gate.StageLawfulness, v.Reached)
	assert.Equal(t, gate.DecisionNotPublishable, v.Decision)
	assert.Equal(t, gate.ReasonPassThrough, v.Reason)
	assert.NotEmpty(t, v.Detail)
	assert.False(t, v.Publishable())
	assert.Nil(t, v.Report)

	// No candidate record exists, but the rejection is still on file
	// under the verdict's own candidate id.
	cands, err := kit.Ledger().GetCandidatesByRun(ctx, res.Manifest.ID)
	require.NoError(t, err)
	assert.Empty(t, cands)
	stored, err := kit.Ledger().GetVerdict(ctx, v.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, gate.ReasonPassThrough, stored.Reason)
}

func TestGateRunCandidatePhraseRejection(t *testing.T) {
	kit := newKit(t)
	svc := newGateService(t, kit)
	ctx := context.Background()

	// The three clues alone determine nothing outside their own spans
	// at period 17, so the scoring window is empty and coverage is 0.
	res, err := svc.RunCandidate(ctx, app.GateRequest{
		Text:        testkit.K4Text(),
		Anchors:     testkit.K4Anchors(),
		Plan:        testkit.ReferencePlan(),
		Seed:        9,
		NullPolicy:  "shuffle",
		NullSamples: 100,
		Gate:        gateCfg(),
	})
	require.NoError(t, err)

	require.NotNil(t, res.Candidate)
	v := res.Verdict
	assert.Equal(t, gate.StagePhrase, v.Reached)
	assert.Equal(t, gate.DecisionNotPublishable, v.Decision)
	assert.Equal(t, gate.ReasonPhraseGate, v.Reason)
	assert.Contains(t, v.Detail, "lexical: coverage")
	assert.Nil(t, v.Report)

	require.Len(t, v.Tracks, 1)
	assert.False(t, v.Tracks[0].Passed)
	require.Len(t, v.Tracks[0].Checks, 1)
	assert.Equal(t, 0.0, v.Tracks[0].Checks[0].Value)

	stored, err := kit.Ledger().GetVerdict(ctx, res.Candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, gate.StagePhrase, stored.Reached)
}

func TestGateRunCandidateNullRejection(t *testing.T) {
	kit := newKit(t)
	svc := newGateService(t, kit)
	ctx := context.Background()
	text, anchors, plan := encipheredFixture(t, noisePhrase)

	// A zero threshold lets the noise through the phrase gate, so the
	// decision has to come from the battery: shuffled noise scores
	// exactly like the noise itself and every in-family p lands on 1.
	cfg := gateCfg()
	cfg.Tracks = []gate.TrackConfig{
		{Name: "sanity", Thresholds: map[string]float64{"coverage": 0.0}},
	}

	res, err := svc.RunCandidate(ctx, app.GateRequest{
		Text:        text,
		Anchors:     anchors,
		Plan:        plan,
		Seed:        7,
		NullPolicy:  "shuffle",
		NullSamples: 300,
		Gate:        cfg,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Candidate)
	v := res.Verdict
	assert.Equal(t, gate.StageDecided, v.Reached)
	assert.Equal(t, gate.DecisionNotPublishable, v.Decision)
	assert.Equal(t, gate.ReasonNullTest, v.Reason)
	assert.Contains(t, v.Detail, "adjusted p")
	assert.False(t, v.Publishable())

	require.Len(t, v.Tracks, 1)
	assert.True(t, v.Tracks[0].Passed)

	require.NotNil(t, v.Report)
	assert.False(t, v.Report.Publishable())
	for _, score := range v.Report.FamilyScores() {
		assert.Equal(t, 1.0, score.AdjustedP, score.Metric)
	}
}

func TestGateRunSearchGatesEveryHit(t *testing.T) {
	kit := newKit(t)
	svc := newGateService(t, kit)
	ctx := context.Background()

	res, err := svc.RunSearch(ctx, app.GateSearchRequest{
		Text:        testkit.K4Text(),
		Anchors:     testkit.K4Anchors(),
		Formulas:    []string{"baseline"},
		Bounds:      periodSeventeenBounds(),
		Seed:        11,
		NullPolicy:  "shuffle",
		NullSamples: 100,
		Gate:        gateCfg(),
		Parallelism: 4,
	})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 16)
	require.Len(t, res.Verdicts, 16)
	assert.Equal(t, 0, res.Publishable)

	// Every hit is anchors-only at period 17, so each one dies at the
	// phrase gate with its verdict aligned to its candidate.
	for i, v := range res.Verdicts {
		assert.Equal(t, res.Manifest.ID, v.RunID)
		assert.Equal(t, res.Candidates[i].ID, v.CandidateID)
		assert.Equal(t, gate.StagePhrase, v.Reached)
		assert.Equal(t, gate.ReasonPhraseGate, v.Reason)
	}

	stored, err := kit.Ledger().GetCandidatesByRun(ctx, res.Manifest.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 16)
	for _, cand := range stored {
		v, err := kit.Ledger().GetVerdict(ctx, cand.ID)
		require.NoError(t, err)
		assert.Equal(t, gate.DecisionNotPublishable, v.Decision)
	}
}

func TestGateRunSearchDeterministicAcrossParallelism(t *testing.T) {
	run := func(parallelism int) []gate.Verdict {
		kit := newKit(t)
		res, err := newGateService(t, kit).RunSearch(context.Background(), app.GateSearchRequest{
			Text:        testkit.K4Text(),
			Anchors:     testkit.K4Anchors(),
			Formulas:    []string{"baseline"},
			Bounds:      periodSeventeenBounds(),
			Seed:        3,
			NullPolicy:  "shuffle",
			NullSamples: 50,
			Gate:        gateCfg(),
			Parallelism: parallelism,
		})
		require.NoError(t, err)
		return res.Verdicts
	}

	serial := run(1)
	parallel := run(8)
	require.Equal(t, len(serial), len(parallel))
	for i := range serial {
		assert.Equal(t, serial[i].Reached, parallel[i].Reached)
		assert.Equal(t, serial[i].Decision, parallel[i].Decision)
		assert.Equal(t, serial[i].Tracks, parallel[i].Tracks)
	}
}

func TestGateRejectsBadInputs(t *testing.T) {
	kit := newKit(t)
	svc := newGateService(t, kit)
	ctx := context.Background()
	text, anchors, plan := encipheredFixture(t, englishPhrase)

	_, err := svc.RunCandidate(ctx, app.GateRequest{
		Text: text, Anchors: anchors, Plan: plan,
		NullPolicy: "nope", NullSamples: 100, Gate: gateCfg(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown null policy")

	_, err = svc.RunCandidate(ctx, app.GateRequest{
		Text: text, Anchors: anchors, Plan: plan,
		NullPolicy: "shuffle", NullSamples: 100, Gate: gate.Config{},
	})
	assert.ErrorIs(t, err, core.ErrInvalidGateConfig)

	_, err = svc.RunSearch(ctx, app.GateSearchRequest{
		Text: testkit.K4Text(), Anchors: testkit.K4Anchors(),
		Bounds: periodSeventeenBounds(), NullPolicy: "shuffle",
		NullSamples: 100, Gate: gateCfg(),
	})
	assert.ErrorIs(t, err, core.ErrInvalidFormula)
}
