package app_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokryptos/app"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/schedule"
	"gokryptos/internal/testkit"
)

func newKit(t *testing.T) *testkit.Kit {
	t.Helper()
	kit, err := testkit.New()
	require.NoError(t, err)
	return kit
}

func allVigenerePlan(t *testing.T) schedule.Plan {
	t.Helper()
	plan, err := schedule.UniformPlan("baseline", schedule.ClassConfig{
		Family: cipher.Vigenere, Period: 17, Phase: 0,
	})
	require.NoError(t, err)
	return plan
}

func periodSeventeenBounds() schedule.Bounds {
	return schedule.Bounds{
		Families:  []cipher.Family{cipher.Vigenere, cipher.Beaufort},
		MinPeriod: 17,
		MaxPeriod: 17,
	}
}

func TestSolvePlanStoresManifestAndCandidate(t *testing.T) {
	kit := newKit(t)
	svc := app.NewSolveService(kit.Solver(), kit.Ledger())
	ctx := context.Background()

	res, err := svc.SolvePlan(ctx, app.SolvePlanRequest{
		Text:    testkit.K4Text(),
		Anchors: testkit.K4Anchors(),
		Plan:    testkit.ReferencePlan(),
		Seed:    1337,
	})
	require.NoError(t, err)

	assert.True(t, res.Lawful)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, 24, res.Candidate.Determined)
	assert.Equal(t, 73, res.Candidate.Unknown)
	assert.Contains(t, res.Candidate.Plaintext, "EASTNORTHEAST")

	assert.Equal(t, []string{"baseline"}, res.Manifest.Formulas)
	assert.True(t, strings.HasPrefix(res.Manifest.Bounds, "plan="))
	require.NoError(t, res.Manifest.Verify())

	stored, err := kit.Ledger().GetManifest(ctx, res.Manifest.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Manifest.Fingerprint, stored.Fingerprint)

	cands, err := kit.Ledger().GetCandidatesByRun(ctx, res.Manifest.ID)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, res.Candidate.ID, cands[0].ID)
}

func TestSolvePlanUnlawfulRecordsManifestOnly(t *testing.T) {
	kit := newKit(t)
	svc := app.NewSolveService(kit.Solver(), kit.Ledger())
	ctx := context.Background()

	res, err := svc.SolvePlan(ctx, app.SolvePlanRequest{
		Text:    testkit.K4Text(),
		Anchors: testkit.K4Anchors(),
		Plan:    allVigenerePlan(t),
		Seed:    1337,
	})
	require.NoError(t, err)

	assert.False(t, res.Lawful)
	assert.Nil(t, res.Candidate)
	require.NotNil(t, res.Outcome)
	assert.ErrorIs(t, res.Outcome.Failure, schedule.ErrIllegalPassThrough)

	// The negative result still leaves an auditable manifest behind.
	_, err = kit.Ledger().GetManifest(ctx, res.Manifest.ID)
	require.NoError(t, err)
	cands, err := kit.Ledger().GetCandidatesByRun(ctx, res.Manifest.ID)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestSolvePlanRejectsMismatchedAnchors(t *testing.T) {
	kit := newKit(t)
	svc := app.NewSolveService(kit.Solver(), kit.Ledger())

	short, err := cipher.NewAnchorSet(10)
	require.NoError(t, err)

	_, err = svc.SolvePlan(context.Background(), app.SolvePlanRequest{
		Text:    testkit.K4Text(),
		Anchors: short,
		Plan:    testkit.ReferencePlan(),
	})
	assert.ErrorIs(t, err, core.ErrInvalidAnchor)
}

func TestSearchSchedulesPersistsEveryHit(t *testing.T) {
	kit := newKit(t)
	svc := app.NewSolveService(kit.Solver(), kit.Ledger())
	ctx := context.Background()

	res, err := svc.SearchSchedules(ctx, app.SearchSchedulesRequest{
		Text:     testkit.K4Text(),
		Anchors:  testkit.K4Anchors(),
		Formulas: []string{"baseline"},
		Bounds:   periodSeventeenBounds(),
		Seed:     7,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Feasible)
	assert.Equal(t, 16, res.Report.PlansEvaluated)
	require.Len(t, res.Candidates, 16)

	reference := 0
	for _, cand := range res.Candidates {
		assert.Equal(t, res.Manifest.ID, cand.RunID)
		if cand.Plan == testkit.ReferencePlan().Describe() {
			reference++
		}
	}
	assert.Equal(t, 1, reference)

	stored, err := kit.Ledger().GetCandidatesByRun(ctx, res.Manifest.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 16)
}

func TestSearchSchedulesRequiresFormulas(t *testing.T) {
	kit := newKit(t)
	svc := app.NewSolveService(kit.Solver(), kit.Ledger())

	_, err := svc.SearchSchedules(context.Background(), app.SearchSchedulesRequest{
		Text:    testkit.K4Text(),
		Anchors: testkit.K4Anchors(),
		Bounds:  periodSeventeenBounds(),
	})
	assert.ErrorIs(t, err, core.ErrInvalidFormula)
}
