package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"gokryptos/domain/candidate"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/domain/run"
	"gokryptos/domain/schedule"
	"gokryptos/ports"
)

const defaultGateParallelism = 4

// GateService walks candidates through the acceptance pipeline:
// lawfulness, phrase tracks, the null battery, decision. Every terminal
// is an explicit persisted verdict; no stage retries.
type GateService struct {
	solver  ports.SolverPort
	scorer  ports.ScorerPort
	battery ports.NullBatteryPort
	ledger  ports.LedgerWriterPort
}

// NewGateService creates a gate service.
func NewGateService(solver ports.SolverPort, scorer ports.ScorerPort, battery ports.NullBatteryPort, ledger ports.LedgerWriterPort) *GateService {
	return &GateService{solver: solver, scorer: scorer, battery: battery, ledger: ledger}
}

// GateRequest runs one pinned plan through the full pipeline.
type GateRequest struct {
	Text        cipher.Text
	Anchors     cipher.AnchorSet
	Plan        schedule.Plan
	Seed        int64
	NullPolicy  string
	NullSamples int
	Gate        gate.Config
}

// GateResult is the recorded outcome for one candidate.
type GateResult struct {
	Manifest  run.Manifest   `json:"manifest"`
	Candidate *run.Candidate `json:"candidate,omitempty"`
	Verdict   gate.Verdict   `json:"verdict"`
	RuntimeMs int64          `json:"runtime_ms"`
}

// RunCandidate executes the state machine for one plan. Unlawful plans
// and failed gates come back as verdicts, not errors; the error return
// is reserved for cancellation, storage failures, and internal
// invariant breaks such as a round-trip mismatch.
func (s *GateService) RunCandidate(ctx context.Context, req GateRequest) (*GateResult, error) {
	started := time.Now()
	policy, err := s.validateGateInputs(req.Text, req.Anchors, req.NullPolicy, req.Gate)
	if err != nil {
		return nil, err
	}

	manifest := run.NewPlanManifest(req.Text, req.Anchors, req.Plan, req.Seed, req.NullSamples, req.NullPolicy, req.Gate)
	if err := s.ledger.StoreManifest(ctx, manifest); err != nil {
		return nil, fmt.Errorf("storing manifest: %w", err)
	}

	outcome, err := s.solver.Solve(ctx, req.Text, req.Anchors, req.Plan)
	if err != nil {
		return nil, fmt.Errorf("lawfulness check: %w", err)
	}

	if !outcome.Lawful {
		verdict := unlawfulVerdict(manifest.ID, core.NewCandidateID(), outcome.Failure)
		if err := s.ledger.StoreVerdict(ctx, verdict); err != nil {
			return nil, fmt.Errorf("storing verdict: %w", err)
		}
		return &GateResult{
			Manifest:  manifest,
			Verdict:   verdict,
			RuntimeMs: time.Since(started).Milliseconds(),
		}, nil
	}

	cand := run.NewCandidate(manifest.ID, outcome.Schedule, outcome.Plaintext)
	if err := s.ledger.StoreCandidate(ctx, cand); err != nil {
		return nil, fmt.Errorf("storing candidate: %w", err)
	}

	verdict, err := s.judge(ctx, manifest.ID, cand.ID, outcome.Plaintext, req.Anchors, policy, req.NullSamples, req.Seed, req.Gate)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.StoreVerdict(ctx, verdict); err != nil {
		return nil, fmt.Errorf("storing verdict: %w", err)
	}

	return &GateResult{
		Manifest:  manifest,
		Candidate: &cand,
		Verdict:   verdict,
		RuntimeMs: time.Since(started).Milliseconds(),
	}, nil
}

// GateSearchRequest sweeps bounds and gates every lawful hit.
type GateSearchRequest struct {
	Text        cipher.Text
	Anchors     cipher.AnchorSet
	Formulas    []string
	Bounds      schedule.Bounds
	Seed        int64
	NullPolicy  string
	NullSamples int
	Gate        gate.Config
	MaxResults  int
	Parallelism int
}

// GateSearchResult aggregates the batch: candidates and verdicts are
// index-aligned with the search's enumeration order.
type GateSearchResult struct {
	Manifest    run.Manifest        `json:"manifest"`
	Report      *ports.SearchReport `json:"-"`
	Candidates  []run.Candidate     `json:"candidates"`
	Verdicts    []gate.Verdict      `json:"verdicts"`
	Publishable int                 `json:"publishable"`
	RuntimeMs   int64               `json:"runtime_ms"`
}

// RunSearch enumerates lawful schedules within bounds and gates each
// hit. Gating fans out under a weighted semaphore; verdicts land by
// index, so the batch result is independent of scheduling order.
func (s *GateService) RunSearch(ctx context.Context, req GateSearchRequest) (*GateSearchResult, error) {
	started := time.Now()
	policy, err := s.validateGateInputs(req.Text, req.Anchors, req.NullPolicy, req.Gate)
	if err != nil {
		return nil, err
	}
	if len(req.Formulas) == 0 {
		return nil, fmt.Errorf("%w: no formulas requested", core.ErrInvalidFormula)
	}
	if err := req.Bounds.Validate(); err != nil {
		return nil, err
	}

	manifest := run.NewManifest(req.Text, req.Anchors, req.Formulas, req.Bounds, req.Seed, req.NullSamples, req.NullPolicy, req.Gate)
	if err := s.ledger.StoreManifest(ctx, manifest); err != nil {
		return nil, fmt.Errorf("storing manifest: %w", err)
	}

	report, err := s.solver.Search(ctx, ports.SearchRequest{
		Text:        req.Text,
		Anchors:     req.Anchors,
		Formulas:    req.Formulas,
		Bounds:      req.Bounds,
		MaxResults:  req.MaxResults,
		Parallelism: req.Parallelism,
	})
	if err != nil {
		return nil, fmt.Errorf("searching schedules: %w", err)
	}

	candidates := make([]run.Candidate, len(report.Hits))
	for i, hit := range report.Hits {
		candidates[i] = run.NewCandidate(manifest.ID, hit.Schedule, hit.Plaintext)
		if err := s.ledger.StoreCandidate(ctx, candidates[i]); err != nil {
			return nil, fmt.Errorf("storing candidate: %w", err)
		}
	}

	parallelism := req.Parallelism
	if parallelism < 1 {
		parallelism = defaultGateParallelism
	}
	sem := semaphore.NewWeighted(int64(parallelism))
	verdicts := make([]gate.Verdict, len(report.Hits))
	judgeErrs := make([]error, len(report.Hits))

	for i := range report.Hits {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(i int) {
			defer sem.Release(1)
			verdicts[i], judgeErrs[i] = s.judge(ctx, manifest.ID, candidates[i].ID,
				report.Hits[i].Plaintext, req.Anchors, policy, req.NullSamples, req.Seed, req.Gate)
		}(i)
	}
	// Barrier: reacquire full weight once every worker has released.
	if err := sem.Acquire(ctx, int64(parallelism)); err != nil {
		return nil, err
	}
	sem.Release(int64(parallelism))

	publishable := 0
	for i := range verdicts {
		if judgeErrs[i] != nil {
			return nil, fmt.Errorf("gating candidate %s: %w", candidates[i].ID, judgeErrs[i])
		}
		if err := s.ledger.StoreVerdict(ctx, verdicts[i]); err != nil {
			return nil, fmt.Errorf("storing verdict: %w", err)
		}
		if verdicts[i].Publishable() {
			publishable++
		}
	}

	return &GateSearchResult{
		Manifest:    manifest,
		Report:      report,
		Candidates:  candidates,
		Verdicts:    verdicts,
		Publishable: publishable,
		RuntimeMs:   time.Since(started).Milliseconds(),
	}, nil
}

// judge runs the phrase gate and the null battery for one lawful
// candidate and assembles its verdict. Storage stays with the callers.
func (s *GateService) judge(
	ctx context.Context,
	runID core.RunID,
	candID core.CandidateID,
	plain candidate.Plaintext,
	anchors cipher.AnchorSet,
	policy ports.NullPolicy,
	samples int,
	seed int64,
	gcfg gate.Config,
) (gate.Verdict, error) {
	window := candidate.Window(plain, anchors)
	values, err := s.scorer.Score(ctx, window)
	if err != nil {
		return gate.Verdict{}, fmt.Errorf("scoring window: %w", err)
	}

	tracks, accepted := gate.EvaluateTracks(gcfg, values)
	if !accepted {
		return gate.Verdict{
			ID:          core.NewID(),
			RunID:       runID,
			CandidateID: candID,
			Reached:     gate.StagePhrase,
			Decision:    gate.DecisionNotPublishable,
			Reason:      gate.ReasonPhraseGate,
			Detail:      trackFailureDetail(tracks),
			Tracks:      tracks,
			DecidedAt:   core.Now(),
		}, nil
	}

	nt, err := s.battery.TestCandidate(ctx, ports.NullTestRequest{
		RunID:     runID,
		Candidate: candID,
		Plaintext: plain,
		Anchors:   anchors,
		Policy:    policy,
		Samples:   samples,
		Seed:      seed,
		Gate:      gcfg,
	})
	if err != nil {
		return gate.Verdict{}, fmt.Errorf("null test: %w", err)
	}

	verdict := gate.Verdict{
		ID:          core.NewID(),
		RunID:       runID,
		CandidateID: candID,
		Reached:     gate.StageDecided,
		Tracks:      tracks,
		Report:      &nt.Report,
		DecidedAt:   core.Now(),
	}
	if nt.Publishable {
		verdict.Decision = gate.DecisionPublishable
	} else {
		verdict.Decision = gate.DecisionNotPublishable
		verdict.Reason = gate.ReasonNullTest
		verdict.Detail = nullFailureDetail(nt.Report)
	}
	return verdict, nil
}

func (s *GateService) validateGateInputs(text cipher.Text, anchors cipher.AnchorSet, policy string, gcfg gate.Config) (ports.NullPolicy, error) {
	if err := validateTextAnchors(text, anchors); err != nil {
		return "", err
	}
	parsed, err := ports.ParseNullPolicy(policy)
	if err != nil {
		return "", err
	}
	if err := gcfg.Validate(); err != nil {
		return "", err
	}
	return parsed, nil
}

// unlawfulVerdict converts a typed schedule failure into a terminal
// rejection. No candidate record exists for an unlawful plan; the
// verdict still gets a fresh candidate id so the one-verdict-per-
// candidate shape holds.
func unlawfulVerdict(runID core.RunID, candID core.CandidateID, failure error) gate.Verdict {
	reason := gate.ReasonCollision
	if errors.Is(failure, schedule.ErrIllegalPassThrough) {
		reason = gate.ReasonPassThrough
	}
	detail := ""
	if failure != nil {
		detail = failure.Error()
	}
	return gate.Verdict{
		ID:          core.NewID(),
		RunID:       runID,
		CandidateID: candID,
		Reached:     gate.StageLawfulness,
		Decision:    gate.DecisionNotPublishable,
		Reason:      reason,
		Detail:      detail,
		DecidedAt:   core.Now(),
	}
}

func trackFailureDetail(tracks []gate.TrackResult) string {
	var parts []string
	for _, tr := range tracks {
		if tr.Passed {
			continue
		}
		for _, c := range tr.Checks {
			if c.Met {
				continue
			}
			if !c.Found {
				parts = append(parts, fmt.Sprintf("%s: metric %s not produced", tr.Name, c.Metric))
			} else {
				parts = append(parts, fmt.Sprintf("%s: %s %.4f < %.4f", tr.Name, c.Metric, c.Value, c.Threshold))
			}
		}
	}
	return strings.Join(parts, "; ")
}

func nullFailureDetail(r gate.ScoreReport) string {
	var parts []string
	for _, sc := range r.FamilyScores() {
		if sc.AdjustedP >= r.Alpha {
			parts = append(parts, fmt.Sprintf("%s adjusted p %.4f >= alpha %g", sc.Metric, sc.AdjustedP, r.Alpha))
		}
	}
	return strings.Join(parts, "; ")
}
