package app

import (
	"context"
	"fmt"
	"time"

	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/domain/run"
	"gokryptos/domain/schedule"
	"gokryptos/ports"
)

// SolveService derives schedules and plaintexts from anchor constraints
// and records every attempt in the ledger, lawful or not. It never
// scores text; acceptance belongs to the GateService.
type SolveService struct {
	solver ports.SolverPort
	ledger ports.LedgerWriterPort
}

// NewSolveService creates a solve service.
func NewSolveService(solver ports.SolverPort, ledger ports.LedgerWriterPort) *SolveService {
	return &SolveService{solver: solver, ledger: ledger}
}

// SolvePlanRequest pins one exact plan against a ciphertext and its
// anchors.
type SolvePlanRequest struct {
	Text    cipher.Text
	Anchors cipher.AnchorSet
	Plan    schedule.Plan
	Seed    int64
}

// SolvePlanResult is the recorded outcome of solving one plan.
type SolvePlanResult struct {
	Manifest  run.Manifest        `json:"manifest"`
	Lawful    bool                `json:"lawful"`
	Candidate *run.Candidate      `json:"candidate,omitempty"`
	Outcome   *ports.SolveOutcome `json:"-"`
	RuntimeMs int64               `json:"runtime_ms"`
}

// SolvePlan forces the anchors into the plan's wheels and, when lawful,
// propagates and persists the resulting candidate. An unlawful plan is
// a recorded negative result, not an error.
func (s *SolveService) SolvePlan(ctx context.Context, req SolvePlanRequest) (*SolvePlanResult, error) {
	started := time.Now()
	if err := validateTextAnchors(req.Text, req.Anchors); err != nil {
		return nil, err
	}

	manifest := run.NewPlanManifest(req.Text, req.Anchors, req.Plan, req.Seed, 0, "", gate.Config{})
	if err := s.ledger.StoreManifest(ctx, manifest); err != nil {
		return nil, fmt.Errorf("storing manifest: %w", err)
	}

	outcome, err := s.solver.Solve(ctx, req.Text, req.Anchors, req.Plan)
	if err != nil {
		return nil, fmt.Errorf("solving plan: %w", err)
	}

	result := &SolvePlanResult{
		Manifest: manifest,
		Lawful:   outcome.Lawful,
		Outcome:  outcome,
	}
	if outcome.Lawful {
		cand := run.NewCandidate(manifest.ID, outcome.Schedule, outcome.Plaintext)
		if err := s.ledger.StoreCandidate(ctx, cand); err != nil {
			return nil, fmt.Errorf("storing candidate: %w", err)
		}
		result.Candidate = &cand
	}
	result.RuntimeMs = time.Since(started).Milliseconds()
	return result, nil
}

// SearchSchedulesRequest sweeps plans over bounds, optionally across
// several classing formulas.
type SearchSchedulesRequest struct {
	Text        cipher.Text
	Anchors     cipher.AnchorSet
	Formulas    []string
	Bounds      schedule.Bounds
	Seed        int64
	StopAtFirst bool
	MaxResults  int
	Parallelism int
}

// SearchSchedulesResult carries the search report plus the persisted
// candidates, one per lawful hit in enumeration order.
type SearchSchedulesResult struct {
	Manifest   run.Manifest        `json:"manifest"`
	Report     *ports.SearchReport `json:"-"`
	Candidates []run.Candidate     `json:"candidates"`
	RuntimeMs  int64               `json:"runtime_ms"`
}

// SearchSchedules enumerates the bounded space and persists every
// lawful schedule found. An infeasible space comes back with an empty
// candidate list and Report.Feasible false; that is a result, not an
// error.
func (s *SolveService) SearchSchedules(ctx context.Context, req SearchSchedulesRequest) (*SearchSchedulesResult, error) {
	started := time.Now()
	if err := validateTextAnchors(req.Text, req.Anchors); err != nil {
		return nil, err
	}
	if len(req.Formulas) == 0 {
		return nil, fmt.Errorf("%w: no formulas requested", core.ErrInvalidFormula)
	}
	if err := req.Bounds.Validate(); err != nil {
		return nil, err
	}

	manifest := run.NewManifest(req.Text, req.Anchors, req.Formulas, req.Bounds, req.Seed, 0, "", gate.Config{})
	if err := s.ledger.StoreManifest(ctx, manifest); err != nil {
		return nil, fmt.Errorf("storing manifest: %w", err)
	}

	report, err := s.solver.Search(ctx, ports.SearchRequest{
		Text:        req.Text,
		Anchors:     req.Anchors,
		Formulas:    req.Formulas,
		Bounds:      req.Bounds,
		StopAtFirst: req.StopAtFirst,
		MaxResults:  req.MaxResults,
		Parallelism: req.Parallelism,
	})
	if err != nil {
		return nil, fmt.Errorf("searching schedules: %w", err)
	}

	candidates := make([]run.Candidate, 0, len(report.Hits))
	for _, hit := range report.Hits {
		cand := run.NewCandidate(manifest.ID, hit.Schedule, hit.Plaintext)
		if err := s.ledger.StoreCandidate(ctx, cand); err != nil {
			return nil, fmt.Errorf("storing candidate: %w", err)
		}
		candidates = append(candidates, cand)
	}

	return &SearchSchedulesResult{
		Manifest:   manifest,
		Report:     report,
		Candidates: candidates,
		RuntimeMs:  time.Since(started).Milliseconds(),
	}, nil
}

func validateTextAnchors(text cipher.Text, anchors cipher.AnchorSet) error {
	if text.Len() == 0 {
		return fmt.Errorf("%w: empty ciphertext", core.ErrInvalidCiphertext)
	}
	if anchors.TextLen() != text.Len() {
		return fmt.Errorf("%w: anchor set built for length %d, ciphertext has %d",
			core.ErrInvalidAnchor, anchors.TextLen(), text.Len())
	}
	return nil
}
