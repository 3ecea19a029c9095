package ports

import (
	"context"

	"gokryptos/domain/candidate"
	"gokryptos/domain/cipher"
	"gokryptos/domain/schedule"
)

// SolverPort derives key schedules and plaintexts from anchor constraints
type SolverPort interface {
	// Solve forces the anchors into a fresh schedule for one plan and, when
	// lawful, decrypts every forced position. Unlawful plans come back as a
	// non-nil outcome with the typed failure recorded; the error return is
	// reserved for cancellation and internal invariant breaks
	Solve(ctx context.Context, text cipher.Text, anchors cipher.AnchorSet, plan schedule.Plan) (*SolveOutcome, error)

	// Search enumerates plans over the configured bounds and returns every
	// lawful one found. An empty search space result is not an error
	Search(ctx context.Context, req SearchRequest) (*SearchReport, error)
}

// SolveOutcome is the result of solving one plan
type SolveOutcome struct {
	Lawful    bool
	Schedule  *schedule.Schedule  // set when lawful
	Plaintext candidate.Plaintext // set when lawful
	Failure   error               // typed schedule error when not lawful
}

// SearchRequest bounds a schedule search
type SearchRequest struct {
	Text        cipher.Text
	Anchors     cipher.AnchorSet
	Formulas    []string
	Bounds      schedule.Bounds
	StopAtFirst bool
	MaxResults  int
	Parallelism int
}

// SearchHit is one lawful schedule found by Search
type SearchHit struct {
	Plan      schedule.Plan
	Schedule  *schedule.Schedule
	Plaintext candidate.Plaintext
}

// SearchReport summarizes one search: hits plus enumeration accounting
type SearchReport struct {
	Hits           []SearchHit
	Feasible       bool
	PlansEvaluated int
	ClassOptions   map[string][]int // formula id -> feasible option count per class
	Truncated      bool
}
