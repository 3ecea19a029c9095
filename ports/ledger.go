package ports

import (
	"context"

	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/domain/run"
)

// LedgerWriterPort provides append-only write access to run records.
// This is the ONLY way results are persisted - prevents read-after-write coupling
type LedgerWriterPort interface {
	StoreManifest(ctx context.Context, m run.Manifest) error
	StoreCandidate(ctx context.Context, c run.Candidate) error
	StoreVerdict(ctx context.Context, v gate.Verdict) error
}

// LedgerReaderPort provides read-only access to stored records
// Use this for queries, replay, and the CLI ledger command
type LedgerReaderPort interface {
	GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error)
	ListManifests(ctx context.Context, limit int) ([]run.Manifest, error)

	GetCandidate(ctx context.Context, id core.CandidateID) (*run.Candidate, error)
	GetCandidatesByRun(ctx context.Context, runID core.RunID) ([]run.Candidate, error)

	GetVerdict(ctx context.Context, candidateID core.CandidateID) (*gate.Verdict, error)
	ListVerdicts(ctx context.Context, filters VerdictFilters) ([]gate.Verdict, error)
}

// VerdictFilters for querying verdicts
type VerdictFilters struct {
	RunID    *core.RunID
	Decision *gate.Decision
	Limit    int
	Offset   int
}

// LedgerPort combines read and write access
type LedgerPort interface {
	LedgerWriterPort
	LedgerReaderPort
}
