package ports

import (
	"context"
	"fmt"

	"gokryptos/domain/candidate"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
)

// NullPolicy names a null-sample generation strategy
type NullPolicy string

const (
	PolicyShuffle   NullPolicy = "shuffle"
	PolicyMirror    NullPolicy = "mirror"
	PolicyBootstrap NullPolicy = "bootstrap"
)

// ParseNullPolicy resolves a policy name
func ParseNullPolicy(s string) (NullPolicy, error) {
	switch NullPolicy(s) {
	case PolicyShuffle, PolicyMirror, PolicyBootstrap:
		return NullPolicy(s), nil
	}
	return "", fmt.Errorf("unknown null policy %q", s)
}

// NullBatteryPort scores a candidate against a batch of seeded nulls
type NullBatteryPort interface {
	// TestCandidate generates the null batch, scores candidate and nulls with
	// the same scorer, computes add-one right-tailed p-values, applies the
	// Holm correction over the configured family, and reports publishability
	TestCandidate(ctx context.Context, req NullTestRequest) (*NullTestResult, error)
}

// NullTestRequest defines one null-hypothesis test
type NullTestRequest struct {
	RunID     core.RunID
	Candidate core.CandidateID
	Plaintext candidate.Plaintext
	Anchors   cipher.AnchorSet
	Policy    NullPolicy
	Samples   int
	Seed      int64
	Gate      gate.Config
}

// NullTestResult is the scored outcome of one null-hypothesis test
type NullTestResult struct {
	BatchID     core.BatchID
	Report      gate.ScoreReport
	Publishable bool
	WindowSize  int
	DurationMs  int64
}
