package app

import (
	"context"
	"fmt"

	"gokryptos/domain/candidate"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/ports"
)

// NullTestService replays the null battery against a stored candidate.
// It exists for exploration: rerunning a candidate under different
// policies, sample counts, or seeds without touching its verdict.
type NullTestService struct {
	battery ports.NullBatteryPort
	ledger  ports.LedgerReaderPort
}

// NewNullTestService creates a null test service.
func NewNullTestService(battery ports.NullBatteryPort, ledger ports.LedgerReaderPort) *NullTestService {
	return &NullTestService{battery: battery, ledger: ledger}
}

// NullRunRequest names a persisted candidate and the battery knobs.
// Anchors come from the caller's configuration; the ledger stores only
// their canonical description.
type NullRunRequest struct {
	Candidate core.CandidateID
	Anchors   cipher.AnchorSet
	Policy    string
	Samples   int
	Seed      int64
	Gate      gate.Config
}

// TestStored loads the candidate, rebuilds its plaintext cells, and
// runs the battery. The result is returned, never persisted: verdicts
// belong to the gate pipeline alone.
func (s *NullTestService) TestStored(ctx context.Context, req NullRunRequest) (*ports.NullTestResult, error) {
	policy, err := ports.ParseNullPolicy(req.Policy)
	if err != nil {
		return nil, err
	}
	if err := req.Gate.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.ledger.GetCandidate(ctx, req.Candidate)
	if err != nil {
		return nil, err
	}
	plain, err := candidate.Parse(stored.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("candidate %s: %w", stored.ID, err)
	}
	if plain.Len() != req.Anchors.TextLen() {
		return nil, fmt.Errorf("%w: anchor set built for length %d, candidate has %d",
			core.ErrInvalidAnchor, req.Anchors.TextLen(), plain.Len())
	}

	return s.battery.TestCandidate(ctx, ports.NullTestRequest{
		RunID:     stored.RunID,
		Candidate: stored.ID,
		Plaintext: plain,
		Anchors:   req.Anchors,
		Policy:    policy,
		Samples:   req.Samples,
		Seed:      req.Seed,
		Gate:      req.Gate,
	})
}
