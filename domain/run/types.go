package run

import (
	"gokryptos/domain/candidate"
	"gokryptos/domain/core"
	"gokryptos/domain/schedule"
)

// Candidate ties a lawful schedule to the plaintext it derives. This is
// the persisted artifact; the live Schedule and Plaintext values stay
// in memory with the services that made them.
type Candidate struct {
	ID          core.CandidateID `json:"id"`
	RunID       core.RunID       `json:"run_id"`
	Plan        string           `json:"plan"`
	WheelState  string           `json:"wheel_state"`
	Plaintext   string           `json:"plaintext"`
	Determined  int              `json:"determined"`
	Unknown     int              `json:"unknown"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
	CreatedAt   core.Timestamp   `json:"created_at"`
}

// NewCandidate records a solved schedule and its derived plaintext.
func NewCandidate(runID core.RunID, sched *schedule.Schedule, plain candidate.Plaintext) Candidate {
	c := Candidate{
		ID:         core.NewCandidateID(),
		RunID:      runID,
		Plan:       sched.Plan().Describe(),
		WheelState: sched.Dump(),
		Plaintext:  plain.String(),
		Determined: plain.DeterminedCount(),
		Unknown:    plain.UnknownCount(),
		CreatedAt:  core.Now(),
	}
	c.Fingerprint = core.NewFingerprint(c.Plan, c.WheelState, c.Plaintext)
	return c
}

// Validate checks the candidate record is complete.
func (c Candidate) Validate() error {
	if core.ID(c.ID).IsEmpty() {
		return core.NewValidationError("candidate", "id cannot be empty")
	}
	if core.ID(c.RunID).IsEmpty() {
		return core.NewValidationError("candidate", "run_id cannot be empty")
	}
	if c.Plan == "" {
		return core.NewValidationError("candidate", "plan cannot be empty")
	}
	if c.Plaintext == "" {
		return core.NewValidationError("candidate", "plaintext cannot be empty")
	}
	return nil
}
