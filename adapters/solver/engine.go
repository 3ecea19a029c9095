package solver

import (
	"context"
	"errors"
	"fmt"

	"gokryptos/domain/candidate"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/schedule"
	"gokryptos/ports"
)

// Engine derives key schedules from anchor constraints and decrypts
// what the schedules determine. It implements ports.SolverPort. All
// work is pure computation over the inputs; the engine holds no state
// between calls.
type Engine struct{}

// New returns the solving engine.
func New() *Engine {
	return &Engine{}
}

var _ ports.SolverPort = (*Engine)(nil)

// isLawfulness separates schedule-rejection errors, which are reported
// as unlawful outcomes, from everything else, which aborts the call.
func isLawfulness(err error) bool {
	return errors.Is(err, schedule.ErrCollision) || errors.Is(err, schedule.ErrIllegalPassThrough)
}

// Solve forces the anchors into a fresh schedule for one plan. Anchor
// cells are applied in ascending index order, so the first conflict
// reported is always the earliest one. When every cell forces cleanly
// the engine decrypts all determined positions, round-trips each one,
// and checks the anchors reproduce themselves.
func (e *Engine) Solve(ctx context.Context, text cipher.Text, anchors cipher.AnchorSet, plan schedule.Plan) (*ports.SolveOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text.Len() != anchors.TextLen() {
		return nil, fmt.Errorf("%w: anchor set sized for %d letters, text has %d",
			core.ErrInvalidAnchor, anchors.TextLen(), text.Len())
	}

	sched, err := schedule.NewSchedule(plan)
	if err != nil {
		return nil, err
	}

	for _, i := range anchors.Positions() {
		p, _ := anchors.PlaintextAt(i)
		if err := sched.Force(i, p, text.At(i)); err != nil {
			if isLawfulness(err) {
				return &ports.SolveOutcome{Lawful: false, Failure: err}, nil
			}
			return nil, err
		}
	}

	plain, err := e.propagate(text, sched)
	if err != nil {
		return nil, err
	}

	for _, i := range anchors.Positions() {
		want, _ := anchors.PlaintextAt(i)
		got, ok := plain.At(i).Residue()
		if !ok || got != want {
			return nil, fmt.Errorf("anchor at index %d decrypts to %c, anchor says %c",
				i, got.Letter(), want.Letter())
		}
	}

	return &ports.SolveOutcome{Lawful: true, Schedule: sched, Plaintext: plain}, nil
}

// propagate decrypts every position whose wheel slot is forced and
// re-encrypts it against the original ciphertext. Positions reading an
// unforced slot stay unknown; propagation never guesses.
func (e *Engine) propagate(text cipher.Text, sched *schedule.Schedule) (candidate.Plaintext, error) {
	b := candidate.NewBuilder(text.Len())
	for i := 0; i < text.Len(); i++ {
		c := text.At(i)
		p, ok := sched.DecryptAt(i, c)
		if !ok {
			continue
		}
		enc, _ := sched.EncryptAt(i, p)
		if enc != c {
			return candidate.Plaintext{}, &schedule.RoundTripError{Index: i, Want: c, Got: enc}
		}
		b.Determine(i, p)
	}
	return b.Build(), nil
}
