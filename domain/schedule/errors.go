package schedule

import (
	"errors"
	"fmt"

	"gokryptos/domain/cipher"
)

// Sentinel errors for the three ways a schedule can be unlawful. Typed
// errors below carry the offending cell so callers can report exactly
// where a schedule broke, while errors.Is against these sentinels stays
// the routing mechanism.
var (
	ErrCollision          = errors.New("wheel slot collision")
	ErrIllegalPassThrough = errors.New("illegal pass-through key")
	ErrRoundTripMismatch  = errors.New("round-trip mismatch")
)

// CollisionError reports two anchor cells forcing different residues
// into the same wheel slot.
type CollisionError struct {
	Class int
	Slot  int
	First int // index that originally forced the slot
	Index int // index whose forcing conflicted
	Have  cipher.Residue
	Want  cipher.Residue
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf(
		"class %d slot %d: index %d forces %c but index %d already forced %c",
		e.Class, e.Slot, e.Index, e.Want.Letter(), e.First, e.Have.Letter(),
	)
}

func (e *CollisionError) Unwrap() error {
	return ErrCollision
}

// PassThroughError reports an anchor cell deriving K=0 under an
// additive family, where the cell would decrypt to its own ciphertext.
type PassThroughError struct {
	Class  int
	Slot   int
	Index  int
	Family cipher.Family
}

func (e *PassThroughError) Error() string {
	return fmt.Sprintf(
		"class %d slot %d: index %d derives K=0 under additive family %s",
		e.Class, e.Slot, e.Index, e.Family,
	)
}

func (e *PassThroughError) Unwrap() error {
	return ErrIllegalPassThrough
}

// RoundTripError reports a re-encryption disagreeing with the original
// ciphertext at one index. This indicates a defect in the solver, not
// bad input.
type RoundTripError struct {
	Index int
	Want  cipher.Residue
	Got   cipher.Residue
}

func (e *RoundTripError) Error() string {
	return fmt.Sprintf(
		"round-trip at index %d: re-encrypted %c, ciphertext %c",
		e.Index, e.Got.Letter(), e.Want.Letter(),
	)
}

func (e *RoundTripError) Unwrap() error {
	return ErrRoundTripMismatch
}
