package schedule

import (
	"fmt"
	"strings"

	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
)

// unset marks an empty wheel slot.
const unset = -1

// Wheel is one class's periodic key. Slots start empty and are filled
// by forcing anchor cells; a slot, once forced, is immutable.
type Wheel struct {
	class  int
	family cipher.Family
	period int
	phase  int
	slots  []int16 // unset or a residue 0..25
	origin []int   // index that first forced each slot
}

// NewWheel returns an empty wheel for one class.
func NewWheel(class int, family cipher.Family, period, phase int) (*Wheel, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: class %d period %d", core.ErrInvalidSchedule, class, period)
	}
	if phase < 0 || phase >= period {
		return nil, fmt.Errorf("%w: class %d phase %d outside [0,%d)", core.ErrInvalidSchedule, class, phase, period)
	}
	w := &Wheel{
		class:  class,
		family: family,
		period: period,
		phase:  phase,
		slots:  make([]int16, period),
		origin: make([]int, period),
	}
	for s := range w.slots {
		w.slots[s] = unset
		w.origin[s] = unset
	}
	return w, nil
}

func (w *Wheel) Class() int            { return w.class }
func (w *Wheel) Family() cipher.Family { return w.family }
func (w *Wheel) Period() int           { return w.period }
func (w *Wheel) Phase() int            { return w.phase }

// SlotOf maps a ciphertext index to the wheel slot it reads.
func (w *Wheel) SlotOf(i int) int {
	return (i + w.phase) % w.period
}

// Force derives the key residue implied by a plaintext/ciphertext pair
// at index i and writes it into the slot the index reads. It fails if
// the derived residue is an illegal pass-through or if the slot was
// already forced to a different residue.
func (w *Wheel) Force(i int, plain, ciph cipher.Residue) error {
	k := w.family.KeyResidue(plain, ciph)
	s := w.SlotOf(i)
	if k == 0 && w.family.Additive() {
		return &PassThroughError{Class: w.class, Slot: s, Index: i, Family: w.family}
	}
	if w.slots[s] != unset {
		if cipher.Residue(w.slots[s]) != k {
			return &CollisionError{
				Class: w.class,
				Slot:  s,
				First: w.origin[s],
				Index: i,
				Have:  cipher.Residue(w.slots[s]),
				Want:  k,
			}
		}
		return nil
	}
	w.slots[s] = int16(k)
	w.origin[s] = i
	return nil
}

// At returns the key residue index i reads, if its slot is forced.
func (w *Wheel) At(i int) (cipher.Residue, bool) {
	s := w.SlotOf(i)
	if w.slots[s] == unset {
		return 0, false
	}
	return cipher.Residue(w.slots[s]), true
}

// Filled counts forced slots.
func (w *Wheel) Filled() int {
	n := 0
	for _, v := range w.slots {
		if v != unset {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (w *Wheel) Clone() *Wheel {
	c := &Wheel{
		class:  w.class,
		family: w.family,
		period: w.period,
		phase:  w.phase,
		slots:  make([]int16, len(w.slots)),
		origin: make([]int, len(w.origin)),
	}
	copy(c.slots, w.slots)
	copy(c.origin, w.origin)
	return c
}

// dump renders the slot contents, '.' for unset, for fingerprints.
func (w *Wheel) dump() string {
	var b strings.Builder
	for _, v := range w.slots {
		if v == unset {
			b.WriteByte('.')
		} else {
			b.WriteByte(cipher.Residue(v).Letter())
		}
	}
	return b.String()
}
