package cipher

import (
	"fmt"

	"gokryptos/domain/core"
)

// Text is an immutable sequence of uppercase letters stored as residues.
// The zero value is an empty text.
type Text struct {
	rs []Residue
}

// ParseText validates and converts an A-Z string.
func ParseText(s string) (Text, error) {
	if len(s) == 0 {
		return Text{}, fmt.Errorf("%w: empty", core.ErrInvalidCiphertext)
	}
	rs := make([]Residue, len(s))
	for i := 0; i < len(s); i++ {
		r, ok := ResidueOf(s[i])
		if !ok {
			return Text{}, fmt.Errorf("%w: non-letter %q at index %d", core.ErrInvalidCiphertext, s[i], i)
		}
		rs[i] = r
	}
	return Text{rs: rs}, nil
}

// MustText is ParseText for fixtures and tests; it panics on invalid input.
func MustText(s string) Text {
	t, err := ParseText(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of letters.
func (t Text) Len() int {
	return len(t.rs)
}

// At returns the residue at index i.
func (t Text) At(i int) Residue {
	return t.rs[i]
}

// Residues returns a copy of the underlying residues.
func (t Text) Residues() []Residue {
	out := make([]Residue, len(t.rs))
	copy(out, t.rs)
	return out
}

// String renders the text as uppercase letters.
func (t Text) String() string {
	b := make([]byte, len(t.rs))
	for i, r := range t.rs {
		b[i] = r.Letter()
	}
	return string(b)
}

// Hash returns the content hash identifying this text.
func (t Text) Hash() core.TextHash {
	return core.NewTextHash([]byte(t.String()))
}

// Equals reports letter-for-letter equality.
func (t Text) Equals(other Text) bool {
	if len(t.rs) != len(other.rs) {
		return false
	}
	for i := range t.rs {
		if t.rs[i] != other.rs[i] {
			return false
		}
	}
	return true
}
