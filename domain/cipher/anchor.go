package cipher

import (
	"fmt"
	"sort"
	"strings"

	"gokryptos/domain/core"
)

// Anchor pins a span of known plaintext to ciphertext indices [Start, End).
// Anchors are given, never derived; the plaintext length always equals the
// span length.
type Anchor struct {
	Start     int
	Plaintext Text
}

// End returns the exclusive end index of the span.
func (a Anchor) End() int {
	return a.Start + a.Plaintext.Len()
}

// Contains reports whether index i falls inside the span.
func (a Anchor) Contains(i int) bool {
	return i >= a.Start && i < a.End()
}

// NewAnchor builds an anchor from a start index and its known plaintext.
func NewAnchor(start int, plaintext string) (Anchor, error) {
	if start < 0 {
		return Anchor{}, fmt.Errorf("%w: negative start %d", core.ErrInvalidAnchor, start)
	}
	pt, err := ParseText(plaintext)
	if err != nil {
		return Anchor{}, fmt.Errorf("%w: plaintext: %v", core.ErrInvalidAnchor, err)
	}
	return Anchor{Start: start, Plaintext: pt}, nil
}

// AnchorSet is a validated, start-ordered, non-overlapping collection of
// anchors over a ciphertext of a fixed length.
type AnchorSet struct {
	textLen int
	anchors []Anchor
	covered map[int]Residue
}

// NewAnchorSet validates spans against the ciphertext length and each other.
func NewAnchorSet(textLen int, anchors ...Anchor) (AnchorSet, error) {
	if textLen <= 0 {
		return AnchorSet{}, fmt.Errorf("%w: text length %d", core.ErrInvalidCiphertext, textLen)
	}
	sorted := make([]Anchor, len(anchors))
	copy(sorted, anchors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	covered := make(map[int]Residue)
	for i, a := range sorted {
		if a.Plaintext.Len() == 0 {
			return AnchorSet{}, fmt.Errorf("%w: empty plaintext at start %d", core.ErrInvalidAnchor, a.Start)
		}
		if a.Start < 0 || a.End() > textLen {
			return AnchorSet{}, fmt.Errorf("%w: span [%d,%d) outside text of length %d",
				core.ErrInvalidAnchor, a.Start, a.End(), textLen)
		}
		if i > 0 && a.Start < sorted[i-1].End() {
			return AnchorSet{}, fmt.Errorf("%w: [%d,%d) and [%d,%d)",
				core.ErrAnchorOverlap, sorted[i-1].Start, sorted[i-1].End(), a.Start, a.End())
		}
		for j := 0; j < a.Plaintext.Len(); j++ {
			covered[a.Start+j] = a.Plaintext.At(j)
		}
	}
	return AnchorSet{textLen: textLen, anchors: sorted, covered: covered}, nil
}

// TextLen returns the ciphertext length the set was validated against.
func (s AnchorSet) TextLen() int {
	return s.textLen
}

// Anchors returns the anchors in start order.
func (s AnchorSet) Anchors() []Anchor {
	out := make([]Anchor, len(s.anchors))
	copy(out, s.anchors)
	return out
}

// Covers reports whether index i is pinned by any anchor.
func (s AnchorSet) Covers(i int) bool {
	_, ok := s.covered[i]
	return ok
}

// PlaintextAt returns the known plaintext residue at index i, if pinned.
func (s AnchorSet) PlaintextAt(i int) (Residue, bool) {
	r, ok := s.covered[i]
	return r, ok
}

// Positions returns all pinned indices in ascending order.
func (s AnchorSet) Positions() []int {
	out := make([]int, 0, len(s.covered))
	for i := range s.covered {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Count returns the number of pinned indices.
func (s AnchorSet) Count() int {
	return len(s.covered)
}

// Describe returns the canonical string used in fingerprints,
// e.g. "21:EAST;25:NORTHEAST;63:BERLINCLOCK".
func (s AnchorSet) Describe() string {
	parts := make([]string, len(s.anchors))
	for i, a := range s.anchors {
		parts[i] = fmt.Sprintf("%d:%s", a.Start, a.Plaintext.String())
	}
	return strings.Join(parts, ";")
}
