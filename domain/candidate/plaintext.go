package candidate

import (
	"fmt"

	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
)

// Cell is one plaintext position. A cell is either determined, carrying
// a residue, or unknown. Unknown is a first-class state, not a sentinel
// letter; nothing downstream can mistake it for plaintext.
type Cell struct {
	known bool
	r     cipher.Residue
}

// Determined returns a cell carrying a known residue.
func Determined(r cipher.Residue) Cell {
	return Cell{known: true, r: r}
}

// Unknown returns an undetermined cell.
func Unknown() Cell {
	return Cell{}
}

// Known reports whether the cell is determined.
func (c Cell) Known() bool {
	return c.known
}

// Residue returns the residue if the cell is determined.
func (c Cell) Residue() (cipher.Residue, bool) {
	return c.r, c.known
}

// Builder accumulates cells for a fixed-length plaintext. All positions
// start unknown.
type Builder struct {
	cells []Cell
}

// NewBuilder returns a builder for n positions.
func NewBuilder(n int) *Builder {
	return &Builder{cells: make([]Cell, n)}
}

// Determine sets position i to a known residue.
func (b *Builder) Determine(i int, r cipher.Residue) {
	b.cells[i] = Determined(r)
}

// Build seals the cells into an immutable Plaintext. The builder can
// keep being used; the built value does not alias its storage.
func (b *Builder) Build() Plaintext {
	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)
	return Plaintext{cells: cells}
}

// Plaintext is a fixed-length derived plaintext of determined and
// unknown cells. It is immutable once built.
type Plaintext struct {
	cells []Cell
}

// Parse rebuilds a Plaintext from its rendered form: letters become
// determined cells, '?' becomes unknown. This is the inverse of String
// and exists for reloading persisted candidates.
func Parse(s string) (Plaintext, error) {
	if len(s) == 0 {
		return Plaintext{}, fmt.Errorf("empty plaintext")
	}
	cells := make([]Cell, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '?' {
			continue
		}
		r, ok := cipher.ResidueOf(s[i])
		if !ok {
			return Plaintext{}, fmt.Errorf("plaintext: non-letter %q at index %d", s[i], i)
		}
		cells[i] = Determined(r)
	}
	return Plaintext{cells: cells}, nil
}

// Len returns the number of positions.
func (p Plaintext) Len() int {
	return len(p.cells)
}

// At returns the cell at position i.
func (p Plaintext) At(i int) Cell {
	return p.cells[i]
}

// DeterminedCount counts known cells.
func (p Plaintext) DeterminedCount() int {
	n := 0
	for _, c := range p.cells {
		if c.known {
			n++
		}
	}
	return n
}

// UnknownCount counts undetermined cells.
func (p Plaintext) UnknownCount() int {
	return len(p.cells) - p.DeterminedCount()
}

// DeterminedPositions lists known positions in ascending order.
func (p Plaintext) DeterminedPositions() []int {
	out := make([]int, 0, len(p.cells))
	for i, c := range p.cells {
		if c.known {
			out = append(out, i)
		}
	}
	return out
}

// String renders letters for determined cells and '?' for unknown ones.
// The '?' exists only in this rendering; cells never store it.
func (p Plaintext) String() string {
	b := make([]byte, len(p.cells))
	for i, c := range p.cells {
		if c.known {
			b[i] = c.r.Letter()
		} else {
			b[i] = '?'
		}
	}
	return string(b)
}

// Hash fingerprints the rendered plaintext, unknowns included.
func (p Plaintext) Hash() core.Hash {
	return core.HashParts("plaintext", p.String())
}

// Equals reports cell-for-cell equality.
func (p Plaintext) Equals(other Plaintext) bool {
	if len(p.cells) != len(other.cells) {
		return false
	}
	for i, c := range p.cells {
		if c != other.cells[i] {
			return false
		}
	}
	return true
}

// ConsistentWith reports whether every position determined in both
// plaintexts carries the same residue. Differing coverage is allowed;
// differing residues are not.
func (p Plaintext) ConsistentWith(other Plaintext) bool {
	if len(p.cells) != len(other.cells) {
		return false
	}
	for i, c := range p.cells {
		o := other.cells[i]
		if c.known && o.known && c.r != o.r {
			return false
		}
	}
	return true
}
