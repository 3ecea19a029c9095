package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokryptos/domain/cipher"
)

func res(b byte) cipher.Residue {
	v, ok := cipher.ResidueOf(b)
	if !ok {
		panic("bad test letter")
	}
	return v
}

func TestCellStates(t *testing.T) {
	u := Unknown()
	assert.False(t, u.Known())
	_, ok := u.Residue()
	assert.False(t, ok)

	d := Determined(res('Q'))
	assert.True(t, d.Known())
	r, ok := d.Residue()
	require.True(t, ok)
	assert.Equal(t, res('Q'), r)
}

func TestBuilderAndRendering(t *testing.T) {
	b := NewBuilder(7)
	b.Determine(0, res('B'))
	b.Determine(2, res('R'))
	b.Determine(6, res('N'))
	p := b.Build()

	assert.Equal(t, 7, p.Len())
	assert.Equal(t, "B?R???N", p.String())
	assert.Equal(t, 3, p.DeterminedCount())
	assert.Equal(t, 4, p.UnknownCount())
	assert.Equal(t, []int{0, 2, 6}, p.DeterminedPositions())
}

func TestBuildDoesNotAliasBuilder(t *testing.T) {
	b := NewBuilder(3)
	b.Determine(0, res('A'))
	p := b.Build()
	b.Determine(1, res('B'))

	assert.Equal(t, "A??", p.String())
	assert.Equal(t, 1, p.DeterminedCount())
}

func TestEquals(t *testing.T) {
	b := NewBuilder(4)
	b.Determine(1, res('K'))
	a := b.Build()
	c := b.Build()
	assert.True(t, a.Equals(c))

	b.Determine(3, res('Z'))
	d := b.Build()
	assert.False(t, a.Equals(d))

	assert.False(t, a.Equals(NewBuilder(5).Build()))
}

func TestConsistentWith(t *testing.T) {
	full := NewBuilder(5)
	full.Determine(0, res('H'))
	full.Determine(1, res('E'))
	full.Determine(3, res('L'))
	a := full.Build()

	partial := NewBuilder(5)
	partial.Determine(1, res('E'))
	b := partial.Build()

	// Narrower coverage agreeing where both are determined.
	assert.True(t, a.ConsistentWith(b))
	assert.True(t, b.ConsistentWith(a))

	conflicting := NewBuilder(5)
	conflicting.Determine(1, res('X'))
	c := conflicting.Build()
	assert.False(t, a.ConsistentWith(c))

	assert.False(t, a.ConsistentWith(NewBuilder(4).Build()))
}

func TestParseInvertsString(t *testing.T) {
	b := NewBuilder(7)
	b.Determine(0, res('B'))
	b.Determine(2, res('R'))
	b.Determine(6, res('N'))
	p := b.Build()

	got, err := Parse(p.String())
	require.NoError(t, err)
	assert.True(t, p.Equals(got))
	assert.Equal(t, "B?R???N", got.String())
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)

	_, err = Parse("AB c")
	assert.Error(t, err)

	_, err = Parse("AB1")
	assert.Error(t, err)
}

func TestHashCoversUnknownPattern(t *testing.T) {
	b1 := NewBuilder(3)
	b1.Determine(0, res('A'))
	p1 := b1.Build()

	b2 := NewBuilder(3)
	b2.Determine(1, res('A'))
	p2 := b2.Build()

	assert.NotEqual(t, p1.Hash(), p2.Hash())
	assert.Equal(t, p1.Hash(), b1.Build().Hash())
}
