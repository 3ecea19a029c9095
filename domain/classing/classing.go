package classing

import (
	"fmt"
	"sort"

	"gokryptos/domain/core"
)

// Formula is a pure, total mapping from a ciphertext index to one of a
// small fixed number of periodic classes. Formulas are registered by id
// and selected through configuration, never hard-coded by callers.
type Formula struct {
	id      string
	classes int
	fn      func(i int) int
}

// ID returns the registry id.
func (f Formula) ID() string {
	return f.id
}

// Classes returns the number of classes the formula partitions into.
func (f Formula) Classes() int {
	return f.classes
}

// ClassOf maps index i to its class in [0, Classes()).
func (f Formula) ClassOf(i int) int {
	return f.fn(i)
}

// Partition groups the indices [0, n) by class.
func (f Formula) Partition(n int) [][]int {
	out := make([][]int, f.classes)
	for i := 0; i < n; i++ {
		c := f.fn(i)
		out[c] = append(out[c], i)
	}
	return out
}

var registry = map[string]Formula{
	// The community convention for the K4 panel: interleave parity and
	// mod-3 residue into six classes.
	"baseline": {
		id:      "baseline",
		classes: 6,
		fn:      func(i int) int { return (i%2)*3 + i%3 },
	},
	// Straight mod-6 striping.
	"mod6": {
		id:      "mod6",
		classes: 6,
		fn:      func(i int) int { return i % 6 },
	},
	// Baseline with the parity and mod-3 roles swapped.
	"swapped": {
		id:      "swapped",
		classes: 6,
		fn:      func(i int) int { return (i%3)*2 + i%2 },
	},
}

// ByID resolves a registered formula.
func ByID(id string) (Formula, error) {
	f, ok := registry[id]
	if !ok {
		return Formula{}, fmt.Errorf("%w: %q", core.ErrInvalidFormula, id)
	}
	return f, nil
}

// IDs lists the registered formula ids in sorted order.
func IDs() []string {
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
