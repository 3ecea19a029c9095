package metrics

import (
	"context"

	"gokryptos/domain/cipher"
	"gokryptos/ports"
)

// FunctionWordMetric counts function-word occurrences at every offset.
// Overlaps count; the same count rule applies to candidate and nulls,
// so the comparison stays fair.
type FunctionWordMetric struct {
	lex ports.LexiconPort
}

// NewFunctionWordMetric builds the function-word counter.
func NewFunctionWordMetric(lex ports.LexiconPort) *FunctionWordMetric {
	return &FunctionWordMetric{lex: lex}
}

func (m *FunctionWordMetric) Name() string {
	return "f_words"
}

func (m *FunctionWordMetric) Description() string {
	return "function-word occurrences at any offset, two letters or longer"
}

func (m *FunctionWordMetric) Score(_ context.Context, window []cipher.Residue) float64 {
	n := len(window)
	if n == 0 {
		return 0
	}
	s := letters(window)

	count := 0
	for i := 0; i < n; i++ {
		for _, l := range m.lex.WordLengths() {
			if l < minTileLen || i+l > n {
				continue
			}
			if m.lex.IsFunctionWord(s[i : i+l]) {
				count++
			}
		}
	}
	return float64(count)
}
