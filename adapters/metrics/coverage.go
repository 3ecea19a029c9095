package metrics

import (
	"context"

	"gokryptos/domain/cipher"
	"gokryptos/ports"
)

// minTileLen keeps one-letter words out of the tiling; A and I would
// cover any window.
const minTileLen = 2

// CoverageMetric measures the fraction of the window covered by a
// greedy longest-match tiling of lexicon words.
type CoverageMetric struct {
	lex ports.LexiconPort
}

// NewCoverageMetric builds the tiling metric over a lexicon.
func NewCoverageMetric(lex ports.LexiconPort) *CoverageMetric {
	return &CoverageMetric{lex: lex}
}

func (m *CoverageMetric) Name() string {
	return "coverage"
}

func (m *CoverageMetric) Description() string {
	return "fraction of the window tiled by dictionary words, longest match first"
}

func (m *CoverageMetric) Score(_ context.Context, window []cipher.Residue) float64 {
	n := len(window)
	if n == 0 {
		return 0
	}
	s := letters(window)

	var lengths []int
	for _, l := range m.lex.WordLengths() {
		if l >= minTileLen {
			lengths = append(lengths, l)
		}
	}

	covered := 0
	for i := 0; i < n; {
		advanced := false
		for _, l := range lengths {
			if i+l > n {
				continue
			}
			if m.lex.IsWord(s[i : i+l]) {
				covered += l
				i += l
				advanced = true
				break
			}
		}
		if !advanced {
			i++
		}
	}
	return float64(covered) / float64(n)
}
