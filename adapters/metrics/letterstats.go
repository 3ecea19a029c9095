package metrics

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gokryptos/domain/cipher"
)

// englishFreq holds relative English letter frequencies, A through Z.
var englishFreq = [cipher.Modulus]float64{
	0.08167, 0.01492, 0.02782, 0.04253, 0.12702, 0.02228, 0.02015,
	0.06094, 0.06966, 0.00153, 0.00772, 0.04025, 0.02406, 0.06749,
	0.07507, 0.01929, 0.00095, 0.05987, 0.06327, 0.09056, 0.02758,
	0.00978, 0.02360, 0.00150, 0.01974, 0.00074,
}

// LetterLogProbMetric scores the mean log2 probability of the window's
// letters under English unigram frequencies. Less negative means more
// English-like; it serves as the perplexity proxy.
type LetterLogProbMetric struct{}

func NewLetterLogProbMetric() *LetterLogProbMetric {
	return &LetterLogProbMetric{}
}

func (m *LetterLogProbMetric) Name() string {
	return "letter_logprob"
}

func (m *LetterLogProbMetric) Description() string {
	return "mean log2 letter probability under English unigram frequencies"
}

func (m *LetterLogProbMetric) Score(_ context.Context, window []cipher.Residue) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range window {
		sum += math.Log2(englishFreq[r])
	}
	return sum / float64(len(window))
}

// letterChiSquare computes the chi-squared statistic of the observed
// letter counts against the English expectation.
func letterChiSquare(window []cipher.Residue) float64 {
	n := len(window)
	if n == 0 {
		return 0
	}
	var counts [cipher.Modulus]int
	for _, r := range window {
		counts[r]++
	}
	stat := 0.0
	for i := 0; i < cipher.Modulus; i++ {
		expected := englishFreq[i] * float64(n)
		diff := float64(counts[i]) - expected
		stat += diff * diff / expected
	}
	return stat
}

// LetterChiSquareMetric reports the raw chi-squared statistic. Lower is
// more English-like, the opposite direction of every other metric, so
// it stays out of the Holm family and is reported as a diagnostic.
type LetterChiSquareMetric struct{}

func NewLetterChiSquareMetric() *LetterChiSquareMetric {
	return &LetterChiSquareMetric{}
}

func (m *LetterChiSquareMetric) Name() string {
	return "chi2_letters"
}

func (m *LetterChiSquareMetric) Description() string {
	return "chi-squared statistic of letter counts against English frequencies"
}

func (m *LetterChiSquareMetric) Score(_ context.Context, window []cipher.Residue) float64 {
	return letterChiSquare(window)
}

// LetterChiSquarePMetric reports the upper-tail probability of the
// chi-squared statistic at 25 degrees of freedom. Near zero flags a
// letter distribution far from English.
type LetterChiSquarePMetric struct{}

func NewLetterChiSquarePMetric() *LetterChiSquarePMetric {
	return &LetterChiSquarePMetric{}
}

func (m *LetterChiSquarePMetric) Name() string {
	return "chi2_letters_p"
}

func (m *LetterChiSquarePMetric) Description() string {
	return "upper-tail probability of the letter chi-squared statistic"
}

func (m *LetterChiSquarePMetric) Score(_ context.Context, window []cipher.Residue) float64 {
	if len(window) == 0 {
		return 1
	}
	dist := distuv.ChiSquared{K: float64(cipher.Modulus - 1)}
	return dist.Survival(letterChiSquare(window))
}
