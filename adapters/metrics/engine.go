package metrics

import (
	"context"

	"gokryptos/domain/cipher"
	"gokryptos/ports"
)

// Metric scores one linguistic property of a letter window. Scores are
// pure functions of the window; higher means more language-like for
// every metric except the chi-squared diagnostics, which never enter
// the decision family.
type Metric interface {
	Name() string
	Description() string
	Score(ctx context.Context, window []cipher.Residue) float64
}

// Engine runs all registered metrics concurrently over one window and
// collects results by index. It implements ports.ScorerPort; the same
// engine instance scores the candidate and every null sample.
type Engine struct {
	metrics []Metric
}

var _ ports.ScorerPort = (*Engine)(nil)

// NewEngine registers the standard metric set against a lexicon.
func NewEngine(lex ports.LexiconPort) *Engine {
	return &Engine{
		metrics: []Metric{
			NewCoverageMetric(lex),
			NewFunctionWordMetric(lex),
			NewLetterLogProbMetric(),
			NewLetterChiSquareMetric(),
			NewLetterChiSquarePMetric(),
		},
	}
}

// Score computes every metric for the window.
func (e *Engine) Score(ctx context.Context, window []cipher.Residue) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		index int
		value float64
	}
	results := make(chan scored, len(e.metrics))

	for i, m := range e.metrics {
		go func(m Metric, idx int) {
			results <- scored{index: idx, value: m.Score(ctx, window)}
		}(m, i)
	}

	out := make(map[string]float64, len(e.metrics))
	values := make([]float64, len(e.metrics))
	for range e.metrics {
		r := <-results
		values[r.index] = r.value
	}
	for i, m := range e.metrics {
		out[m.Name()] = values[i]
	}
	return out, nil
}

// Metrics lists the metric names in registration order.
func (e *Engine) Metrics() []string {
	names := make([]string, len(e.metrics))
	for i, m := range e.metrics {
		names[i] = m.Name()
	}
	return names
}

// ScoreSingle runs one metric by name.
func (e *Engine) ScoreSingle(ctx context.Context, name string, window []cipher.Residue) (float64, bool) {
	for _, m := range e.metrics {
		if m.Name() == name {
			return m.Score(ctx, window), true
		}
	}
	return 0, false
}

// letters renders a window as an uppercase string for lexicon lookups.
func letters(window []cipher.Residue) string {
	b := make([]byte, len(window))
	for i, r := range window {
		b[i] = r.Letter()
	}
	return string(b)
}
