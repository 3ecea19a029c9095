package ports

import (
	"context"

	"gokryptos/domain/cipher"
)

// ScorerPort computes linguistic metrics over a letter window. The same
// scorer instance scores the candidate window and every null sample, so
// any bias cancels between them.
type ScorerPort interface {
	// Score computes every registered metric for the window
	Score(ctx context.Context, window []cipher.Residue) (map[string]float64, error)

	// Metrics lists the metric ids Score produces, in a fixed order
	Metrics() []string
}
