package battery

import (
	"fmt"
	"math/rand"

	"gokryptos/domain/cipher"
	"gokryptos/ports"
)

// nullSample builds one control sequence from the window. Shuffle and
// mirror permute the window's letters, so letter statistics carry over
// exactly; bootstrap resamples with replacement. Callers validate the
// policy first.
func nullSample(policy ports.NullPolicy, window []cipher.Residue, rng *rand.Rand) []cipher.Residue {
	out := make([]cipher.Residue, len(window))
	if len(window) == 0 {
		return out
	}

	switch policy {
	case ports.PolicyShuffle:
		copy(out, window)
		for i := len(out) - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			out[i], out[j] = out[j], out[i]
		}
	case ports.PolicyMirror:
		// Reversed window rotated by a seeded offset: local adjacency
		// survives, positional alignment does not.
		n := len(window)
		offset := rng.Intn(n)
		for i := range out {
			out[i] = window[n-1-((i+offset)%n)]
		}
	case ports.PolicyBootstrap:
		for i := range out {
			out[i] = window[rng.Intn(len(window))]
		}
	default:
		panic(fmt.Sprintf("battery: unknown null policy %q", policy))
	}
	return out
}
