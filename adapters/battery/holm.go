package battery

import "sort"

// EmpiricalP is the add-one right-tailed p-value of a candidate score
// against its null scores: (count(null >= candidate) + 1) / (K + 1).
// The add-one keeps p strictly positive at finite K.
func EmpiricalP(candidateScore float64, nulls []float64) float64 {
	extreme := 0
	for _, v := range nulls {
		if v >= candidateScore {
			extreme++
		}
	}
	return float64(extreme+1) / float64(len(nulls)+1)
}

// HolmAdjust applies the Holm step-down correction to a family of raw
// p-values. Ranked ascending, the i-th raw p (0-based) is multiplied by
// (m - i), capped at 1, and then floored by the previous adjusted value
// so the output is non-decreasing along the ranking. Ties rank by
// metric name, which keeps the result independent of map iteration
// order.
func HolmAdjust(raw map[string]float64) map[string]float64 {
	type ranked struct {
		name string
		p    float64
	}
	pairs := make([]ranked, 0, len(raw))
	for name, p := range raw {
		pairs = append(pairs, ranked{name, p})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].p != pairs[j].p {
			return pairs[i].p < pairs[j].p
		}
		return pairs[i].name < pairs[j].name
	})

	adjusted := make(map[string]float64, len(pairs))
	floor := 0.0
	for i, pr := range pairs {
		adj := float64(len(pairs)-i) * pr.p
		if adj > 1 {
			adj = 1
		}
		if adj < floor {
			adj = floor
		}
		floor = adj
		adjusted[pr.name] = adj
	}
	return adjusted
}
