package gate

import "sort"

// EvaluateTracks runs every configured phrase track against raw metric
// values and joins the outcomes with the combinator. A track passes
// when every threshold it names is met; a metric absent from the
// values fails its check rather than erroring, so a misconfigured
// track name reads as a rejection, never a silent pass. Checks are
// ordered by metric name to keep persisted verdicts deterministic.
func EvaluateTracks(c Config, values map[string]float64) ([]TrackResult, bool) {
	results := make([]TrackResult, 0, len(c.Tracks))
	for _, tr := range c.Tracks {
		names := make([]string, 0, len(tr.Thresholds))
		for m := range tr.Thresholds {
			names = append(names, m)
		}
		sort.Strings(names)

		res := TrackResult{Name: tr.Name, Passed: true}
		for _, m := range names {
			v, found := values[m]
			check := TrackCheck{
				Metric:    m,
				Value:     v,
				Threshold: tr.Thresholds[m],
				Found:     found,
				Met:       found && v >= tr.Thresholds[m],
			}
			if !check.Met {
				res.Passed = false
			}
			res.Checks = append(res.Checks, check)
		}
		results = append(results, res)
	}

	switch c.Combinator {
	case CombinatorOr:
		for _, r := range results {
			if r.Passed {
				return results, true
			}
		}
		return results, false
	default:
		for _, r := range results {
			if !r.Passed {
				return results, false
			}
		}
		return results, true
	}
}
