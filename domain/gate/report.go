package gate

// NullSummary provides key statistics about one metric's null
// distribution.
type NullSummary struct {
	Samples      int     `json:"samples"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Median       float64 `json:"median"`
	Percentile95 float64 `json:"percentile_95"`
	Percentile99 float64 `json:"percentile_99"`
}

// MetricScore is one metric's full scoring record: the candidate's raw
// value, its null distribution, the add-one right-tailed empirical p,
// the Holm-adjusted p, and normal-approximation diagnostics. Diagnostics
// never drive the decision; only EmpiricalP and AdjustedP of in-family
// metrics do.
type MetricScore struct {
	Metric     string      `json:"metric"`
	Value      float64     `json:"value"`
	Null       NullSummary `json:"null"`
	EmpiricalP float64     `json:"empirical_p"`
	AdjustedP  float64     `json:"adjusted_p"`
	ZScore     float64     `json:"z_score"`
	NormalP    float64     `json:"normal_p"`
	InFamily   bool        `json:"in_family"`
}

// ScoreReport aggregates metric scores for one candidate against one
// null batch.
type ScoreReport struct {
	Alpha       float64       `json:"alpha"`
	NullSamples int           `json:"null_samples"`
	Seed        int64         `json:"seed"`
	Scores      []MetricScore `json:"scores"`
}

// Score finds a metric's record by name.
func (r ScoreReport) Score(metric string) (MetricScore, bool) {
	for _, s := range r.Scores {
		if s.Metric == metric {
			return s, true
		}
	}
	return MetricScore{}, false
}

// FamilyScores returns the in-family records in report order.
func (r ScoreReport) FamilyScores() []MetricScore {
	out := make([]MetricScore, 0, len(r.Scores))
	for _, s := range r.Scores {
		if s.InFamily {
			out = append(out, s)
		}
	}
	return out
}

// Publishable reports whether every in-family Holm-adjusted p clears
// alpha. A report with no in-family scores is never publishable.
func (r ScoreReport) Publishable() bool {
	family := r.FamilyScores()
	if len(family) == 0 {
		return false
	}
	for _, s := range family {
		if s.AdjustedP >= r.Alpha {
			return false
		}
	}
	return true
}
