package gate

import (
	"fmt"
	"sort"
	"strings"

	"gokryptos/domain/core"
)

// Stage names a position in the acceptance pipeline. A candidate moves
// strictly forward; there are no retries and no skipped stages.
type Stage string

const (
	StageGenerated  Stage = "generated"
	StageLawfulness Stage = "lawfulness"
	StagePhrase     Stage = "phrase_gate"
	StageNullTest   Stage = "null_test"
	StageDecided    Stage = "decided"
)

// stageOrder fixes the pipeline order for Advance checks.
var stageOrder = []Stage{StageGenerated, StageLawfulness, StagePhrase, StageNullTest, StageDecided}

// Next returns the following stage, or false from the terminal stage.
func (s Stage) Next() (Stage, bool) {
	for i, st := range stageOrder {
		if st == s && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}

// Decision is the terminal outcome of the gate.
type Decision string

const (
	DecisionPublishable    Decision = "publishable"
	DecisionNotPublishable Decision = "not_publishable"
)

// RejectionReason explains a not-publishable decision.
type RejectionReason string

const (
	ReasonNone        RejectionReason = ""
	ReasonCollision   RejectionReason = "wheel_collision"
	ReasonPassThrough RejectionReason = "illegal_pass_through"
	ReasonRoundTrip   RejectionReason = "round_trip_mismatch"
	ReasonPhraseGate  RejectionReason = "phrase_gate_failed"
	ReasonNullTest    RejectionReason = "null_test_failed"
)

// Combinator joins phrase-track outcomes.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// TrackConfig is one phrase track: a named set of minimum raw metric
// values. A track passes when every threshold it names is met.
type TrackConfig struct {
	Name       string             `toml:"name" json:"name"`
	Thresholds map[string]float64 `toml:"thresholds" json:"thresholds"`
}

// Config is the acceptance gate configuration. Alpha and the metric
// family drive the Holm correction; tracks and the combinator drive the
// phrase gate.
type Config struct {
	Alpha      float64       `toml:"alpha" json:"alpha"`
	Family     []string      `toml:"family" json:"family"`
	Combinator Combinator    `toml:"combinator" json:"combinator"`
	Tracks     []TrackConfig `toml:"tracks" json:"tracks"`
}

// Validate checks ranges and uniqueness.
func (c Config) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("%w: alpha %v outside (0,1)", core.ErrInvalidGateConfig, c.Alpha)
	}
	if len(c.Family) == 0 {
		return fmt.Errorf("%w: empty metric family", core.ErrInvalidGateConfig)
	}
	seen := make(map[string]bool, len(c.Family))
	for _, m := range c.Family {
		if m == "" {
			return fmt.Errorf("%w: empty metric name in family", core.ErrInvalidGateConfig)
		}
		if seen[m] {
			return fmt.Errorf("%w: duplicate family metric %q", core.ErrInvalidGateConfig, m)
		}
		seen[m] = true
	}
	switch c.Combinator {
	case CombinatorAnd, CombinatorOr:
	default:
		return fmt.Errorf("%w: combinator %q", core.ErrInvalidGateConfig, c.Combinator)
	}
	if len(c.Tracks) == 0 {
		return fmt.Errorf("%w: no phrase tracks", core.ErrInvalidGateConfig)
	}
	names := make(map[string]bool, len(c.Tracks))
	for _, tr := range c.Tracks {
		if tr.Name == "" {
			return fmt.Errorf("%w: unnamed track", core.ErrInvalidGateConfig)
		}
		if names[tr.Name] {
			return fmt.Errorf("%w: duplicate track %q", core.ErrInvalidGateConfig, tr.Name)
		}
		names[tr.Name] = true
		if len(tr.Thresholds) == 0 {
			return fmt.Errorf("%w: track %q has no thresholds", core.ErrInvalidGateConfig, tr.Name)
		}
		for m := range tr.Thresholds {
			if m == "" {
				return fmt.Errorf("%w: track %q names an empty metric", core.ErrInvalidGateConfig, tr.Name)
			}
		}
	}
	return nil
}

// InFamily reports whether a metric participates in the Holm family.
func (c Config) InFamily(metric string) bool {
	for _, m := range c.Family {
		if m == metric {
			return true
		}
	}
	return false
}

// Describe renders a canonical, order-independent description for
// hashing. Map iteration order never leaks into it.
func (c Config) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "alpha=%g|family=%s|comb=%s", c.Alpha, strings.Join(c.Family, ","), c.Combinator)
	for _, tr := range c.Tracks {
		keys := make([]string, 0, len(tr.Thresholds))
		for m := range tr.Thresholds {
			keys = append(keys, m)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "|track=%s", tr.Name)
		for _, m := range keys {
			fmt.Fprintf(&b, ",%s>=%g", m, tr.Thresholds[m])
		}
	}
	return b.String()
}

// Hash fingerprints the configuration.
func (c Config) Hash() core.ConfigHash {
	return core.NewConfigHash([]byte(c.Describe()))
}

// TrackResult records one phrase track's evaluation. Missing metrics
// fail the track rather than erroring; the detail lists every
// threshold comparison.
type TrackResult struct {
	Name   string       `json:"name"`
	Passed bool         `json:"passed"`
	Checks []TrackCheck `json:"checks"`
}

// TrackCheck is one threshold comparison inside a track.
type TrackCheck struct {
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Found     bool    `json:"found"`
	Met       bool    `json:"met"`
}

// Verdict is the full, explicit outcome of running a candidate through
// the gate. Reached tells at which stage the pipeline stopped; every
// terminal carries a Decision, and rejections name their Reason. Only a
// candidate that survives to StageDecided can be publishable.
type Verdict struct {
	ID          core.ID          `json:"id"`
	RunID       core.RunID       `json:"run_id"`
	CandidateID core.CandidateID `json:"candidate_id"`
	Reached     Stage            `json:"reached"`
	Decision    Decision         `json:"decision"`
	Reason      RejectionReason  `json:"reason"`
	Detail      string           `json:"detail,omitempty"`
	Tracks      []TrackResult    `json:"tracks,omitempty"`
	Report      *ScoreReport     `json:"report,omitempty"`
	DecidedAt   core.Timestamp   `json:"decided_at"`
}

// Publishable reports a fully decided, accepted verdict.
func (v Verdict) Publishable() bool {
	return v.Reached == StageDecided && v.Decision == DecisionPublishable
}
