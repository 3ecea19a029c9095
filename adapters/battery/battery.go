package battery

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gokryptos/domain/candidate"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/ports"
)

const (
	defaultWorkers = 4
	maxWorkers     = 32
	defaultSamples = 1000
	maxSamples     = 100000
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Battery runs the null-hypothesis test: a seeded batch of control
// sequences scored by the same engine as the candidate, reduced to
// empirical and Holm-adjusted p-values. Every sample draws its own RNG
// stream keyed by sample index, so the batch is bit-identical whether
// it runs on one worker or many.
type Battery struct {
	scorer  ports.ScorerPort
	rngPort ports.RNGPort
	workers int
}

// New creates a battery with the default worker count.
func New(scorer ports.ScorerPort, rngPort ports.RNGPort) *Battery {
	return &Battery{scorer: scorer, rngPort: rngPort, workers: defaultWorkers}
}

// SetWorkers adjusts pool size within sane bounds.
func (b *Battery) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	b.workers = n
}

var _ ports.NullBatteryPort = (*Battery)(nil)

// sampleResult carries one null sample's metric scores back from the
// pool, tagged with its index so ordering never depends on scheduling.
type sampleResult struct {
	index  int
	scores map[string]float64
	err    error
}

// TestCandidate scores the candidate's window, generates and scores the
// null batch, and assembles the full report. Out-of-family metrics keep
// their raw empirical p (a family of one adjusts to itself); only
// in-family metrics pass through the joint Holm correction and drive
// publishability.
func (b *Battery) TestCandidate(ctx context.Context, req ports.NullTestRequest) (*ports.NullTestResult, error) {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Gate.Validate(); err != nil {
		return nil, err
	}
	if _, err := ports.ParseNullPolicy(string(req.Policy)); err != nil {
		return nil, err
	}

	samples := req.Samples
	if samples <= 0 {
		samples = defaultSamples
	}
	if samples > maxSamples {
		samples = maxSamples
	}

	window := candidate.Window(req.Plaintext, req.Anchors)

	candScores, err := b.scorer.Score(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("scoring candidate: %w", err)
	}

	nullScores, err := b.scoreNulls(ctx, req, window, samples)
	if err != nil {
		return nil, err
	}

	metrics := b.scorer.Metrics()

	rawFamily := make(map[string]float64)
	for _, name := range metrics {
		if req.Gate.InFamily(name) {
			rawFamily[name] = EmpiricalP(candScores[name], nullScores[name])
		}
	}
	adjusted := HolmAdjust(rawFamily)

	scores := make([]gate.MetricScore, 0, len(metrics))
	for _, name := range metrics {
		nulls := nullScores[name]
		summary, err := summarize(nulls)
		if err != nil {
			return nil, fmt.Errorf("summarizing %s nulls: %w", name, err)
		}

		ms := gate.MetricScore{
			Metric:     name,
			Value:      candScores[name],
			Null:       summary,
			EmpiricalP: EmpiricalP(candScores[name], nulls),
			InFamily:   req.Gate.InFamily(name),
		}
		if adj, ok := adjusted[name]; ok {
			ms.AdjustedP = adj
		} else {
			ms.AdjustedP = ms.EmpiricalP
		}

		switch {
		case summary.StdDev > 0:
			ms.ZScore = (ms.Value - summary.Mean) / summary.StdDev
			ms.NormalP = stdNormal.Survival(ms.ZScore)
		case ms.Value > summary.Mean:
			ms.NormalP = 0
		case ms.Value < summary.Mean:
			ms.NormalP = 1
		default:
			ms.NormalP = 0.5
		}

		scores = append(scores, ms)
	}

	report := gate.ScoreReport{
		Alpha:       req.Gate.Alpha,
		NullSamples: samples,
		Seed:        req.Seed,
		Scores:      scores,
	}

	return &ports.NullTestResult{
		BatchID:     core.NewBatchID(),
		Report:      report,
		Publishable: report.Publishable(),
		WindowSize:  len(window),
		DurationMs:  time.Since(started).Milliseconds(),
	}, nil
}

// scoreNulls fans the batch across the worker pool and collects scores
// by sample index. Channels are buffered to the batch size so an early
// error return cannot strand a worker. Stream recipes use the
// plaintext's content hash as the candidate identity, never the run or
// candidate uuid: uuids change on every invocation, and identical
// inputs with an identical seed must reproduce identical p-values.
func (b *Battery) scoreNulls(ctx context.Context, req ports.NullTestRequest, window []cipher.Residue, samples int) (map[string][]float64, error) {
	workChan := make(chan int, samples)
	resultChan := make(chan sampleResult, samples)
	var wg sync.WaitGroup

	identity := req.Plaintext.Hash().String()
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workChan {
				if err := ctx.Err(); err != nil {
					resultChan <- sampleResult{index: idx, err: err}
					continue
				}
				unit := string(req.Policy) + ":" + strconv.Itoa(idx)
				stream, err := b.rngPort.Stream(ctx, identity, "null_battery", unit, req.Seed)
				if err != nil {
					resultChan <- sampleResult{index: idx, err: err}
					continue
				}
				sample := nullSample(req.Policy, window, stream)
				scores, err := b.scorer.Score(ctx, sample)
				resultChan <- sampleResult{index: idx, scores: scores, err: err}
			}
		}()
	}

	for i := 0; i < samples; i++ {
		workChan <- i
	}
	close(workChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	byMetric := make(map[string][]float64, len(b.scorer.Metrics()))
	for _, name := range b.scorer.Metrics() {
		byMetric[name] = make([]float64, samples)
	}
	for res := range resultChan {
		if res.err != nil {
			return nil, fmt.Errorf("null sample %d: %w", res.index, res.err)
		}
		for name, v := range res.scores {
			byMetric[name][res.index] = v
		}
	}
	return byMetric, nil
}

// summarize reduces one metric's null scores to the summary persisted
// with the report.
func summarize(nulls []float64) (gate.NullSummary, error) {
	summary := gate.NullSummary{Samples: len(nulls)}
	if len(nulls) == 0 {
		return summary, nil
	}

	mean, err := stats.Mean(nulls)
	if err != nil {
		return summary, err
	}
	stdDev, err := stats.StandardDeviation(nulls)
	if err != nil {
		return summary, err
	}
	min, err := stats.Min(nulls)
	if err != nil {
		return summary, err
	}
	max, err := stats.Max(nulls)
	if err != nil {
		return summary, err
	}
	median, err := stats.Median(nulls)
	if err != nil {
		return summary, err
	}
	p95, err := stats.Percentile(nulls, 95)
	if err != nil {
		return summary, err
	}
	p99, err := stats.Percentile(nulls, 99)
	if err != nil {
		return summary, err
	}

	summary.Mean = mean
	summary.StdDev = stdDev
	summary.Min = min
	summary.Max = max
	summary.Median = median
	summary.Percentile95 = p95
	summary.Percentile99 = p99
	return summary, nil
}
