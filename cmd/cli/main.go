package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gokryptos/adapters/battery"
	"gokryptos/adapters/ledger"
	"gokryptos/adapters/lexicon"
	"gokryptos/adapters/metrics"
	"gokryptos/adapters/rng"
	"gokryptos/adapters/solver"
	"gokryptos/app"
	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/internal"
	"gokryptos/internal/config"
	"gokryptos/ports"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gokryptos",
		Short: "Anchor-constrained periodic-cipher solver with null-hypothesis gating",
	}

	rootCmd.AddCommand(
		newSolveCmd(),
		newGateCmd(),
		newNullsCmd(),
		newLedgerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// harness bundles the wired adapters and services for one invocation.
type harness struct {
	cfg      *config.Config
	log      *internal.Logger
	ledger   ports.LedgerPort
	solve    *app.SolveService
	gate     *app.GateService
	nulltest *app.NullTestService
	close    func() error
}

func wire() (*harness, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, _ := internal.ParseLogLevel(cfg.LogLevel)
	logger := internal.NewLogger(level).WithComponent("cli")

	var store *ledger.SQLiteLedger
	if cfg.Ledger.InMemory {
		store, err = ledger.OpenInMemory()
	} else {
		store, err = ledger.Open(cfg.Ledger.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	logger.Debug("ledger open (path=%s memory=%v)", cfg.Ledger.Path, cfg.Ledger.InMemory)

	engine := solver.New()
	scorer := metrics.NewEngine(lexicon.New())
	bat := battery.New(scorer, rng.New())
	bat.SetWorkers(cfg.Defaults.Parallelism)

	return &harness{
		cfg:      cfg,
		log:      logger,
		ledger:   store,
		solve:    app.NewSolveService(engine, store),
		gate:     app.NewGateService(engine, scorer, bat, store),
		nulltest: app.NewNullTestService(bat, store),
		close:    store.Close,
	}, nil
}

func newSolveCmd() *cobra.Command {
	var profilePath string
	var search bool
	var stopAtFirst bool
	var maxResults int
	var seed int64

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a pinned plan or sweep schedule bounds from a profile",
		Long: `Force the profile's anchors into key wheels and decrypt what they determine.

With --search the profile's [search] bounds are swept instead of its pinned
[plan]; every lawful schedule found is persisted as a candidate.

Example: gokryptos solve --profile profiles/k4.toml --search --max-results 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd.Context(), profilePath, search, stopAtFirst, maxResults, seed)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "profiles/k4.toml", "Profile TOML path")
	cmd.Flags().BoolVar(&search, "search", false, "Sweep the profile's search bounds instead of its pinned plan")
	cmd.Flags().BoolVar(&stopAtFirst, "stop-first", false, "Stop the sweep at the first lawful schedule")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Cap on lawful schedules to keep (0 = unlimited)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Run seed recorded in the manifest (0 = config default)")

	return cmd
}

func runSolve(ctx context.Context, profilePath string, search, stopAtFirst bool, maxResults int, seed int64) error {
	h, err := wire()
	if err != nil {
		return err
	}
	defer h.close()

	profile, text, anchors, err := loadProfileInputs(profilePath)
	if err != nil {
		return err
	}
	h.log.Info("profile %s", profile.Describe())
	if seed == 0 {
		seed = h.cfg.Defaults.Seed
	}

	if search {
		bounds, err := profile.Bounds()
		if err != nil {
			return err
		}
		started := time.Now()
		result, err := h.solve.SearchSchedules(ctx, app.SearchSchedulesRequest{
			Text:        text,
			Anchors:     anchors,
			Formulas:    profile.Formulas,
			Bounds:      bounds,
			Seed:        seed,
			StopAtFirst: stopAtFirst,
			MaxResults:  maxResults,
			Parallelism: h.cfg.Defaults.Parallelism,
		})
		if err != nil {
			return err
		}
		printSearchSummary(result, time.Since(started))
		return nil
	}

	plan, err := profile.PinnedPlan()
	if err != nil {
		return err
	}
	result, err := h.solve.SolvePlan(ctx, app.SolvePlanRequest{
		Text:    text,
		Anchors: anchors,
		Plan:    plan,
		Seed:    seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run %s  plan %s\n", result.Manifest.ID, plan.Describe())
	if !result.Lawful {
		fmt.Printf("verdict: %s (%v)\n", color.RedString("unlawful"), result.Outcome.Failure)
		return nil
	}
	fmt.Printf("verdict: %s\n", color.GreenString("lawful"))
	fmt.Printf("candidate %s  determined %d/%d\n",
		result.Candidate.ID, result.Candidate.Determined, result.Candidate.Determined+result.Candidate.Unknown)
	fmt.Printf("plaintext: %s\n", result.Candidate.Plaintext)
	return nil
}

func newGateCmd() *cobra.Command {
	var profilePath string
	var search bool
	var maxResults int
	var samples int
	var policy string
	var seed int64

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Run candidates through the full acceptance pipeline",
		Long: `Solve, phrase-gate and null-test candidates, persisting a verdict for each.

The pipeline is lawfulness, then the profile's phrase tracks, then the null
battery with Holm correction over the configured metric family. Any terminal
rejection stops that candidate; nothing is retried.

Example: gokryptos gate --profile profiles/k4.toml --samples 10000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGate(cmd.Context(), profilePath, search, maxResults, samples, policy, seed)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "profiles/k4.toml", "Profile TOML path")
	cmd.Flags().BoolVar(&search, "search", false, "Gate every lawful schedule in the profile's search bounds")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Cap on lawful schedules to gate (0 = unlimited)")
	cmd.Flags().IntVar(&samples, "samples", 0, "Null samples per candidate (0 = profile/config default)")
	cmd.Flags().StringVar(&policy, "policy", "", "Null policy: shuffle|mirror|bootstrap (empty = profile/config default)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Base seed for null generation (0 = profile/config default)")

	return cmd
}

func runGate(ctx context.Context, profilePath string, search bool, maxResults, samples int, policy string, seed int64) error {
	h, err := wire()
	if err != nil {
		return err
	}
	defer h.close()

	profile, text, anchors, err := loadProfileInputs(profilePath)
	if err != nil {
		return err
	}
	h.log.Info("profile %s", profile.Describe())
	nulls := profile.NullsOrDefaults(h.cfg.Defaults)
	if samples > 0 {
		nulls.Samples = samples
	}
	if policy != "" {
		nulls.Policy = policy
	}
	if seed != 0 {
		nulls.Seed = seed
	}

	if search {
		bounds, err := profile.Bounds()
		if err != nil {
			return err
		}
		started := time.Now()
		result, err := h.gate.RunSearch(ctx, app.GateSearchRequest{
			Text:        text,
			Anchors:     anchors,
			Formulas:    profile.Formulas,
			Bounds:      bounds,
			Seed:        nulls.Seed,
			NullPolicy:  nulls.Policy,
			NullSamples: nulls.Samples,
			Gate:        profile.Gate,
			MaxResults:  maxResults,
			Parallelism: h.cfg.Defaults.Parallelism,
		})
		if err != nil {
			return err
		}
		fmt.Printf("run %s  %d plans evaluated, %d lawful, %d publishable  (%v)\n",
			result.Manifest.ID, result.Report.PlansEvaluated, len(result.Candidates),
			result.Publishable, time.Since(started).Round(time.Millisecond))
		for i := range result.Verdicts {
			fmt.Printf("  %s  %s  %s\n", result.Candidates[i].ID,
				result.Candidates[i].Plan, verdictWord(result.Verdicts[i]))
		}
		return nil
	}

	plan, err := profile.PinnedPlan()
	if err != nil {
		return err
	}
	result, err := h.gate.RunCandidate(ctx, app.GateRequest{
		Text:        text,
		Anchors:     anchors,
		Plan:        plan,
		Seed:        nulls.Seed,
		NullPolicy:  nulls.Policy,
		NullSamples: nulls.Samples,
		Gate:        profile.Gate,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run %s  plan %s\n", result.Manifest.ID, plan.Describe())
	if result.Candidate != nil {
		fmt.Printf("candidate %s  determined %d/%d\n", result.Candidate.ID,
			result.Candidate.Determined, result.Candidate.Determined+result.Candidate.Unknown)
		fmt.Printf("plaintext: %s\n", result.Candidate.Plaintext)
	}
	printVerdict(result.Verdict)
	return nil
}

func newNullsCmd() *cobra.Command {
	var profilePath string
	var samples int
	var policy string
	var seed int64

	cmd := &cobra.Command{
		Use:   "nulls [candidate-id]",
		Short: "Replay the null battery against a stored candidate",
		Long: `Rerun the null-hypothesis test for a persisted candidate without touching
its verdict. Useful for exploring other policies, sample counts or seeds.

Example: gokryptos nulls 9b1c... --samples 10000 --policy mirror --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNulls(cmd.Context(), profilePath, args[0], samples, policy, seed)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "profiles/k4.toml", "Profile supplying anchors and gate config")
	cmd.Flags().IntVar(&samples, "samples", 0, "Null samples (0 = profile/config default)")
	cmd.Flags().StringVar(&policy, "policy", "", "Null policy: shuffle|mirror|bootstrap (empty = profile/config default)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Base seed for null generation (0 = profile/config default)")

	return cmd
}

func runNulls(ctx context.Context, profilePath, candidateID string, samples int, policy string, seed int64) error {
	h, err := wire()
	if err != nil {
		return err
	}
	defer h.close()

	profile, _, anchors, err := loadProfileInputs(profilePath)
	if err != nil {
		return err
	}
	candID, err := core.ParseCandidateID(candidateID)
	if err != nil {
		return err
	}
	nulls := profile.NullsOrDefaults(h.cfg.Defaults)
	if samples > 0 {
		nulls.Samples = samples
	}
	if policy != "" {
		nulls.Policy = policy
	}
	if seed != 0 {
		nulls.Seed = seed
	}

	result, err := h.nulltest.TestStored(ctx, app.NullRunRequest{
		Candidate: candID,
		Anchors:   anchors,
		Policy:    nulls.Policy,
		Samples:   nulls.Samples,
		Seed:      nulls.Seed,
		Gate:      profile.Gate,
	})
	if err != nil {
		return err
	}

	fmt.Printf("batch %s  policy %s  samples %d  seed %d  window %d\n",
		result.BatchID, nulls.Policy, nulls.Samples, nulls.Seed, result.WindowSize)
	printScoreReport(result.Report)
	if result.Publishable {
		fmt.Printf("publishable: %s\n", color.GreenString("yes"))
	} else {
		fmt.Printf("publishable: %s\n", color.RedString("no"))
	}
	return nil
}

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Query the run ledger",
	}
	cmd.AddCommand(newLedgerRunsCmd(), newLedgerCandidatesCmd(), newLedgerVerdictCmd())
	return cmd
}

func newLedgerRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent run manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := wire()
			if err != nil {
				return err
			}
			defer h.close()

			manifests, err := h.ledger.ListManifests(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, m := range manifests {
				fmt.Printf("%s  %s  seed %d  %s\n", m.ID, m.CreatedAt, m.Seed, m.Bounds)
			}
			if len(manifests) == 0 {
				fmt.Println("ledger is empty")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum manifests to list")
	return cmd
}

func newLedgerCandidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates [run-id]",
		Short: "List the candidates persisted for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := wire()
			if err != nil {
				return err
			}
			defer h.close()

			runID, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			candidates, err := h.ledger.GetCandidatesByRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			for _, c := range candidates {
				fmt.Printf("%s  %s  determined %d/%d\n", c.ID, c.Plan, c.Determined, c.Determined+c.Unknown)
				fmt.Printf("  %s\n", c.Plaintext)
			}
			if len(candidates) == 0 {
				fmt.Println("no candidates for run")
			}
			return nil
		},
	}
	return cmd
}

func newLedgerVerdictCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verdict [candidate-id]",
		Short: "Show the stored verdict for one candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := wire()
			if err != nil {
				return err
			}
			defer h.close()

			candID, err := core.ParseCandidateID(args[0])
			if err != nil {
				return err
			}
			verdict, err := h.ledger.GetVerdict(cmd.Context(), candID)
			if err != nil {
				return err
			}
			if asJSON {
				out, err := json.MarshalIndent(verdict, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			printVerdict(*verdict)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full verdict as JSON")
	return cmd
}

func loadProfileInputs(path string) (*config.Profile, cipher.Text, cipher.AnchorSet, error) {
	profile, err := config.LoadProfile(path)
	if err != nil {
		return nil, cipher.Text{}, cipher.AnchorSet{}, err
	}
	text, err := profile.Text()
	if err != nil {
		return nil, cipher.Text{}, cipher.AnchorSet{}, err
	}
	anchors, err := profile.AnchorSet()
	if err != nil {
		return nil, cipher.Text{}, cipher.AnchorSet{}, err
	}
	return profile, text, anchors, nil
}

func printSearchSummary(result *app.SearchSchedulesResult, elapsed time.Duration) {
	fmt.Printf("run %s  %d plans evaluated  (%v)\n",
		result.Manifest.ID, result.Report.PlansEvaluated, elapsed.Round(time.Millisecond))
	if !result.Report.Feasible {
		fmt.Printf("result: %s\n", color.YellowString("infeasible — no lawful schedule in bounds"))
		return
	}
	if result.Report.Truncated {
		fmt.Println("note: hit cap reached, enumeration truncated")
	}
	for _, c := range result.Candidates {
		fmt.Printf("  %s  %s  determined %d/%d\n", c.ID, c.Plan, c.Determined, c.Determined+c.Unknown)
		fmt.Printf("    %s\n", c.Plaintext)
	}
}

func printVerdict(v gate.Verdict) {
	fmt.Printf("verdict: %s  (stage %s", verdictWord(v), v.Reached)
	if v.Reason != gate.ReasonNone {
		fmt.Printf(", reason %s", v.Reason)
	}
	fmt.Println(")")
	if v.Detail != "" {
		fmt.Printf("  %s\n", v.Detail)
	}
	for _, tr := range v.Tracks {
		mark := color.RedString("fail")
		if tr.Passed {
			mark = color.GreenString("pass")
		}
		fmt.Printf("  track %-12s %s\n", tr.Name, mark)
	}
	if v.Report != nil {
		printScoreReport(*v.Report)
	}
}

func printScoreReport(r gate.ScoreReport) {
	fmt.Printf("  %-16s %10s %12s %12s\n", "metric", "value", "p", "holm_p")
	for _, s := range r.Scores {
		name := s.Metric
		if !s.InFamily {
			name += "*"
		}
		fmt.Printf("  %-16s %10.4f %12.5f %12.5f\n", name, s.Value, s.EmpiricalP, s.AdjustedP)
	}
	fmt.Println("  (* = diagnostic, outside the Holm family)")
}

func verdictWord(v gate.Verdict) string {
	if v.Publishable() {
		return color.GreenString("publishable")
	}
	return color.RedString(string(v.Reason))
}
