package solver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gokryptos/domain/cipher"
	"gokryptos/domain/classing"
	"gokryptos/domain/core"
	"gokryptos/domain/schedule"
	"gokryptos/ports"
)

const defaultParallelism = 4

// Search enumerates (family, period, phase) options per class, filters
// each class against its own anchor cells, and combines the survivors
// into full plans. Classes constrain independently, so an option that
// fails for one class can be discarded without touching the others;
// the cartesian combination only ever walks options that already
// survived their class. Enumeration order is fixed by Bounds.Options,
// which makes hit order reproducible across runs and worker counts.
func (e *Engine) Search(ctx context.Context, req ports.SearchRequest) (*ports.SearchReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Bounds.Validate(); err != nil {
		return nil, err
	}
	if req.Text.Len() != req.Anchors.TextLen() {
		return nil, fmt.Errorf("%w: anchor set sized for %d letters, text has %d",
			core.ErrInvalidAnchor, req.Anchors.TextLen(), req.Text.Len())
	}
	if len(req.Formulas) == 0 {
		return nil, fmt.Errorf("%w: search needs at least one formula", core.ErrInvalidFormula)
	}

	parallelism := req.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	report := &ports.SearchReport{
		ClassOptions: make(map[string][]int, len(req.Formulas)),
	}

	for _, id := range req.Formulas {
		formula, err := classing.ByID(id)
		if err != nil {
			return nil, err
		}

		feasible, err := e.feasibleOptions(ctx, req, formula, parallelism)
		if err != nil {
			return nil, err
		}

		counts := make([]int, len(feasible))
		open := true
		for c, opts := range feasible {
			counts[c] = len(opts)
			if len(opts) == 0 {
				open = false
			}
		}
		report.ClassOptions[id] = counts
		if !open {
			continue
		}

		done, err := e.combine(ctx, req, id, feasible, report)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	report.Feasible = len(report.Hits) > 0
	return report, nil
}

// feasibleOptions solves each class against its anchor cells for every
// option in the bounds. Classes are filtered concurrently; each worker
// writes only its own slice index, so results need no locking.
func (e *Engine) feasibleOptions(ctx context.Context, req ports.SearchRequest, formula classing.Formula, parallelism int) ([][]schedule.ClassConfig, error) {
	options := req.Bounds.Options()

	byClass := make([][]int, formula.Classes())
	for _, i := range req.Anchors.Positions() {
		c := formula.ClassOf(i)
		byClass[c] = append(byClass[c], i)
	}

	out := make([][]schedule.ClassConfig, formula.Classes())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for c := 0; c < formula.Classes(); c++ {
		c := c
		g.Go(func() error {
			var keep []schedule.ClassConfig
			for _, opt := range options {
				if err := gctx.Err(); err != nil {
					return err
				}
				ok, err := classFeasible(c, opt, byClass[c], req.Text, req.Anchors)
				if err != nil {
					return err
				}
				if ok {
					keep = append(keep, opt)
				}
			}
			out[c] = keep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// classFeasible forces one class's anchor cells into a single wheel
// under the given option. A lawfulness failure means the option is out
// for this class, nothing more.
func classFeasible(class int, opt schedule.ClassConfig, members []int, text cipher.Text, anchors cipher.AnchorSet) (bool, error) {
	w, err := schedule.NewWheel(class, opt.Family, opt.Period, opt.Phase)
	if err != nil {
		return false, err
	}
	for _, i := range members {
		p, _ := anchors.PlaintextAt(i)
		if err := w.Force(i, p, text.At(i)); err != nil {
			if isLawfulness(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// combine walks the cartesian product of surviving options depth-first
// and solves each full plan through the canonical path, so every hit
// has been propagated and round-trip checked exactly like a direct
// Solve call. Returns true when the search should stop early.
func (e *Engine) combine(ctx context.Context, req ports.SearchRequest, formulaID string, feasible [][]schedule.ClassConfig, report *ports.SearchReport) (bool, error) {
	combo := make([]schedule.ClassConfig, len(feasible))

	var walk func(c int) (bool, error)
	walk = func(c int) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if c == len(feasible) {
			report.PlansEvaluated++
			plan, err := schedule.NewPlan(formulaID, combo)
			if err != nil {
				return false, err
			}
			out, err := e.Solve(ctx, req.Text, req.Anchors, plan)
			if err != nil {
				return false, err
			}
			if !out.Lawful {
				return false, nil
			}
			report.Hits = append(report.Hits, ports.SearchHit{
				Plan:      plan,
				Schedule:  out.Schedule,
				Plaintext: out.Plaintext,
			})
			if req.StopAtFirst {
				return true, nil
			}
			if req.MaxResults > 0 && len(report.Hits) >= req.MaxResults {
				report.Truncated = true
				return true, nil
			}
			return false, nil
		}
		for _, opt := range feasible[c] {
			combo[c] = opt
			done, err := walk(c + 1)
			if done || err != nil {
				return done, err
			}
		}
		return false, nil
	}

	return walk(0)
}
