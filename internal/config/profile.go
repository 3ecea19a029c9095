package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"gokryptos/domain/cipher"
	"gokryptos/domain/gate"
	"gokryptos/domain/schedule"
	"gokryptos/internal/errors"
)

// Profile is one research setup in a single TOML file: the ciphertext,
// its anchor cribs, and the knobs for solving, searching and gating.
// Everything a run needs to be replayed travels here or in the manifest
// the run writes.
type Profile struct {
	Name       string       `toml:"name"`
	Ciphertext string       `toml:"ciphertext"`
	Anchors    []AnchorSpec `toml:"anchors"`
	Formulas   []string     `toml:"formulas"`
	Plan       *PlanSpec    `toml:"plan"`
	Search     *SearchSpec  `toml:"search"`
	Nulls      NullsSpec    `toml:"nulls"`
	Gate       gate.Config  `toml:"gate"`
}

// AnchorSpec is one known plaintext span.
type AnchorSpec struct {
	Start     int    `toml:"start"`
	Plaintext string `toml:"plaintext"`
}

// PlanSpec pins one exact plan. Either the uniform shorthand (family,
// period, phase at the top level) or a full per-class list is given,
// never both.
type PlanSpec struct {
	Formula string      `toml:"formula"`
	Family  string      `toml:"family"`
	Period  int         `toml:"period"`
	Phase   int         `toml:"phase"`
	Classes []ClassSpec `toml:"classes"`
}

// ClassSpec configures one residue class of a pinned plan.
type ClassSpec struct {
	Family string `toml:"family"`
	Period int    `toml:"period"`
	Phase  int    `toml:"phase"`
}

// SearchSpec bounds a schedule sweep.
type SearchSpec struct {
	Families  []string `toml:"families"`
	MinPeriod int      `toml:"min_period"`
	MaxPeriod int      `toml:"max_period"`
	AllPhases bool     `toml:"all_phases"`
}

// NullsSpec carries the null battery knobs.
type NullsSpec struct {
	Policy  string `toml:"policy"`
	Samples int    `toml:"samples"`
	Seed    int64  `toml:"seed"`
}

// LoadProfile reads and validates a TOML profile.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, errors.Wrapf(err, "failed to load profile %s", path)
	}
	if len(p.Formulas) == 0 {
		p.Formulas = []string{"baseline"}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate exercises every conversion the profile declares, so a bad
// profile fails at load time rather than mid-run.
func (p *Profile) Validate() error {
	if p.Ciphertext == "" {
		return errors.ProfileInvalid("ciphertext is required")
	}
	if _, err := p.Text(); err != nil {
		return err
	}
	if _, err := p.AnchorSet(); err != nil {
		return err
	}
	if p.Plan != nil {
		if _, err := p.PinnedPlan(); err != nil {
			return err
		}
	}
	if p.Search != nil {
		if _, err := p.Bounds(); err != nil {
			return err
		}
	}
	return nil
}

// Text parses the profile ciphertext.
func (p *Profile) Text() (cipher.Text, error) {
	text, err := cipher.ParseText(p.Ciphertext)
	if err != nil {
		return cipher.Text{}, errors.Wrap(err, "invalid ciphertext")
	}
	return text, nil
}

// AnchorSet builds the anchor constraints against the ciphertext.
func (p *Profile) AnchorSet() (cipher.AnchorSet, error) {
	anchors := make([]cipher.Anchor, 0, len(p.Anchors))
	for i, spec := range p.Anchors {
		a, err := cipher.NewAnchor(spec.Start, spec.Plaintext)
		if err != nil {
			return cipher.AnchorSet{}, errors.Wrapf(err, "anchor %d", i)
		}
		anchors = append(anchors, a)
	}
	set, err := cipher.NewAnchorSet(len(p.Ciphertext), anchors...)
	if err != nil {
		return cipher.AnchorSet{}, errors.Wrap(err, "invalid anchor set")
	}
	return set, nil
}

// PinnedPlan resolves the profile's plan section.
func (p *Profile) PinnedPlan() (schedule.Plan, error) {
	if p.Plan == nil {
		return schedule.Plan{}, errors.ProfileInvalid("profile pins no plan")
	}
	spec := p.Plan
	formula := spec.Formula
	if formula == "" {
		formula = p.Formulas[0]
	}

	if len(spec.Classes) > 0 {
		if spec.Family != "" {
			return schedule.Plan{}, errors.ProfileInvalid("plan gives both a uniform family and per-class configs")
		}
		classes := make([]schedule.ClassConfig, len(spec.Classes))
		for c, cs := range spec.Classes {
			fam, err := cipher.ParseFamily(cs.Family)
			if err != nil {
				return schedule.Plan{}, errors.Wrapf(err, "plan class %d", c)
			}
			classes[c] = schedule.ClassConfig{Family: fam, Period: cs.Period, Phase: cs.Phase}
		}
		plan, err := schedule.NewPlan(formula, classes)
		if err != nil {
			return schedule.Plan{}, errors.Wrap(err, "invalid plan")
		}
		return plan, nil
	}

	fam, err := cipher.ParseFamily(spec.Family)
	if err != nil {
		return schedule.Plan{}, errors.Wrap(err, "plan family")
	}
	plan, err := schedule.UniformPlan(formula, schedule.ClassConfig{
		Family: fam, Period: spec.Period, Phase: spec.Phase,
	})
	if err != nil {
		return schedule.Plan{}, errors.Wrap(err, "invalid plan")
	}
	return plan, nil
}

// Bounds resolves the profile's search section.
func (p *Profile) Bounds() (schedule.Bounds, error) {
	if p.Search == nil {
		return schedule.Bounds{}, errors.ProfileInvalid("profile has no search section")
	}
	families := make([]cipher.Family, 0, len(p.Search.Families))
	for _, name := range p.Search.Families {
		fam, err := cipher.ParseFamily(name)
		if err != nil {
			return schedule.Bounds{}, errors.Wrapf(err, "search family %q", name)
		}
		families = append(families, fam)
	}
	b := schedule.Bounds{
		Families:  families,
		MinPeriod: p.Search.MinPeriod,
		MaxPeriod: p.Search.MaxPeriod,
		AllPhases: p.Search.AllPhases,
	}
	if err := b.Validate(); err != nil {
		return schedule.Bounds{}, errors.Wrap(err, "invalid search bounds")
	}
	return b, nil
}

// NullsOrDefaults fills unset battery knobs from process defaults.
func (p *Profile) NullsOrDefaults(d DefaultsConfig) NullsSpec {
	out := p.Nulls
	if out.Policy == "" {
		out.Policy = d.NullPolicy
	}
	if out.Samples == 0 {
		out.Samples = d.NullSamples
	}
	if out.Seed == 0 {
		out.Seed = d.Seed
	}
	return out
}

// Describe renders a one-line summary for logs.
func (p *Profile) Describe() string {
	return fmt.Sprintf("%s: %d letters, %d anchors, formulas %v",
		p.Name, len(p.Ciphertext), len(p.Anchors), p.Formulas)
}
