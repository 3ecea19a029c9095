package schedule

import (
	"fmt"
	"strings"

	"gokryptos/domain/cipher"
	"gokryptos/domain/classing"
	"gokryptos/domain/core"
)

// ClassConfig declares the family, period and phase one class runs.
type ClassConfig struct {
	Family cipher.Family `json:"family"`
	Period int           `json:"period"`
	Phase  int           `json:"phase"`
}

// Validate checks the period and phase ranges.
func (c ClassConfig) Validate() error {
	if c.Period < 1 {
		return fmt.Errorf("%w: period %d", core.ErrInvalidSchedule, c.Period)
	}
	if c.Phase < 0 || c.Phase >= c.Period {
		return fmt.Errorf("%w: phase %d outside [0,%d)", core.ErrInvalidSchedule, c.Phase, c.Period)
	}
	return nil
}

// String renders the canonical "family:L<period>:P<phase>" form.
func (c ClassConfig) String() string {
	return fmt.Sprintf("%s:L%d:P%d", c.Family, c.Period, c.Phase)
}

// Plan pairs a classing formula with one ClassConfig per class. A plan
// is pure configuration; solving a plan against anchors produces a
// Schedule.
type Plan struct {
	formula classing.Formula
	classes []ClassConfig
}

// NewPlan validates the class configs against the formula's class count.
func NewPlan(formulaID string, classes []ClassConfig) (Plan, error) {
	f, err := classing.ByID(formulaID)
	if err != nil {
		return Plan{}, err
	}
	if len(classes) != f.Classes() {
		return Plan{}, fmt.Errorf("%w: formula %s has %d classes, got %d configs",
			core.ErrInvalidSchedule, f.ID(), f.Classes(), len(classes))
	}
	for c, cc := range classes {
		if err := cc.Validate(); err != nil {
			return Plan{}, fmt.Errorf("class %d: %w", c, err)
		}
	}
	cp := make([]ClassConfig, len(classes))
	copy(cp, classes)
	return Plan{formula: f, classes: cp}, nil
}

// UniformPlan builds a plan giving every class the same config.
func UniformPlan(formulaID string, cc ClassConfig) (Plan, error) {
	f, err := classing.ByID(formulaID)
	if err != nil {
		return Plan{}, err
	}
	classes := make([]ClassConfig, f.Classes())
	for c := range classes {
		classes[c] = cc
	}
	return NewPlan(formulaID, classes)
}

// Formula returns the resolved classing formula.
func (p Plan) Formula() classing.Formula {
	return p.formula
}

// Class returns the config for one class.
func (p Plan) Class(c int) ClassConfig {
	return p.classes[c]
}

// Classes returns a copy of the per-class configs.
func (p Plan) Classes() []ClassConfig {
	cp := make([]ClassConfig, len(p.classes))
	copy(cp, p.classes)
	return cp
}

// Describe renders the canonical plan description used in fingerprints:
// the formula id followed by each class config in class order.
func (p Plan) Describe() string {
	parts := make([]string, 0, len(p.classes)+1)
	parts = append(parts, p.formula.ID())
	for _, cc := range p.classes {
		parts = append(parts, cc.String())
	}
	return strings.Join(parts, "|")
}

// Bounds delimit the search space for one class: which families to
// try, the period range, and whether to sweep phases or pin phase 0.
type Bounds struct {
	Families  []cipher.Family `json:"families"`
	MinPeriod int             `json:"min_period"`
	MaxPeriod int             `json:"max_period"`
	AllPhases bool            `json:"all_phases"`
}

// Validate checks the family list and period range.
func (b Bounds) Validate() error {
	if len(b.Families) == 0 {
		return fmt.Errorf("%w: no families in bounds", core.ErrInvalidSchedule)
	}
	seen := make(map[cipher.Family]bool, len(b.Families))
	for _, f := range b.Families {
		if seen[f] {
			return fmt.Errorf("%w: duplicate family %s in bounds", core.ErrInvalidSchedule, f)
		}
		seen[f] = true
	}
	if b.MinPeriod < 1 {
		return fmt.Errorf("%w: min period %d", core.ErrInvalidSchedule, b.MinPeriod)
	}
	if b.MaxPeriod < b.MinPeriod {
		return fmt.Errorf("%w: period range %d..%d", core.ErrInvalidSchedule, b.MinPeriod, b.MaxPeriod)
	}
	return nil
}

// Options enumerates every ClassConfig the bounds admit, in a fixed
// order: family, then period, then phase. Search determinism rests on
// this order never changing.
func (b Bounds) Options() []ClassConfig {
	var out []ClassConfig
	for _, f := range b.Families {
		for l := b.MinPeriod; l <= b.MaxPeriod; l++ {
			phases := 1
			if b.AllPhases {
				phases = l
			}
			for ph := 0; ph < phases; ph++ {
				out = append(out, ClassConfig{Family: f, Period: l, Phase: ph})
			}
		}
	}
	return out
}

// Describe renders the canonical bounds description used in run
// fingerprints.
func (b Bounds) Describe() string {
	names := make([]string, len(b.Families))
	for i, f := range b.Families {
		names[i] = f.String()
	}
	phases := "zero"
	if b.AllPhases {
		phases = "all"
	}
	return fmt.Sprintf("families=%s;L=%d..%d;phases=%s",
		strings.Join(names, ","), b.MinPeriod, b.MaxPeriod, phases)
}

// Schedule is a plan plus its wheels. Wheels accumulate forced residues
// as anchors are applied; a schedule that survives forcing without
// error is lawful for those anchors.
type Schedule struct {
	plan   Plan
	wheels []*Wheel
}

// NewSchedule builds a schedule with empty wheels.
func NewSchedule(plan Plan) (*Schedule, error) {
	wheels := make([]*Wheel, plan.formula.Classes())
	for c := range wheels {
		cc := plan.classes[c]
		w, err := NewWheel(c, cc.Family, cc.Period, cc.Phase)
		if err != nil {
			return nil, err
		}
		wheels[c] = w
	}
	return &Schedule{plan: plan, wheels: wheels}, nil
}

// Plan returns the originating plan.
func (s *Schedule) Plan() Plan {
	return s.plan
}

// Wheel returns the wheel for one class.
func (s *Schedule) Wheel(class int) *Wheel {
	return s.wheels[class]
}

// ClassOf maps a ciphertext index to its class.
func (s *Schedule) ClassOf(i int) int {
	return s.plan.formula.ClassOf(i)
}

// Force routes an anchor cell to its class wheel.
func (s *Schedule) Force(i int, plain, ciph cipher.Residue) error {
	return s.wheels[s.ClassOf(i)].Force(i, plain, ciph)
}

// KeyAt returns the key residue index i reads, if forced.
func (s *Schedule) KeyAt(i int) (cipher.Residue, bool) {
	return s.wheels[s.ClassOf(i)].At(i)
}

// DecryptAt decrypts one ciphertext residue if its slot is forced.
func (s *Schedule) DecryptAt(i int, c cipher.Residue) (cipher.Residue, bool) {
	w := s.wheels[s.ClassOf(i)]
	k, ok := w.At(i)
	if !ok {
		return 0, false
	}
	return w.family.Decrypt(c, k), true
}

// EncryptAt encrypts one plaintext residue if its slot is forced.
func (s *Schedule) EncryptAt(i int, p cipher.Residue) (cipher.Residue, bool) {
	w := s.wheels[s.ClassOf(i)]
	k, ok := w.At(i)
	if !ok {
		return 0, false
	}
	return w.family.Encrypt(p, k), true
}

// Filled sums forced slots across all wheels.
func (s *Schedule) Filled() int {
	n := 0
	for _, w := range s.wheels {
		n += w.Filled()
	}
	return n
}

// Clone returns an independent copy sharing no wheel state.
func (s *Schedule) Clone() *Schedule {
	wheels := make([]*Wheel, len(s.wheels))
	for c, w := range s.wheels {
		wheels[c] = w.Clone()
	}
	return &Schedule{plan: s.plan, wheels: wheels}
}

// Dump renders the full wheel state in class order. Two schedules with
// the same plan and the same forced residues dump identically, which
// makes this the canonical input for fingerprinting solved state.
func (s *Schedule) Dump() string {
	parts := make([]string, 0, len(s.wheels))
	for _, w := range s.wheels {
		cc := ClassConfig{Family: w.family, Period: w.period, Phase: w.phase}
		parts = append(parts, fmt.Sprintf("%d:%s:%s", w.class, cc, w.dump()))
	}
	return strings.Join(parts, ";")
}

// Fingerprint hashes the plan and wheel state.
func (s *Schedule) Fingerprint() core.Fingerprint {
	return core.NewFingerprint(s.plan.Describe(), s.Dump())
}
