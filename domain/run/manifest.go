package run

import (
	"fmt"
	"strings"

	"gokryptos/domain/cipher"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/domain/schedule"
)

// Manifest is the complete specification of one run, the truth source
// for replay: every input that can change an output, echoed in
// canonical form and folded into a fingerprint. Two runs with equal
// fingerprints are bit-identical by construction.
type Manifest struct {
	ID          core.RunID       `json:"id"`
	TextHash    core.TextHash    `json:"text_hash"`
	TextLen     int              `json:"text_len"`
	Anchors     string           `json:"anchors"`
	Formulas    []string         `json:"formulas"`
	Bounds      string           `json:"bounds"`
	Seed        int64            `json:"seed"`
	NullSamples int              `json:"null_samples"`
	NullPolicy  string           `json:"null_policy"`
	GateConfig  core.ConfigHash  `json:"gate_config"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
	CreatedAt   core.Timestamp   `json:"created_at"`
}

// NewManifest assigns a fresh run id and computes the fingerprint from
// the canonical input descriptions.
func NewManifest(
	text cipher.Text,
	anchors cipher.AnchorSet,
	formulas []string,
	bounds schedule.Bounds,
	seed int64,
	nullSamples int,
	nullPolicy string,
	gcfg gate.Config,
) Manifest {
	m := Manifest{
		ID:          core.NewRunID(),
		TextHash:    text.Hash(),
		TextLen:     text.Len(),
		Anchors:     anchors.Describe(),
		Formulas:    append([]string(nil), formulas...),
		Bounds:      bounds.Describe(),
		Seed:        seed,
		NullSamples: nullSamples,
		NullPolicy:  nullPolicy,
		GateConfig:  gcfg.Hash(),
		CreatedAt:   core.Now(),
	}
	m.Fingerprint = m.computeFingerprint()
	return m
}

// NewPlanManifest records a run that pins one exact plan instead of
// searching bounds. The plan's canonical description takes the bounds
// slot, so two runs pinning different plans can never share a
// fingerprint.
func NewPlanManifest(
	text cipher.Text,
	anchors cipher.AnchorSet,
	plan schedule.Plan,
	seed int64,
	nullSamples int,
	nullPolicy string,
	gcfg gate.Config,
) Manifest {
	m := Manifest{
		ID:          core.NewRunID(),
		TextHash:    text.Hash(),
		TextLen:     text.Len(),
		Anchors:     anchors.Describe(),
		Formulas:    []string{plan.Formula().ID()},
		Bounds:      "plan=" + plan.Describe(),
		Seed:        seed,
		NullSamples: nullSamples,
		NullPolicy:  nullPolicy,
		GateConfig:  gcfg.Hash(),
		CreatedAt:   core.Now(),
	}
	m.Fingerprint = m.computeFingerprint()
	return m
}

func (m Manifest) computeFingerprint() core.Fingerprint {
	return core.NewFingerprint(
		m.TextHash.String(),
		fmt.Sprintf("len=%d", m.TextLen),
		m.Anchors,
		strings.Join(m.Formulas, ","),
		m.Bounds,
		fmt.Sprintf("seed=%d", m.Seed),
		fmt.Sprintf("nulls=%d:%s", m.NullSamples, m.NullPolicy),
		m.GateConfig.String(),
	)
}

// Validate checks the manifest is complete.
func (m Manifest) Validate() error {
	if core.ID(m.ID).IsEmpty() {
		return core.NewValidationError("manifest", "id cannot be empty")
	}
	if core.Hash(m.TextHash).IsEmpty() {
		return core.NewValidationError("manifest", "text_hash cannot be empty")
	}
	if m.TextLen <= 0 {
		return core.NewValidationError("manifest", "text_len must be positive")
	}
	if len(m.Formulas) == 0 {
		return core.NewValidationError("manifest", "formulas cannot be empty")
	}
	if core.Hash(m.GateConfig).IsEmpty() {
		return core.NewValidationError("manifest", "gate_config cannot be empty")
	}
	return nil
}

// Verify recomputes the fingerprint; a mismatch means the manifest was
// mutated after creation.
func (m Manifest) Verify() error {
	if got := m.computeFingerprint(); got != m.Fingerprint {
		return fmt.Errorf("%w: manifest %s", core.ErrHashMismatch, m.ID)
	}
	return nil
}
