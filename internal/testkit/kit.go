package testkit

import (
	"context"
	"fmt"
	"sync"

	"gokryptos/adapters/lexicon"
	"gokryptos/adapters/metrics"
	"gokryptos/adapters/rng"
	"gokryptos/adapters/solver"
	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/domain/run"
	"gokryptos/ports"
)

// Kit wires real adapters and shared fakes for package tests. The RNG,
// lexicon, scorer, and solver adapters are deterministic and cheap, so
// tests use the real ones; only the ledger is faked in memory.
type Kit struct {
	ledger *InMemoryLedger
	lex    ports.LexiconPort
}

// New creates a test kit with a fresh in-memory ledger.
func New() (*Kit, error) {
	return &Kit{ledger: NewInMemoryLedger(), lex: lexicon.New()}, nil
}

// Ledger returns the shared in-memory ledger.
func (k *Kit) Ledger() ports.LedgerPort {
	return k.ledger
}

// LedgerReader returns read access to the same storage as Ledger.
func (k *Kit) LedgerReader() ports.LedgerReaderPort {
	return k.ledger
}

// RNG returns the real seeded RNG adapter.
func (k *Kit) RNG() ports.RNGPort {
	return rng.New()
}

// Lexicon returns the embedded word list adapter.
func (k *Kit) Lexicon() ports.LexiconPort {
	return k.lex
}

// Scorer returns a metric engine backed by the embedded lexicon.
func (k *Kit) Scorer() ports.ScorerPort {
	return metrics.NewEngine(k.lex)
}

// Solver returns the real solving engine.
func (k *Kit) Solver() ports.SolverPort {
	return solver.New()
}

// InMemoryLedger implements ports.LedgerPort with map storage. Records
// are returned in insertion order so tests can assert on listings.
type InMemoryLedger struct {
	mu            sync.RWMutex
	manifests     map[core.RunID]run.Manifest
	manifestOrder []core.RunID
	candidates    map[core.CandidateID]run.Candidate
	byRun         map[core.RunID][]core.CandidateID
	verdicts      map[core.CandidateID]gate.Verdict
	verdictOrder  []core.CandidateID
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		manifests:  make(map[core.RunID]run.Manifest),
		candidates: make(map[core.CandidateID]run.Candidate),
		byRun:      make(map[core.RunID][]core.CandidateID),
		verdicts:   make(map[core.CandidateID]gate.Verdict),
	}
}

var _ ports.LedgerPort = (*InMemoryLedger)(nil)

func (l *InMemoryLedger) StoreManifest(ctx context.Context, m run.Manifest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.manifests[m.ID]; !exists {
		l.manifestOrder = append(l.manifestOrder, m.ID)
	}
	l.manifests[m.ID] = m
	return nil
}

func (l *InMemoryLedger) StoreCandidate(ctx context.Context, c run.Candidate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.candidates[c.ID]; !exists {
		l.byRun[c.RunID] = append(l.byRun[c.RunID], c.ID)
	}
	l.candidates[c.ID] = c
	return nil
}

func (l *InMemoryLedger) StoreVerdict(ctx context.Context, v gate.Verdict) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.verdicts[v.CandidateID]; !exists {
		l.verdictOrder = append(l.verdictOrder, v.CandidateID)
	}
	l.verdicts[v.CandidateID] = v
	return nil
}

func (l *InMemoryLedger) GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.manifests[runID]
	if !ok {
		return nil, fmt.Errorf("%w %s", core.ErrRunNotFound, runID)
	}
	return &m, nil
}

func (l *InMemoryLedger) ListManifests(ctx context.Context, limit int) ([]run.Manifest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]run.Manifest, 0, len(l.manifestOrder))
	for _, id := range l.manifestOrder {
		out = append(out, l.manifests[id])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (l *InMemoryLedger) GetCandidate(ctx context.Context, id core.CandidateID) (*run.Candidate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.candidates[id]
	if !ok {
		return nil, fmt.Errorf("%w %s", core.ErrCandidateNotFound, id)
	}
	return &c, nil
}

func (l *InMemoryLedger) GetCandidatesByRun(ctx context.Context, runID core.RunID) ([]run.Candidate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := l.byRun[runID]
	out := make([]run.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.candidates[id])
	}
	return out, nil
}

func (l *InMemoryLedger) GetVerdict(ctx context.Context, candidateID core.CandidateID) (*gate.Verdict, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.verdicts[candidateID]
	if !ok {
		return nil, fmt.Errorf("%w %s", core.ErrVerdictNotFound, candidateID)
	}
	return &v, nil
}

func (l *InMemoryLedger) ListVerdicts(ctx context.Context, filters ports.VerdictFilters) ([]gate.Verdict, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []gate.Verdict
	skipped := 0
	for _, id := range l.verdictOrder {
		v := l.verdicts[id]
		if filters.RunID != nil && v.RunID != *filters.RunID {
			continue
		}
		if filters.Decision != nil && v.Decision != *filters.Decision {
			continue
		}
		if skipped < filters.Offset {
			skipped++
			continue
		}
		out = append(out, v)
		if filters.Limit > 0 && len(out) >= filters.Limit {
			break
		}
	}
	return out, nil
}
