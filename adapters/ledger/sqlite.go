package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"gokryptos/domain/core"
	"gokryptos/domain/gate"
	"gokryptos/domain/run"
	"gokryptos/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS manifests (
	run_id       TEXT PRIMARY KEY,
	text_hash    TEXT NOT NULL,
	text_len     INTEGER NOT NULL,
	anchors      TEXT NOT NULL,
	formulas     TEXT NOT NULL,
	bounds       TEXT NOT NULL,
	seed         INTEGER NOT NULL,
	null_samples INTEGER NOT NULL,
	null_policy  TEXT NOT NULL,
	gate_config  TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	plan        TEXT NOT NULL,
	wheel_state TEXT NOT NULL,
	plaintext   TEXT NOT NULL,
	determined  INTEGER NOT NULL,
	unknown     INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_run ON candidates(run_id);

CREATE TABLE IF NOT EXISTS verdicts (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	candidate_id TEXT NOT NULL UNIQUE,
	reached      TEXT NOT NULL,
	decision     TEXT NOT NULL,
	reason       TEXT NOT NULL,
	detail       TEXT NOT NULL,
	tracks       TEXT NOT NULL,
	report       TEXT,
	decided_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id);
`

// SQLiteLedger implements ports.LedgerPort over an embedded SQLite
// database. Writes are plain inserts; the ledger is append-only and
// re-storing an existing id is an error, not an update.
type SQLiteLedger struct {
	db *sqlx.DB
}

var _ ports.LedgerPort = (*SQLiteLedger)(nil)

// Open connects to (or creates) the ledger file and ensures the schema.
func Open(path string) (*SQLiteLedger, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening ledger at %s: %w", path, err)
	}
	l := &SQLiteLedger{db: db}
	if err := l.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// OpenInMemory creates a private in-memory ledger, useful in tests. The
// pool is pinned to one connection so every query sees the same
// database.
func OpenInMemory() (*SQLiteLedger, error) {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	l := &SQLiteLedger{db: db}
	if err := l.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating ledger schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) StoreManifest(ctx context.Context, m run.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	formulas, err := json.Marshal(m.Formulas)
	if err != nil {
		return fmt.Errorf("encoding formulas: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO manifests (run_id, text_hash, text_len, anchors, formulas, bounds,
			seed, null_samples, null_policy, gate_config, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID.String(), m.TextHash.String(), m.TextLen, m.Anchors, string(formulas), m.Bounds,
		m.Seed, m.NullSamples, m.NullPolicy, m.GateConfig.String(), m.Fingerprint.String(),
		m.CreatedAt.Time().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing manifest %s: %w", m.ID, err)
	}
	return nil
}

func (l *SQLiteLedger) StoreCandidate(ctx context.Context, c run.Candidate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO candidates (id, run_id, plan, wheel_state, plaintext,
			determined, unknown, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID.String(), c.RunID.String(), c.Plan, c.WheelState, c.Plaintext,
		c.Determined, c.Unknown, c.Fingerprint.String(),
		c.CreatedAt.Time().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing candidate %s: %w", c.ID, err)
	}
	return nil
}

func (l *SQLiteLedger) StoreVerdict(ctx context.Context, v gate.Verdict) error {
	tracks, err := json.Marshal(v.Tracks)
	if err != nil {
		return fmt.Errorf("encoding tracks: %w", err)
	}
	var report interface{}
	if v.Report != nil {
		data, err := json.Marshal(v.Report)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		report = string(data)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO verdicts (id, run_id, candidate_id, reached, decision, reason,
			detail, tracks, report, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID.String(), v.RunID.String(), v.CandidateID.String(), string(v.Reached),
		string(v.Decision), string(v.Reason), v.Detail, string(tracks), report,
		v.DecidedAt.Time().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing verdict %s: %w", v.ID, err)
	}
	return nil
}

// manifestRow mirrors the manifests table for sqlx scanning.
type manifestRow struct {
	RunID       string `db:"run_id"`
	TextHash    string `db:"text_hash"`
	TextLen     int    `db:"text_len"`
	Anchors     string `db:"anchors"`
	Formulas    string `db:"formulas"`
	Bounds      string `db:"bounds"`
	Seed        int64  `db:"seed"`
	NullSamples int    `db:"null_samples"`
	NullPolicy  string `db:"null_policy"`
	GateConfig  string `db:"gate_config"`
	Fingerprint string `db:"fingerprint"`
	CreatedAt   string `db:"created_at"`
}

func (r manifestRow) toManifest() (run.Manifest, error) {
	var formulas []string
	if err := json.Unmarshal([]byte(r.Formulas), &formulas); err != nil {
		return run.Manifest{}, fmt.Errorf("decoding formulas for %s: %w", r.RunID, err)
	}
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return run.Manifest{}, fmt.Errorf("decoding created_at for %s: %w", r.RunID, err)
	}
	return run.Manifest{
		ID:          core.RunID(r.RunID),
		TextHash:    core.TextHash(r.TextHash),
		TextLen:     r.TextLen,
		Anchors:     r.Anchors,
		Formulas:    formulas,
		Bounds:      r.Bounds,
		Seed:        r.Seed,
		NullSamples: r.NullSamples,
		NullPolicy:  r.NullPolicy,
		GateConfig:  core.ConfigHash(r.GateConfig),
		Fingerprint: core.Fingerprint(r.Fingerprint),
		CreatedAt:   core.NewTimestamp(created),
	}, nil
}

func (l *SQLiteLedger) GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error) {
	var row manifestRow
	err := l.db.GetContext(ctx, &row, `
		SELECT run_id, text_hash, text_len, anchors, formulas, bounds,
			seed, null_samples, null_policy, gate_config, fingerprint, created_at
		FROM manifests WHERE run_id = ?
	`, runID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w %s", core.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", runID, err)
	}
	m, err := row.toManifest()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (l *SQLiteLedger) ListManifests(ctx context.Context, limit int) ([]run.Manifest, error) {
	query := `
		SELECT run_id, text_hash, text_len, anchors, formulas, bounds,
			seed, null_samples, null_policy, gate_config, fingerprint, created_at
		FROM manifests ORDER BY created_at DESC, run_id
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []manifestRow
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing manifests: %w", err)
	}
	out := make([]run.Manifest, 0, len(rows))
	for _, r := range rows {
		m, err := r.toManifest()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// candidateRow mirrors the candidates table for sqlx scanning.
type candidateRow struct {
	ID          string `db:"id"`
	RunID       string `db:"run_id"`
	Plan        string `db:"plan"`
	WheelState  string `db:"wheel_state"`
	Plaintext   string `db:"plaintext"`
	Determined  int    `db:"determined"`
	Unknown     int    `db:"unknown"`
	Fingerprint string `db:"fingerprint"`
	CreatedAt   string `db:"created_at"`
}

func (r candidateRow) toCandidate() (run.Candidate, error) {
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return run.Candidate{}, fmt.Errorf("decoding created_at for %s: %w", r.ID, err)
	}
	return run.Candidate{
		ID:          core.CandidateID(r.ID),
		RunID:       core.RunID(r.RunID),
		Plan:        r.Plan,
		WheelState:  r.WheelState,
		Plaintext:   r.Plaintext,
		Determined:  r.Determined,
		Unknown:     r.Unknown,
		Fingerprint: core.Fingerprint(r.Fingerprint),
		CreatedAt:   core.NewTimestamp(created),
	}, nil
}

func (l *SQLiteLedger) GetCandidate(ctx context.Context, id core.CandidateID) (*run.Candidate, error) {
	var row candidateRow
	err := l.db.GetContext(ctx, &row, `
		SELECT id, run_id, plan, wheel_state, plaintext, determined, unknown, fingerprint, created_at
		FROM candidates WHERE id = ?
	`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w %s", core.ErrCandidateNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading candidate %s: %w", id, err)
	}
	c, err := row.toCandidate()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (l *SQLiteLedger) GetCandidatesByRun(ctx context.Context, runID core.RunID) ([]run.Candidate, error) {
	var rows []candidateRow
	err := l.db.SelectContext(ctx, &rows, `
		SELECT id, run_id, plan, wheel_state, plaintext, determined, unknown, fingerprint, created_at
		FROM candidates WHERE run_id = ? ORDER BY created_at, id
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("listing candidates for %s: %w", runID, err)
	}
	out := make([]run.Candidate, 0, len(rows))
	for _, r := range rows {
		c, err := r.toCandidate()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// verdictRow mirrors the verdicts table for sqlx scanning.
type verdictRow struct {
	ID          string         `db:"id"`
	RunID       string         `db:"run_id"`
	CandidateID string         `db:"candidate_id"`
	Reached     string         `db:"reached"`
	Decision    string         `db:"decision"`
	Reason      string         `db:"reason"`
	Detail      string         `db:"detail"`
	Tracks      string         `db:"tracks"`
	Report      sql.NullString `db:"report"`
	DecidedAt   string         `db:"decided_at"`
}

func (r verdictRow) toVerdict() (gate.Verdict, error) {
	var tracks []gate.TrackResult
	if err := json.Unmarshal([]byte(r.Tracks), &tracks); err != nil {
		return gate.Verdict{}, fmt.Errorf("decoding tracks for %s: %w", r.ID, err)
	}
	var report *gate.ScoreReport
	if r.Report.Valid && r.Report.String != "" {
		report = &gate.ScoreReport{}
		if err := json.Unmarshal([]byte(r.Report.String), report); err != nil {
			return gate.Verdict{}, fmt.Errorf("decoding report for %s: %w", r.ID, err)
		}
	}
	decided, err := time.Parse(time.RFC3339Nano, r.DecidedAt)
	if err != nil {
		return gate.Verdict{}, fmt.Errorf("decoding decided_at for %s: %w", r.ID, err)
	}
	return gate.Verdict{
		ID:          core.ID(r.ID),
		RunID:       core.RunID(r.RunID),
		CandidateID: core.CandidateID(r.CandidateID),
		Reached:     gate.Stage(r.Reached),
		Decision:    gate.Decision(r.Decision),
		Reason:      gate.RejectionReason(r.Reason),
		Detail:      r.Detail,
		Tracks:      tracks,
		Report:      report,
		DecidedAt:   core.NewTimestamp(decided),
	}, nil
}

func (l *SQLiteLedger) GetVerdict(ctx context.Context, candidateID core.CandidateID) (*gate.Verdict, error) {
	var row verdictRow
	err := l.db.GetContext(ctx, &row, `
		SELECT id, run_id, candidate_id, reached, decision, reason, detail, tracks, report, decided_at
		FROM verdicts WHERE candidate_id = ?
	`, candidateID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for candidate %s", core.ErrVerdictNotFound, candidateID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading verdict for %s: %w", candidateID, err)
	}
	v, err := row.toVerdict()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (l *SQLiteLedger) ListVerdicts(ctx context.Context, filters ports.VerdictFilters) ([]gate.Verdict, error) {
	query := `
		SELECT id, run_id, candidate_id, reached, decision, reason, detail, tracks, report, decided_at
		FROM verdicts
	`
	var conds []string
	var args []interface{}
	if filters.RunID != nil {
		conds = append(conds, "run_id = ?")
		args = append(args, filters.RunID.String())
	}
	if filters.Decision != nil {
		conds = append(conds, "decision = ?")
		args = append(args, string(*filters.Decision))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY decided_at DESC, id"
	if filters.Limit > 0 || filters.Offset > 0 {
		limit := filters.Limit
		if limit <= 0 {
			limit = -1 // SQLite: no limit, offset still applies
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filters.Offset)
	}

	var rows []verdictRow
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing verdicts: %w", err)
	}
	out := make([]gate.Verdict, 0, len(rows))
	for _, r := range rows {
		v, err := r.toVerdict()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
