// Package store persists analysis runs in a SQLite database
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/sprstat/internal/model"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	participants INTEGER NOT NULL,
	trials_kept  INTEGER NOT NULL,
	observations INTEGER NOT NULL,
	confidence   TEXT NOT NULL,
	report_json  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS observations (
	run_id         TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	participant_id TEXT NOT NULL,
	trial_index    INTEGER NOT NULL,
	item_id        TEXT NOT NULL,
	emotion        TEXT NOT NULL,
	plausibility   TEXT NOT NULL,
	region         TEXT NOT NULL,
	text           TEXT NOT NULL,
	rt             REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_run ON observations(run_id, region);
CREATE TABLE IF NOT EXISTS tests (
	run_id    TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	kind      TEXT NOT NULL,
	t         REAL NOT NULL,
	df        REAL NOT NULL,
	p         REAL NOT NULL,
	mean_diff REAL NOT NULL,
	n1        INTEGER NOT NULL,
	n2        INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS effects (
	run_id    TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	kind      TEXT NOT NULL,
	d         REAL NOT NULL,
	ci_lower  REAL,
	ci_upper  REAL,
	magnitude TEXT NOT NULL
);
`

// Store wraps a SQLite database connection
type Store struct {
	conn *sql.DB
	Path string
}

// Open opens (creating if needed) a SQLite database with WAL mode and
// foreign keys enabled, and applies the schema
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Batch workers share one writer
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveRun writes a report and its region observations in one transaction
func (s *Store) SaveRun(ctx context.Context, r *model.Report, obs []model.RegionObservation) (err error) {
	reportJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, source, created_at, participants, trials_kept, observations, confidence, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Source, r.CreatedAt.UTC().Format(time.RFC3339Nano), r.Participants,
		r.Exclusion.TrialsKept, len(obs), r.Confidence, string(reportJSON)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	obsStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO observations (run_id, participant_id, trial_index, item_id, emotion, plausibility, region, text, rt)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare observations: %w", err)
	}
	defer obsStmt.Close()
	for _, o := range obs {
		if _, err = obsStmt.ExecContext(ctx, r.RunID, o.Trial.ParticipantID, o.Trial.TrialIndex, o.Trial.ItemID,
			string(o.Trial.Emotion), string(o.Trial.Plausibility), string(o.Type), o.Text, o.RT); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	for _, t := range r.Tests {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO tests (run_id, name, kind, t, df, p, mean_diff, n1, n2) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, t.Name, string(t.Kind), t.Statistic, t.DF, t.PValue, t.MeanDiff, t.N1, t.N2); err != nil {
			return fmt.Errorf("insert test: %w", err)
		}
	}

	for _, e := range r.EffectSizes {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO effects (run_id, name, kind, d, ci_lower, ci_upper, magnitude) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, e.Name, string(e.Kind), e.D, nullable(e.CILower), nullable(e.CIUpper), e.Magnitude); err != nil {
			return fmt.Errorf("insert effect: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// RunSummary is one row of the run history
type RunSummary struct {
	RunID        string
	Source       string
	CreatedAt    time.Time
	Participants int
	TrialsKept   int
	Observations int
	Confidence   string
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT run_id, source, created_at, participants, trials_kept, observations, confidence
	          FROM runs ORDER BY created_at DESC, run_id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.RunID, &r.Source, &created, &r.Participants, &r.TrialsKept, &r.Observations, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s: parse created_at: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadReport returns the full report stored for runID
func (s *Store) LoadReport(ctx context.Context, runID string) (*model.Report, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE run_id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	var r model.Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return &r, nil
}

// RegionMeans returns the mean RT per region and emotion for a run, the
// shape used to compare runs against each other
func (s *Store) RegionMeans(ctx context.Context, runID string) (map[model.RegionType]map[model.Emotion]float64, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT region, emotion, AVG(rt) FROM observations WHERE run_id = ? GROUP BY region, emotion`, runID)
	if err != nil {
		return nil, fmt.Errorf("query region means: %w", err)
	}
	defer rows.Close()

	out := make(map[model.RegionType]map[model.Emotion]float64)
	for rows.Next() {
		var region, emotion string
		var mean float64
		if err := rows.Scan(&region, &emotion, &mean); err != nil {
			return nil, fmt.Errorf("scan region mean: %w", err)
		}
		rt := model.RegionType(region)
		if out[rt] == nil {
			out[rt] = make(map[model.Emotion]float64)
		}
		out[rt][model.Emotion(emotion)] = mean
	}
	return out, rows.Err()
}

// DeleteRun removes a run and, through cascading keys, its rows
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
