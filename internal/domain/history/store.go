// Package history persists snippet evaluations to SQLite and answers
// queries over past runs. Recording is asynchronous so the evaluation
// path never waits on the database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Schema for the runs table. Open applies it automatically.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	session_id TEXT,
	source TEXT NOT NULL,
	output TEXT NOT NULL,
	ok INTEGER NOT NULL,
	duration_us INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id) WHERE session_id IS NOT NULL;
`

// List limits. Callers asking for more than MaxListLimit get clamped.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ErrNotFound is returned when a run record does not exist.
var ErrNotFound = errors.New("run record not found")

// Record is one persisted snippet evaluation.
type Record struct {
	ID         string    `json:"id"`
	SessionID  *string   `json:"session_id,omitempty"`
	Source     string    `json:"source"`
	Output     string    `json:"output"`
	OK         bool      `json:"ok"`
	DurationUS int64     `json:"duration_us"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	SessionID *string
	OK        *bool
	Limit     int
	Offset    int
}

type config struct {
	busyTimeout int
	synchronous string
}

func defaults() config {
	return config{
		busyTimeout: 10_000,
		synchronous: "NORMAL",
	}
}

// Option customises Open behaviour.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) Option { return func(c *config) { c.synchronous = mode } }

// Store is the synchronous SQLite layer under the history manager.
type Store struct {
	db *sql.DB
}

// Open opens the run database at path, creating parent directories and
// applying the schema. The connection pool is pinned to one connection
// to avoid SQLITE_BUSY under concurrent writes.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists one record.
func (s *Store) Insert(ctx context.Context, r *Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, source, output, ok, duration_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Source, r.Output, r.OK, r.DurationUS, r.CreatedAt.UnixMilli())
	return err
}

// InsertBatch persists records inside one transaction with a prepared
// statement. Any failed row rolls back the whole batch.
func (s *Store) InsertBatch(ctx context.Context, batch []*Record) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO runs (id, session_id, source, output, ok, duration_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.ID, r.SessionID, r.Source, r.Output, r.OK, r.DurationUS, r.CreatedAt.UnixMilli()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns one record by ID.
func (s *Store) Get(ctx context.Context, recordID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, source, output, ok, duration_us, created_at FROM runs WHERE id = ?`,
		recordID)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", recordID, ErrNotFound)
	}
	return r, err
}

// List returns records newest first. ULID run ids sort by creation
// time, so ordering by id gives time order with a unique key.
func (s *Store) List(ctx context.Context, f Filter) ([]*Record, error) {
	query := `SELECT id, session_id, source, output, ok, duration_us, created_at FROM runs`

	var conds []string
	var args []interface{}
	if f.SessionID != nil {
		conds = append(conds, "session_id = ?")
		args = append(args, *f.SessionID)
	}
	if f.OK != nil {
		conds = append(conds, "ok = ?")
		args = append(args, *f.OK)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	args = append(args, limit)

	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*Record, 0, limit)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// All returns every record oldest first, for exports.
func (s *Store) All(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, source, output, ok, duration_us, created_at FROM runs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// Outcomes returns the total and succeeded run counts.
func (s *Store) Outcomes(ctx context.Context) (total, succeeded int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(ok), 0) FROM runs`).Scan(&total, &succeeded)
	return total, succeeded, err
}

// Durations returns every recorded run duration in milliseconds.
func (s *Store) Durations(ctx context.Context) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT duration_us FROM runs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var us int64
		if err := rows.Scan(&us); err != nil {
			return nil, err
		}
		out = append(out, float64(us)/1000.0)
	}
	return out, rows.Err()
}

// Prune deletes old records. keepLast bounds the table to the newest N
// records and maxAge drops records older than the cutoff. Zero values
// skip the corresponding pass. Returns the number of rows removed.
func (s *Store) Prune(ctx context.Context, keepLast int, maxAge time.Duration) (int64, error) {
	var removed int64

	if keepLast > 0 {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`,
			keepLast)
		if err != nil {
			return removed, fmt.Errorf("prune keep-last: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge).UnixMilli()
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
		if err != nil {
			return removed, fmt.Errorf("prune max-age: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	return removed, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r         Record
		session   sql.NullString
		createdMS int64
	)
	if err := row.Scan(&r.ID, &session, &r.Source, &r.Output, &r.OK, &r.DurationUS, &createdMS); err != nil {
		return nil, err
	}
	if session.Valid {
		r.SessionID = &session.String
	}
	r.CreatedAt = time.UnixMilli(createdMS).UTC()
	return &r, nil
}
