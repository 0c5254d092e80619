package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bindery/internal/config"
	"bindery/internal/registry"
)

// Store persists conversion attempt records in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the metrics database under the log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "metrics.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_key TEXT NOT NULL,
    outcome TEXT NOT NULL,
    duration_seconds REAL NOT NULL DEFAULT 0,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_job_key ON attempts(job_key);
CREATE INDEX IF NOT EXISTS idx_attempts_recorded_at ON attempts(recorded_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init metrics schema: %w", err)
	}
	return nil
}

// RecordAttempt stores one finished attempt.
func (s *Store) RecordAttempt(ctx context.Context, attempt registry.Attempt) error {
	const query = `
INSERT INTO attempts (job_key, outcome, duration_seconds, size_bytes, error_message, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		attempt.JobKey,
		string(attempt.Outcome),
		attempt.DurationSeconds,
		attempt.SizeBytes,
		nullableString(attempt.ErrorMessage),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record attempt for %s: %w", attempt.JobKey, err)
	}
	return nil
}

// AttemptRow is one stored attempt.
type AttemptRow struct {
	ID              int64
	JobKey          string
	Outcome         string
	DurationSeconds float64
	SizeBytes       int64
	ErrorMessage    string
	RecordedAt      time.Time
}

// Recent returns the newest attempts, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]AttemptRow, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, job_key, outcome, duration_seconds, size_bytes, error_message, recorded_at
FROM attempts
ORDER BY id DESC
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRow
	for rows.Next() {
		var (
			row        AttemptRow
			message    sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&row.ID, &row.JobKey, &row.Outcome, &row.DurationSeconds, &row.SizeBytes, &message, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		row.ErrorMessage = message.String
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			row.RecordedAt = ts
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

// Stats summarizes all recorded attempts.
type Stats struct {
	TotalAttempts        int64
	Completed            int64
	Retried              int64
	FailedTerminally     int64
	SuccessRate          float64
	TotalDurationSeconds float64
	TotalOutputBytes     int64
}

// Stats computes aggregate counters over the whole attempt history.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	const query = `
SELECT
    COUNT(*),
    COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(duration_seconds), 0),
    COALESCE(SUM(CASE WHEN outcome = ? THEN size_bytes ELSE 0 END), 0)
FROM attempts`
	var stats Stats
	err := s.db.QueryRowContext(ctx, query,
		string(registry.StatusCompleted),
		string(registry.StatusNeedsRetry),
		string(registry.StatusFailed),
		string(registry.StatusCompleted),
	).Scan(
		&stats.TotalAttempts,
		&stats.Completed,
		&stats.Retried,
		&stats.FailedTerminally,
		&stats.TotalDurationSeconds,
		&stats.TotalOutputBytes,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("query attempt stats: %w", err)
	}
	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(stats.TotalAttempts)
	}
	return stats, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ registry.MetricsSink = (*Store)(nil)
