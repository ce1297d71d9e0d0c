// Package history keeps a local SQLite ledger of upload attempts. The
// manifest remains the authoritative per-row record; the ledger adds what the
// manifest cannot hold — per-attempt timing, error detail, and the run ID —
// for post-hoc diagnosis across runs.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // database/sql driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Attempt is one recorded upload attempt.
type Attempt struct {
	ID        int64
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Filename  string
	Account   string
	Status    string
	VideoID   string
	Error     string
}

// Ledger wraps the attempts table.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at dbPath and applies
// pending migrations. The database uses WAL mode with synchronous=FULL for
// crash-safe durability.
func Open(dbPath string, logger *slog.Logger) (*Ledger, error) {
	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db, logger: logger}, nil
}

// runMigrations applies all pending schema migrations to the database.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// Strip the "migrations/" prefix so goose sees files at the root of the FS.
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("history: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("history: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("history: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record inserts one attempt row.
func (l *Ledger) Record(ctx context.Context, a *Attempt) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO attempts
			(run_id, started_at, duration_ms, filename, account, status, video_id, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.StartedAt.UnixMilli(), a.Duration.Milliseconds(),
		a.Filename, a.Account, a.Status, a.VideoID, a.Error,
	)
	if err != nil {
		return fmt.Errorf("history: recording attempt for %s: %w", a.Filename, err)
	}

	return nil
}

// Recent returns the n most recent attempts, newest first.
func (l *Ledger) Recent(ctx context.Context, n int) ([]Attempt, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, started_at, duration_ms, filename, account, status, video_id, error
			FROM attempts ORDER BY started_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: querying attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt

	for rows.Next() {
		var a Attempt
		var startedMs, durationMs int64

		if err := rows.Scan(&a.ID, &a.RunID, &startedMs, &durationMs,
			&a.Filename, &a.Account, &a.Status, &a.VideoID, &a.Error); err != nil {
			return nil, fmt.Errorf("history: scanning attempt: %w", err)
		}

		a.StartedAt = time.UnixMilli(startedMs)
		a.Duration = time.Duration(durationMs) * time.Millisecond
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating attempts: %w", err)
	}

	return attempts, nil
}
