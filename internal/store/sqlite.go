// ABOUTME: SQLite implementation of the telemetry store using modernc.org/sqlite
// ABOUTME: Provides request record persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS backend_requests (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			backend TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			failed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_backend_requests_created_at
			ON backend_requests(created_at);
		CREATE INDEX IF NOT EXISTS idx_backend_requests_kind
			ON backend_requests(kind);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// RecordRequest stores a backend request record.
func (s *SQLiteStore) RecordRequest(ctx context.Context, rec *RequestRecord) error {
	query := `
		INSERT INTO backend_requests (id, kind, backend, duration_ms, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	failed := 0
	if rec.Failed {
		failed = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.Kind),
		rec.Backend,
		rec.DurationMs,
		failed,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting request record: %w", err)
	}

	s.logger.Debug("recorded backend request",
		"id", rec.ID,
		"kind", rec.Kind,
		"backend", rec.Backend,
		"duration_ms", rec.DurationMs,
		"failed", rec.Failed,
	)
	return nil
}

// GetStats returns aggregated request statistics with optional filters.
func (s *SQLiteStore) GetStats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) as request_count,
			COALESCE(SUM(failed), 0) as failure_count,
			COALESCE(SUM(duration_ms), 0) as total_duration
		FROM backend_requests
		WHERE 1=1
	`
	args := []any{}

	if filter.Kind != nil {
		query += " AND kind = ?"
		args = append(args, string(*filter.Kind))
	}
	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}
	if filter.Until != nil {
		query += " AND created_at < ?"
		args = append(args, filter.Until.UTC().Format(time.RFC3339))
	}

	var stats Stats
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.RequestCount,
		&stats.FailureCount,
		&stats.TotalDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("querying request stats: %w", err)
	}

	return &stats, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements the Store interface.
var _ Store = (*SQLiteStore)(nil)
