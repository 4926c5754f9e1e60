package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/logging"
)

// SQLiteStore keeps job records in a single SQLite table, one row per job.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path.
// Parent directories are created if needed and the schema is applied on open.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a database path")
	}
	logger = logging.WithComponent(logger, "store.sqlite")

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS requests (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			record TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_requests_updated
			ON requests(updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Read loads the job record for id.
func (s *SQLiteStore) Read(ctx context.Context, id string) (*job.Job, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM requests WHERE id = ?`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying job %s: %w", id, err)
	}
	return decode(id, []byte(record))
}

// Write replaces the job record.
// Uses INSERT OR REPLACE to handle both insert and update cases.
func (s *SQLiteStore) Write(ctx context.Context, j *job.Job) error {
	if err := checkID(j.ID); err != nil {
		return err
	}
	data, err := encode(j)
	if err != nil {
		return err
	}

	updated := j.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO requests (id, state, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		j.ID,
		string(j.State),
		string(data),
		j.CreatedAt.UTC().Format(time.RFC3339Nano),
		updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving job %s: %w", j.ID, err)
	}

	s.logger.Debug("job written", logging.JobID(j.ID), logging.State(string(j.State)))
	return nil
}

// List returns stored job ids, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM requests ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning job id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
