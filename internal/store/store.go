package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/teemow/meetgate/internal/job"
)

// Store is the durable record store for jobs.
//
// Writes replace the whole record. Stores do no locking between writers of the
// same job; callers serialize per job when they need read-modify-write safety.
type Store interface {
	// Read returns the job or an error wrapping job.ErrNotFound.
	Read(ctx context.Context, id string) (*job.Job, error)

	// Write persists the full job record.
	Write(ctx context.Context, j *job.Job) error

	// List returns the ids of all stored jobs, most recently updated first.
	List(ctx context.Context) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}

// Store backends accepted by Open.
const (
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// Open constructs the store backend named by kind. path is a directory for the
// file store and a database file for the sqlite store; the memory store
// ignores it. A nil logger falls back to slog.Default.
func Open(kind, path string, logger *slog.Logger) (Store, error) {
	switch kind {
	case TypeFile, "":
		return NewFileStore(path, logger)
	case TypeSQLite:
		return NewSQLiteStore(path, logger)
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", kind)
	}
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// checkID rejects ids that cannot safely name a record.
func checkID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("%w: malformed job id %q", job.ErrInvalidInput, id)
	}
	return nil
}

func encode(j *job.Job) ([]byte, error) {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode job %s: %w", j.ID, err)
	}
	return data, nil
}

func decode(id string, data []byte) (*job.Job, error) {
	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &j, nil
}
