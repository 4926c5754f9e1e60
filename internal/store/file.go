package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/logging"
)

// FileStore keeps one JSON file per job under <dir>/requests/.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates the requests directory if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store requires a directory")
	}
	requests := filepath.Join(dir, "requests")
	if err := os.MkdirAll(requests, 0700); err != nil {
		return nil, fmt.Errorf("failed to create requests directory: %w", err)
	}
	return &FileStore{
		dir:    requests,
		logger: logging.WithComponent(logger, "store.file"),
	}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Read loads the job record for id.
func (s *FileStore) Read(ctx context.Context, id string) (*job.Job, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	return decode(id, data)
}

// Write replaces the job record. The file is written to a temporary name and
// renamed so a crash never leaves a truncated record.
func (s *FileStore) Write(ctx context.Context, j *job.Job) error {
	if err := checkID(j.ID); err != nil {
		return err
	}
	data, err := encode(j)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, j.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write job %s: %w", j.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync job %s: %w", j.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close job %s: %w", j.ID, err)
	}
	if err := os.Rename(tmpName, s.path(j.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit job %s: %w", j.ID, err)
	}

	s.logger.Debug("job written", logging.JobID(j.ID), logging.State(string(j.State)))
	return nil
}

// List returns stored job ids, most recently modified first.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	type item struct {
		id  string
		mod int64
	}
	var items []item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{id: strings.TrimSuffix(name, ".json"), mod: info.ModTime().UnixNano()})
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].mod > items[b].mod })

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.id)
	}
	return ids, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
