package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mtlprog/mintbridge/internal/domain"
)

// FileStore keeps the snapshot as a JSON array in a local file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Snapshot{}, ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("reading %s: %w", s.path, err)
	}

	snap, err := domain.ParseSnapshot(data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return snap, nil
}

// Save writes the snapshot to a temporary file in the same directory and
// renames it over the previous one, so readers never see a partial file.
func (s *FileStore) Save(_ context.Context, snap domain.Snapshot) error {
	data, err := snap.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
