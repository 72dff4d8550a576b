package playbook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// Store persists playbook snapshots. Load returns nil when nothing has
// been persisted yet.
type Store interface {
	Load() (*Snapshot, error)
	Save(Snapshot) error
	Close() error
}

// FileStore persists snapshots as a single JSON file, written atomically
// via a temp file and rename.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

// NewFileStore creates a file store at the given path. The file is created
// on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the snapshot from disk.
func (f *FileStore) Load() (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to read snapshot"),
			errors.Fields{"path": f.Path})
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to decode snapshot"),
			errors.Fields{"path": f.Path})
	}
	return &snap, nil
}

// Save writes the snapshot to disk atomically.
func (f *FileStore) Save(snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to create snapshot directory")
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to encode snapshot")
	}

	tmpPath := f.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to write snapshot")
	}
	if err := os.Rename(tmpPath, f.Path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.StorageFailed, "failed to replace snapshot")
	}
	return nil
}

// Close implements Store; a file store holds no resources between calls.
func (f *FileStore) Close() error { return nil }
