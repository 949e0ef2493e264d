package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Snapshot is the full serialized state: every record in history order plus
// the UI-relevant settings. It is overwritten wholesale on every mutation.
type Snapshot struct {
	Records []domain.ComplaintRecord `json:"records"`
	Locale  string                   `json:"locale"`
	Session *domain.Session          `json:"session,omitempty"`
}

// Persister loads and saves state snapshots.
type Persister interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// FilePersister keeps the snapshot in a single JSON file, written atomically
// via a temp file rename.
type FilePersister struct {
	path string
}

// NewFilePersister creates the snapshot directory if needed.
func NewFilePersister(path string) (*FilePersister, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	return &FilePersister{path: path}, nil
}

// Load reads the snapshot file. A missing file is an empty snapshot, not an
// error; unreadable content is reported so the caller can fail soft.
func (p *FilePersister) Load() (Snapshot, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(content, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}

// Save serializes and atomically replaces the snapshot file.
func (p *FilePersister) Save(snapshot Snapshot) error {
	content, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Path returns the snapshot file location.
func (p *FilePersister) Path() string {
	return p.path
}
