package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Scratch is the temporary storage an item passes through between upload and extraction.
type Scratch struct {
	dir string
}

// NewScratch uses dir, creating it if needed. An empty dir means the OS temp dir.
func NewScratch(dir string) (*Scratch, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

func (s *Scratch) Dir() string { return s.dir }

// Save writes data under a fresh uuid name keeping ext.
func (s *Scratch) Save(data []byte, ext string) (string, error) {
	path := filepath.Join(s.dir, uuid.NewString()+"."+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	return path, nil
}

func (s *Scratch) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Remove deletes path; a missing file is not an error.
func (s *Scratch) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
