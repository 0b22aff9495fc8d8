package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/globalbank/globalbank-be/internal/models"
	"github.com/globalbank/globalbank-be/internal/storage"
)

// Ensure Store satisfies the storage.DocumentStore interface at compile time.
var _ storage.DocumentStore = (*Store)(nil)

// Saves are retried on transient I/O failure; this is the only
// automatically retried operation in the system.
const (
	saveAttempts = 3
	saveBackoff  = 50 * time.Millisecond
)

// Store keeps the whole document in a single JSON file on disk. Writes go
// through a temp file and rename so a crash mid-save never leaves a
// half-written document behind.
type Store struct {
	path string
}

// New creates a file store at path, seeding a fresh document when the file
// does not exist yet.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.Save(context.Background(), models.NewDocument()); err != nil {
			return nil, fmt.Errorf("seed document: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}
	return s, nil
}

// Load reads and decodes the document. A malformed file or an unknown
// schema version yields storage.ErrCorrupt, never a raw decode error.
func (s *Store) Load(_ context.Context) (*models.Document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
	}
	if doc.SchemaVersion != models.SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", storage.ErrCorrupt, doc.SchemaVersion)
	}
	return &doc, nil
}

// Save writes the document atomically, retrying transient failures.
func (s *Store) Save(_ context.Context, doc *models.Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(saveBackoff)
		}
		if lastErr = s.writeAtomic(raw); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("write data file: %w", lastErr)
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() {}

func (s *Store) writeAtomic(raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
