package storage

import (
	"context"
	"errors"

	"github.com/globalbank/globalbank-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrCorrupt indicates the persisted document could not be decoded or
// carries an unknown schema version.
var ErrCorrupt = errors.New("stored document is corrupt")

// DocumentStore persists the whole banking document as a unit. There are
// no partial updates: callers load, mutate, and save. Serializing those
// load-modify-save cycles is the caller's job (bank.Service holds the mutex).
type DocumentStore interface {
	Load(ctx context.Context) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
	Close()
}
