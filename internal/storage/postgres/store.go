package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/globalbank/globalbank-be/internal/models"
	"github.com/globalbank/globalbank-be/internal/storage"
)

// Ensure Store satisfies the storage.DocumentStore interface at compile time.
var _ storage.DocumentStore = (*Store)(nil)

// Store keeps the banking document as a single JSONB row, preserving the
// whole-document read-modify-write contract over Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New connects, runs migrations, and seeds the document row if absent.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	const createTable = `
		CREATE TABLE IF NOT EXISTS bank_document (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	seed, err := json.Marshal(models.NewDocument())
	if err != nil {
		return fmt.Errorf("encode seed document: %w", err)
	}
	const seedRow = `INSERT INTO bank_document (id, doc) VALUES (1, $1) ON CONFLICT (id) DO NOTHING;`
	if _, err := s.pool.Exec(ctx, seedRow, seed); err != nil {
		return fmt.Errorf("seed document: %w", err)
	}
	return nil
}

// Load fetches and decodes the single document row.
func (s *Store) Load(ctx context.Context) (*models.Document, error) {
	const query = `SELECT doc FROM bank_document WHERE id = 1;`
	var raw []byte
	if err := s.pool.QueryRow(ctx, query).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: document row missing", storage.ErrCorrupt)
		}
		return nil, fmt.Errorf("load document: %w", err)
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

// Save replaces the document row with the provided state.
func (s *Store) Save(ctx context.Context, doc *models.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	const query = `
		INSERT INTO bank_document (id, doc) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW();`
	if _, err := s.pool.Exec(ctx, query, raw); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
