package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ricemill-erp/ricemill-erp/internal/platform/db"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ricemill_collections (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS ricemill_collections_updated_at ON ricemill_collections (updated_at)`,
}

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

// PostgresStore keeps collections as JSONB rows.
type PostgresStore struct {
	q Querier
}

// NewPostgresStore creates the backing table when missing.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	err := db.WithTx(ctx, pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		for _, stmt := range postgresSchema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return nil, fmt.Errorf("store/postgres: migrate: %s (%s)", pgErr.Message, pgErr.Code)
		}
		return nil, fmt.Errorf("store/postgres: migrate: %w", err)
	}
	return &PostgresStore{q: pool}, nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var payload []byte
	err := s.q.QueryRow(ctx, `SELECT payload FROM ricemill_collections WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return []byte("[]"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store/postgres: load %s: %w", key, err)
	}
	return payload, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := checkArray(data); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO ricemill_collections (key, payload, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`, key, string(data))
	if err != nil {
		return fmt.Errorf("store/postgres: save %s: %w", key, err)
	}
	return nil
}
