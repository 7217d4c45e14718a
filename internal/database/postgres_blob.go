package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBlobStore keeps keyed string blobs in the blobs table
type PostgresBlobStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBlobStore creates a blob store on top of an open pool.
// The blobs table is created by the migrations.
func NewPostgresBlobStore(pool *pgxpool.Pool) *PostgresBlobStore {
	return &PostgresBlobStore{pool: pool}
}

// Get returns the blob stored under key; ok is false when there is none
func (s *PostgresBlobStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM blobs WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get blob %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous blob
func (s *PostgresBlobStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blobs (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set blob %q: %w", key, err)
	}
	return nil
}
