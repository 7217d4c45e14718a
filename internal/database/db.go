package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSchemaMissing is returned when the blobs table has not been migrated yet
var ErrSchemaMissing = errors.New("blobs table missing, run `server migrate` first")

// DB is the Postgres pool backing the collection blob store
type DB struct {
	*pgxpool.Pool
	logger *log.Logger
}

// Config holds database configuration. Zero values take the defaults below.
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	// SkipSchemaCheck is set by the migrate command, which creates the schema
	SkipSchemaCheck bool
}

// withDefaults sizes the pool for a single user's collection: one blob read
// at startup and one write per added movie.
func (c Config) withDefaults() Config {
	if c.MaxConns == 0 {
		c.MaxConns = 4
	}
	if c.MinConns == 0 {
		c.MinConns = 1
	}
	if c.MinConns > c.MaxConns {
		c.MinConns = c.MaxConns
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	return c
}

// New opens the pool, pings it and, unless told otherwise, checks that the
// migrations have been applied
func New(ctx context.Context, cfg Config, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cfg = cfg.withDefaults()

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	db := &DB{Pool: pool, logger: logger}

	checkCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := pool.Ping(checkCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	if !cfg.SkipSchemaCheck {
		if err := db.checkSchema(checkCtx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Printf("Connected to Postgres (max %d connections)", cfg.MaxConns)
	return db, nil
}

func (db *DB) checkSchema(ctx context.Context) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT to_regclass('blobs') IS NOT NULL`).Scan(&exists); err != nil {
		return fmt.Errorf("unable to check schema: %w", err)
	}
	if !exists {
		return ErrSchemaMissing
	}
	return nil
}

// BlobStore returns the collection store backed by this pool
func (db *DB) BlobStore() *PostgresBlobStore {
	return NewPostgresBlobStore(db.Pool)
}

// Close closes the pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Println("Postgres connection pool closed")
	}
}

// Health pings the database
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Ping(ctx)
}
