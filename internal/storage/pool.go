// Package storage provides the PostgreSQL storage layer for Fieldbook.
//
// It manages connection pooling via pgxpool and query methods for all
// tables. Sensitive columns never leave this package in encrypted form:
// every read path decrypts through the injected fieldcrypt.Codec and every
// write path encrypts through it, so callers only ever see plaintext values.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldbook-crm/fieldbook/internal/fieldcrypt"
)

// DB wraps a pgxpool.Pool together with the field codec.
type DB struct {
	pool   *pgxpool.Pool
	codec  *fieldcrypt.Codec
	logger *slog.Logger
}

// New creates a new DB with a connection pool and verifies connectivity.
func New(ctx context.Context, dsn string, codec *fieldcrypt.Codec, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return &DB{pool: pool, codec: codec, logger: logger}, nil
}

// Pool returns the underlying connection pool for use by other packages.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
