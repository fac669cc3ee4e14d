// Package store provides the PostgreSQL persistence layer for the import
// engine: one small repository per entity plus a savepoint-aware unit of
// work. Every method takes a context and returns explicit errors; no method
// retries or swallows failures, that policy lives in the resolvers.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx, so the same Store type works
// inside and outside a transaction. pgx.Tx.Begin opens a nested savepoint,
// which keeps per-row write isolation cheap.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Store bundles all entity repositories over a shared connection source.
type Store struct {
	db DBTX
}

// New creates a Store over a pool or transaction.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// InTx runs fn inside a transaction, committing on nil and rolling back on
// error. The *Store passed to fn is bound to the transaction.
func (s *Store) InTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(New(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
