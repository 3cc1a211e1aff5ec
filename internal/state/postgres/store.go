// Package postgres implements state.Backend on a single PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

const (
	selectValue = `SELECT value FROM ledger_state WHERE key = $1`
	upsertValue = `INSERT INTO ledger_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	deleteValue  = `DELETE FROM ledger_state WHERE key = $1`
	recordCommit = `INSERT INTO ledger_commits (writes) VALUES ($1)`
)

// Store implements state.Backend backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ state.Backend = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn with the lib/pq driver.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db), nil
}

// DB exposes the underlying handle for migrations and shutdown.
func (s *Store) DB() *sqlx.DB { return s.db }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, selectValue, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", key, err)
	}
	return value, nil
}

// Commit applies the batch in one SQL transaction.
func (s *Store) Commit(ctx context.Context, batch *state.Batch) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, w := range batch.Writes() {
		if w.Delete {
			if _, err = tx.ExecContext(ctx, deleteValue, w.Key); err != nil {
				return fmt.Errorf("delete %q: %w", w.Key, err)
			}
			continue
		}
		if _, err = tx.ExecContext(ctx, upsertValue, w.Key, w.Value); err != nil {
			return fmt.Errorf("upsert %q: %w", w.Key, err)
		}
	}

	if _, err = tx.ExecContext(ctx, recordCommit, batch.Len()); err != nil {
		return fmt.Errorf("record commit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
