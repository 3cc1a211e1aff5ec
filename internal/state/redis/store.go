// Package redis implements state.Backend on Redis. Batches are committed with
// MULTI/EXEC so readers never observe half of a commit.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

const defaultPrefix = "kitty_ledger:"

// Store implements state.Backend backed by Redis.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ state.Backend = (*Store)(nil)

// New wraps an existing client. An empty prefix uses the default namespace.
func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Open connects to addr and verifies the connection.
func Open(ctx context.Context, addr, prefix string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, prefix), nil
}

func (s *Store) key(k []byte) string {
	return s.prefix + string(k)
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) Commit(ctx context.Context, batch *state.Batch) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, w := range batch.Writes() {
			if w.Delete {
				pipe.Del(ctx, s.key(w.Key))
				continue
			}
			pipe.Set(ctx, s.key(w.Key), w.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
