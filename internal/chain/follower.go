package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/R3E-Network/kitty_ledger/pkg/logger"
)

// HeadReader is the slice of Client the follower needs.
type HeadReader interface {
	GetBlockCount(ctx context.Context) (uint64, error)
	GetBlockHash(ctx context.Context, index uint64) ([32]byte, error)
}

// Follower tracks the head of an anchor chain. The ledger uses the anchor's
// height as its sequence number and the anchor's block hash as beacon input.
type Follower struct {
	rpc HeadReader
	log *logger.Logger

	mu     sync.RWMutex
	height uint64
	hash   [32]byte
}

var _ Head = (*Follower)(nil)

// NewFollower creates a follower. Call Sync once before serving traffic.
func NewFollower(rpc HeadReader, log *logger.Logger) *Follower {
	if log == nil {
		log = logger.NewDefault("chain")
	}
	return &Follower{rpc: rpc, log: log}
}

func (f *Follower) Height() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.height
}

func (f *Follower) BlockHash() [32]byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.hash
}

func (f *Follower) Block() Block {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Block{Height: f.height, Hash: f.hash}
}

// Sync fetches the current anchor head. A head behind the one already seen is ignored.
func (f *Follower) Sync(ctx context.Context) error {
	count, err := f.rpc.GetBlockCount(ctx)
	if err != nil {
		return fmt.Errorf("get block count: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("anchor chain has no blocks")
	}
	index := count - 1

	f.mu.RLock()
	stale := index < f.height
	f.mu.RUnlock()
	if stale {
		return nil
	}

	hash, err := f.rpc.GetBlockHash(ctx, index)
	if err != nil {
		return fmt.Errorf("get block hash %d: %w", index, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if index < f.height {
		return nil
	}
	f.height = index
	f.hash = hash
	return nil
}

// Run syncs on the cron schedule spec until ctx ends. Sync failures are logged
// and retried on the next tick.
func (f *Follower) Run(ctx context.Context, spec string) error {
	return runSchedule(ctx, spec, func() {
		if err := f.Sync(ctx); err != nil {
			f.log.WithError(err).Warn("anchor sync failed")
			return
		}
		f.log.WithField("height", f.Height()).Debug("anchor synced")
	})
}
