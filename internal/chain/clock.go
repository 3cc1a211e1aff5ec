package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/blake2b"

	"github.com/R3E-Network/kitty_ledger/pkg/logger"
)

// Clock is the sequence provider: the current ledger height, monotonic.
type Clock interface {
	Height() uint64
}

// Block is one height and its hash, read together.
type Block struct {
	Height uint64
	Hash   [32]byte
}

// Head is a Clock that also knows the hash of its current block.
type Head interface {
	Clock
	BlockHash() [32]byte
	// Block returns the current height and hash as one consistent pair.
	Block() Block
}

// BlockClock is a local height counter for devnets and tests.
type BlockClock struct {
	mu     sync.RWMutex
	height uint64
}

var _ Head = (*BlockClock)(nil)

// NewBlockClock starts at height.
func NewBlockClock(height uint64) *BlockClock {
	return &BlockClock{height: height}
}

func (c *BlockClock) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// BlockHash derives a stand-in hash from the height. Local clocks have no real
// block contents, so this only keeps the Head contract total.
func (c *BlockClock) BlockHash() [32]byte {
	return localHash(c.Height())
}

func (c *BlockClock) Block() Block {
	h := c.Height()
	return Block{Height: h, Hash: localHash(h)}
}

func localHash(height uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return blake2b.Sum256(buf[:])
}

// Advance moves the clock forward one block and returns the new height.
func (c *BlockClock) Advance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height++
	return c.height
}

// Set moves the clock to h. Heights never go backwards.
func (c *BlockClock) Set(h uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h < c.height {
		return fmt.Errorf("height %d is behind current %d", h, c.height)
	}
	c.height = h
	return nil
}

// Run advances the clock on the cron schedule spec (e.g. "@every 6s") until ctx ends.
func (c *BlockClock) Run(ctx context.Context, spec string, log *logger.Logger) error {
	if log == nil {
		log = logger.NewDefault("chain")
	}
	return runSchedule(ctx, spec, func() {
		h := c.Advance()
		log.WithField("height", h).Debug("block advanced")
	})
}

func runSchedule(ctx context.Context, spec string, job func()) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}
