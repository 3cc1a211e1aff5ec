package kitties

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/R3E-Network/kitty_ledger/internal/chain"
	"github.com/R3E-Network/kitty_ledger/internal/randomness"
	"github.com/R3E-Network/kitty_ledger/internal/state"
	"github.com/R3E-Network/kitty_ledger/internal/state/memory"
	"github.com/R3E-Network/kitty_ledger/pkg/logger"
)

// scriptedSource hashes the subject for entropy. Queued genders and a fixed
// breeding mask override the hash for their streams.
type scriptedSource struct {
	mu      sync.Mutex
	genders []Gender
	mask    *DNA
	err     error
	onDraw  func()
	heights []uint64
}

func (s *scriptedSource) Random(at chain.Block, subject []byte) (randomness.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return randomness.Output{}, s.err
	}
	s.heights = append(s.heights, at.Height)
	if s.onDraw != nil {
		s.onDraw()
	}
	out := randomness.Output{Seed: blake2b.Sum256(subject), Height: at.Height}
	if bytes.HasPrefix(subject, subjectGender) && len(s.genders) > 0 {
		out.Seed[0] = byte(s.genders[0])
		s.genders = s.genders[1:]
	}
	if bytes.HasPrefix(subject, subjectBreed) && s.mask != nil {
		copy(out.Seed[:len(s.mask)], s.mask[:])
	}
	return out, nil
}

func (s *scriptedSource) queue(genders ...Gender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genders = append(s.genders, genders...)
}

type published struct {
	kind    string
	height  uint64
	payload any
}

type recordingSink struct {
	mu     sync.Mutex
	events []published
	// gate, when set before the module is used concurrently, runs ahead of
	// each publish.
	gate func(kind string)
}

func (r *recordingSink) Publish(kind string, height uint64, payload any) {
	if r.gate != nil {
		r.gate(kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{kind: kind, height: height, payload: payload})
}

func (r *recordingSink) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.kind)
	}
	return out
}

type recordingObserver struct {
	mu      sync.Mutex
	results map[string][]string
	count   uint64
}

func (r *recordingObserver) ObserveOperation(op, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string][]string{}
	}
	r.results[op] = append(r.results[op], result)
}

func (r *recordingObserver) SetKittyCount(n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count = n
}

type harness struct {
	module  *Module
	backend *memory.Store
	clock   *chain.BlockClock
	rand    *scriptedSource
	sink    *recordingSink
	obs     *recordingObserver
	max     uint32
}

func newHarness(t *testing.T, maxOwned uint32) *harness {
	t.Helper()
	return newHarnessWithDeposit(t, maxOwned, 1)
}

func newHarnessWithDeposit(t *testing.T, maxOwned uint32, existentialDeposit Balance) *harness {
	t.Helper()
	h := &harness{
		backend: memory.New(),
		clock:   chain.NewBlockClock(1),
		rand:    &scriptedSource{},
		sink:    &recordingSink{},
		obs:     &recordingObserver{},
		max:     maxOwned,
	}
	m, err := NewModule(Options{
		Config:     Config{MaxOwned: maxOwned, ExistentialDeposit: existentialDeposit},
		Store:      state.NewStore(h.backend),
		Randomness: h.rand,
		Clock:      h.clock,
		Events:     h.sink,
		Metrics:    h.obs,
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	h.module = m
	return h
}

func (h *harness) create(t *testing.T, owner AccountID, gender Gender) KittyID {
	t.Helper()
	h.rand.queue(gender)
	receipt, err := h.module.CreateKitty(context.Background(), owner)
	require.NoError(t, err)
	return receipt.ID
}

func (h *harness) deposit(t *testing.T, account AccountID, amount Balance) {
	t.Helper()
	require.NoError(t, h.module.Deposit(context.Background(), account, amount))
}

func (h *harness) balance(t *testing.T, account AccountID) Balance {
	t.Helper()
	b, err := h.module.Balance(context.Background(), account)
	require.NoError(t, err)
	return b
}

func (h *harness) kitty(t *testing.T, id KittyID) Kitty {
	t.Helper()
	k, err := h.module.Kitty(context.Background(), id)
	require.NoError(t, err)
	return k
}

func (h *harness) owned(t *testing.T, account AccountID) []KittyID {
	t.Helper()
	ids, err := h.module.KittiesOwned(context.Background(), account)
	require.NoError(t, err)
	return ids
}

func (h *harness) count(t *testing.T) uint64 {
	t.Helper()
	n, err := h.module.Count(context.Background())
	require.NoError(t, err)
	return n
}

// checkInvariants verifies, from committed bytes alone, that ownership is a
// bijection, the count matches, and no account exceeds the cap.
func (h *harness) checkInvariants(t *testing.T) {
	t.Helper()
	snap := h.backend.Snapshot()

	owners := map[KittyID]AccountID{}
	indexed := 0
	for key, raw := range snap {
		if !strings.HasPrefix(key, "kitties/owned/") {
			continue
		}
		account := AccountID(strings.TrimPrefix(key, "kitties/owned/"))
		var ids []KittyID
		require.NoError(t, state.Decode(raw, &ids))
		require.NotEmpty(t, ids, "empty owner entries are deleted")
		require.LessOrEqual(t, len(ids), int(h.max), "account %s over cap", account)
		for _, id := range ids {
			_, dup := owners[id]
			require.False(t, dup, "kitty %s indexed twice", id)
			owners[id] = account
		}
		indexed += len(ids)
	}

	assets := 0
	for key, raw := range snap {
		if !strings.HasPrefix(key, "kitties/assets/") {
			continue
		}
		var k Kitty
		require.NoError(t, state.Decode(raw, &k))
		owner, ok := owners[k.ID]
		require.True(t, ok, "kitty %s has no index entry", k.ID)
		require.Equal(t, owner, k.Owner)
		assets++
	}
	require.Equal(t, indexed, assets)

	var count uint64
	if raw, ok := snap["kitties/count"]; ok {
		require.NoError(t, state.Decode(raw, &count))
	}
	require.Equal(t, uint64(assets), count)
}
