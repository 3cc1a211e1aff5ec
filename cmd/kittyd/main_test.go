package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/kitty_ledger/internal/chain"
	"github.com/R3E-Network/kitty_ledger/internal/config"
	"github.com/R3E-Network/kitty_ledger/internal/kitties"
	"github.com/R3E-Network/kitty_ledger/internal/randomness"
	"github.com/R3E-Network/kitty_ledger/internal/state"
	"github.com/R3E-Network/kitty_ledger/pkg/logger"
)

func TestOpenBackendMemory(t *testing.T) {
	backend, err := openBackend(context.Background(), config.StorageConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer backend.close()

	assert.NoError(t, backend.ping(context.Background()))
}

func TestOpenBackendUnknownDriver(t *testing.T) {
	_, err := openBackend(context.Background(), config.StorageConfig{Driver: "leveldb"})
	assert.Error(t, err)
}

func TestBuildHeadLocal(t *testing.T) {
	head, run, err := buildHead(context.Background(), config.ChainConfig{
		Mode:          config.ChainLocal,
		BlockInterval: "@every 1s",
	}, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.IsType(t, &chain.BlockClock{}, head)
	assert.Zero(t, head.Height())
}

func TestApplyGenesisOnce(t *testing.T) {
	ctx := context.Background()
	backend, err := openBackend(ctx, config.StorageConfig{Driver: config.DriverMemory})
	require.NoError(t, err)

	clock := chain.NewBlockClock(1)
	beacon, err := randomness.NewBeacon(make([]byte, randomness.SeedSize))
	require.NoError(t, err)

	module, err := kitties.NewModule(kitties.Options{
		Store:      state.NewStore(backend),
		Randomness: beacon,
		Clock:      clock,
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)

	genesis := kitties.Genesis{
		Balances: []kitties.GenesisBalance{{Account: "alice", Amount: 500}},
		Kitties: []kitties.GenesisKitty{
			{Owner: "alice", DNA: "000102030405060708090a0b0c0d0e0f"},
		},
	}

	log := logger.Discard()
	require.NoError(t, applyGenesis(ctx, module, genesis, log))
	require.NoError(t, applyGenesis(ctx, module, genesis, log))

	stats, err := module.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Count)
	assert.Equal(t, kitties.Balance(500), stats.TotalIssuance)

	owned, err := module.KittiesOwned(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestApplyGenesisEmpty(t *testing.T) {
	assert.NoError(t, applyGenesis(context.Background(), nil, kitties.Genesis{}, logger.Discard()))
}
