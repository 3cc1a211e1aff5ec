// Command kittyd runs the kitty ledger behind its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/R3E-Network/kitty_ledger/internal/chain"
	"github.com/R3E-Network/kitty_ledger/internal/config"
	"github.com/R3E-Network/kitty_ledger/internal/events"
	"github.com/R3E-Network/kitty_ledger/internal/httpapi"
	"github.com/R3E-Network/kitty_ledger/internal/kitties"
	"github.com/R3E-Network/kitty_ledger/internal/metrics"
	"github.com/R3E-Network/kitty_ledger/internal/randomness"
	"github.com/R3E-Network/kitty_ledger/internal/state"
	"github.com/R3E-Network/kitty_ledger/internal/state/memory"
	"github.com/R3E-Network/kitty_ledger/internal/state/postgres"
	"github.com/R3E-Network/kitty_ledger/internal/state/redis"
	"github.com/R3E-Network/kitty_ledger/pkg/logger"
)

const (
	feedSize        = 1024
	shutdownTimeout = 30 * time.Second
	limiterSweep    = 10 * time.Minute
	limiterMaxKeys  = 10000
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("KITTY_CONFIG"), "path to YAML config")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	root := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	appLog := root.Component("kittyd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		appLog.WithError(err).Fatal("failed to open storage")
	}
	defer backend.close()
	appLog.WithField("driver", cfg.Storage.Driver).Info("storage ready")

	head, runHead, err := buildHead(ctx, cfg.Chain, root.Component("chain"))
	if err != nil {
		appLog.WithError(err).Fatal("failed to start chain head")
	}

	seed, err := cfg.SeedBytes()
	if err != nil {
		appLog.WithError(err).Fatal("invalid randomness seed")
	}
	if seed == nil {
		if seed, err = randomness.GenerateSeed(); err != nil {
			appLog.WithError(err).Fatal("failed to generate randomness seed")
		}
		appLog.Warn("no randomness seed configured; using a fresh one for this process")
	}
	beacon, err := randomness.NewBeacon(seed)
	if err != nil {
		appLog.WithError(err).Fatal("failed to build randomness beacon")
	}

	feed := events.NewFeed(feedSize)
	module, err := kitties.NewModule(kitties.Options{
		Config:     cfg.KittiesConfig(),
		Store:      state.NewStore(backend),
		Randomness: beacon,
		Clock:      head,
		Events:     feed,
		Metrics:    metrics.Ledger{},
		Logger:     root.Component("kitties"),
	})
	if err != nil {
		appLog.WithError(err).Fatal("failed to build ledger module")
	}

	if err := applyGenesis(ctx, module, cfg.Genesis, appLog); err != nil {
		appLog.WithError(err).Fatal("failed to apply genesis")
	}

	go func() {
		if err := runHead(ctx); err != nil {
			appLog.WithError(err).Error("chain head stopped")
		}
	}()
	go trackHeight(ctx, head)

	api, err := httpapi.New(httpapi.Options{
		Module:      module,
		Feed:        feed,
		Logger:      root.Component("httpapi"),
		RateLimit:   cfg.HTTP.RateLimit,
		Burst:       cfg.HTTP.Burst,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Health:      backend.ping,
	})
	if err != nil {
		appLog.WithError(err).Fatal("failed to build http api")
	}
	go sweepLimiter(ctx, api.Limiter())

	server := api.NewHTTPServer(cfg.HTTP.Addr)
	go func() {
		appLog.WithField("addr", cfg.HTTP.Addr).Info("kittyd listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	appLog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("shutdown error")
	}
	appLog.Info("kittyd stopped")
}

// =============================================================================
// Wiring
// =============================================================================

type storage struct {
	state.Backend
	ping  func(ctx context.Context) error
	close func()
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (*storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Apply(ctx, store.DB().DB); err != nil {
			_ = store.Close()
			return nil, err
		}
		return &storage{Backend: store, ping: store.Ping, close: func() { _ = store.Close() }}, nil
	case config.DriverRedis:
		store, err := redis.Open(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return &storage{Backend: store, ping: store.Ping, close: func() { _ = store.Close() }}, nil
	case config.DriverMemory:
		return &storage{
			Backend: memory.New(),
			ping:    func(context.Context) error { return nil },
			close:   func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// buildHead returns the ledger's chain head and the loop that keeps it moving.
func buildHead(ctx context.Context, cfg config.ChainConfig, log *logger.Logger) (chain.Head, func(context.Context) error, error) {
	if cfg.Mode != config.ChainNeo {
		clock := chain.NewBlockClock(0)
		return clock, func(ctx context.Context) error {
			return clock.Run(ctx, cfg.BlockInterval, log)
		}, nil
	}

	client, err := chain.NewClient(chain.Config{RPCURL: cfg.RPCURL})
	if err != nil {
		return nil, nil, err
	}
	follower := chain.NewFollower(client, log)
	if err := follower.Sync(ctx); err != nil {
		return nil, nil, fmt.Errorf("initial anchor sync: %w", err)
	}
	log.WithField("height", follower.Height()).Info("following anchor chain")
	return follower, func(ctx context.Context) error {
		return follower.Run(ctx, cfg.BlockInterval)
	}, nil
}

// applyGenesis seeds a fresh store. A store with any kitty or issuance is left alone.
func applyGenesis(ctx context.Context, module *kitties.Module, g kitties.Genesis, log *logger.Logger) error {
	if g.Empty() {
		return nil
	}
	stats, err := module.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Count > 0 || stats.TotalIssuance > 0 {
		log.Info("store already initialised; skipping genesis")
		return nil
	}
	if err := module.BuildGenesis(ctx, g); err != nil {
		return err
	}
	log.WithField("kitties", len(g.Kitties)).WithField("balances", len(g.Balances)).Info("genesis applied")
	return nil
}

func trackHeight(ctx context.Context, head chain.Clock) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		metrics.SetBlockHeight(head.Height())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepLimiter(ctx context.Context, limiter *httpapi.RateLimiter) {
	ticker := time.NewTicker(limiterSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup(limiterMaxKeys)
		}
	}
}
