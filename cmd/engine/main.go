// ====================================
// File: cmd/engine/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/chain"
	"github.com/yashastest/wybe-engine/internal/config"
	"github.com/yashastest/wybe-engine/internal/engine"
	"github.com/yashastest/wybe-engine/internal/events"
	"github.com/yashastest/wybe-engine/internal/ledger"
	"github.com/yashastest/wybe-engine/internal/logger"
	"github.com/yashastest/wybe-engine/internal/marketcap"
	"github.com/yashastest/wybe-engine/internal/registry"
	"github.com/yashastest/wybe-engine/internal/reward"
	"github.com/yashastest/wybe-engine/internal/scenario"
	"github.com/yashastest/wybe-engine/internal/storage"
	"github.com/yashastest/wybe-engine/internal/storage/memory"
	"github.com/yashastest/wybe-engine/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to engine configuration")
	scenarioPath := flag.String("scenario", "", "optional scenario file to execute")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting settlement engine")

	store, err := openStorage(cfg, log.Logger)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	if err := store.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	threshold := decimal.NewFromFloat(cfg.MarketCapThreshold)
	reg := registry.New(cfg.MaxCombinedFeeBps, log.Logger)
	rewards := reward.NewStateMachine(reward.Config{
		MarketCapThreshold: threshold,
		SustainWindow:      time.Duration(cfg.SustainWindowHours) * time.Hour,
		MilestoneDeadline:  time.Duration(cfg.MilestoneDeadlineHours) * time.Hour,
	}, log.Logger)
	led := ledger.New(rewards, ledger.Config{
		PremiumClaimInterval: time.Duration(cfg.PremiumClaimIntervalDays) * 24 * time.Hour,
		MarketCapThreshold:   threshold,
	}, log.Logger)
	bus := events.NewBus(log.Logger, cfg.EventBufferSize)
	submitter := chain.NewLocalSubmitter(log.Logger)

	eng := engine.New(engine.Config{TreasuryWallet: cfg.TreasuryWallet},
		reg, led, rewards, store, submitter, bus, log.Logger)

	if err := restoreState(ctx, store, reg, led, rewards); err != nil {
		log.Fatal("Failed to restore persisted state", zap.Error(err))
	}

	poller := marketcap.NewPoller(marketcap.Config{
		PollInterval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		MaxRetries:   uint(cfg.PollRetries),
		Concurrency:  cfg.PollWorkers,
	}, marketcap.NewCurveFeed(eng), reg, rewards, store, bus, log.Logger)

	pollerDone := make(chan error, 1)
	go func() { pollerDone <- poller.Run(ctx) }()

	if *scenarioPath != "" {
		manager := scenario.NewManager(log.Logger)
		sc, err := manager.Load(*scenarioPath)
		if err != nil {
			log.Fatal("Failed to load scenario", zap.Error(err))
		}
		runner := scenario.NewRunner(eng, log.Logger)
		if err := runner.Run(ctx, sc); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Scenario execution failed", zap.Error(err))
		}
	}

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bus.Shutdown(shutdownCtx); err != nil {
		log.Warn("Event bus did not drain in time", zap.Error(err))
	}
	if err := <-pollerDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("Poller exited with error", zap.Error(err))
	}

	log.Info("Settlement engine stopped")
	os.Exit(0)
}

func openStorage(cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	if cfg.PostgresURL != "" {
		return postgres.NewStorage(cfg.PostgresURL, log)
	}
	log.Info("No postgres_url configured, using in-memory storage")
	return memory.NewStorage(), nil
}

// restoreState reloads tokens, holders, fee balances and reward states from
// persistence so a restart resumes where the previous run stopped.
func restoreState(ctx context.Context, store storage.Storage, reg *registry.Registry, led *ledger.Ledger, rewards *reward.StateMachine) error {
	tokens, err := store.ListTokens(ctx)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		holders, err := store.ListHolders(ctx, token.Symbol)
		if err != nil {
			return err
		}
		reg.Restore(token, holders)

		if entry, err := store.LoadFeeLedgerEntry(ctx, token.Symbol); err == nil && entry != nil {
			led.Restore(*entry)
		}
		state, err := store.LoadRewardState(ctx, token.Symbol)
		if err == nil && state != nil {
			rewards.Restore(*state)
		} else {
			rewards.Track(token.Symbol, token.CreatedAt)
		}
	}
	return nil
}
