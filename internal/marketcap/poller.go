// internal/marketcap/poller.go
package marketcap

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yashastest/wybe-engine/internal/events"
	"github.com/yashastest/wybe-engine/internal/reward"
	"github.com/yashastest/wybe-engine/internal/storage"
	"github.com/yashastest/wybe-engine/internal/types"
)

// Feed supplies market-cap observations for a token. The curve-derived feed
// covers pre-graduation tokens; a DEX-backed feed would satisfy the same
// interface after graduation.
type Feed interface {
	Sample(ctx context.Context, symbol string) (types.MarketCapSample, error)
}

// SymbolSource lists the tokens the poller should observe.
type SymbolSource interface {
	Symbols() []string
}

// Config controls the polling cadence.
type Config struct {
	PollInterval time.Duration // default 30s
	MaxRetries   uint          // per-sample fetch retries, default 3
	Concurrency  int           // parallel token evaluations, default 4
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// Poller periodically samples every tracked token's market cap and drives
// the reward eligibility evaluation with the result.
type Poller struct {
	cfg     Config
	feed    Feed
	symbols SymbolSource
	rewards *reward.StateMachine
	store   storage.Storage
	bus     *events.Bus
	logger  *zap.Logger
}

func NewPoller(cfg Config, feed Feed, symbols SymbolSource, rewards *reward.StateMachine, store storage.Storage, bus *events.Bus, logger *zap.Logger) *Poller {
	cfg.applyDefaults()
	return &Poller{
		cfg:     cfg,
		feed:    feed,
		symbols: symbols,
		rewards: rewards,
		store:   store,
		bus:     bus,
		logger:  logger.Named("marketcap-poller"),
	}
}

// Run polls until the context is cancelled. An evaluation pass runs
// immediately on start, then on every tick.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Market cap polling started",
		zap.Duration("interval", p.cfg.PollInterval))

	if err := p.PollOnce(ctx); err != nil {
		p.logger.Warn("Initial evaluation pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Market cap polling stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				p.logger.Warn("Evaluation pass failed", zap.Error(err))
			}
		}
	}
}

// PollOnce samples and evaluates every tracked token in parallel. The first
// per-token error aborts the pass; tokens already evaluated keep their result.
func (p *Poller) PollOnce(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for _, symbol := range p.symbols.Symbols() {
		g.Go(func() error {
			return p.evaluateToken(gCtx, symbol)
		})
	}
	return g.Wait()
}

func (p *Poller) evaluateToken(ctx context.Context, symbol string) error {
	sample, err := p.sampleWithRetry(ctx, symbol)
	if err != nil {
		return fmt.Errorf("sampling market cap for %s: %w", symbol, err)
	}

	transition, err := p.rewards.Evaluate(sample)
	if err != nil {
		return fmt.Errorf("evaluating reward state for %s: %w", symbol, err)
	}

	state, err := p.rewards.RewardStatus(symbol)
	if err != nil {
		return err
	}
	if err := p.store.SaveRewardState(ctx, &state); err != nil {
		return fmt.Errorf("persisting reward state for %s: %w", symbol, err)
	}

	if transition != nil {
		p.logger.Info("Reward tier transition",
			zap.String("token", symbol),
			zap.String("from", string(transition.From)),
			zap.String("to", string(transition.To)),
			zap.String("reward_type", string(transition.RewardType)))
		if p.bus != nil {
			_ = p.bus.Publish(events.NewRewardTierChangedEvent(
				symbol, transition.From, transition.To, transition.RewardType))
		}
	}
	return nil
}

func (p *Poller) sampleWithRetry(ctx context.Context, symbol string) (types.MarketCapSample, error) {
	operation := func() (types.MarketCapSample, error) {
		return p.feed.Sample(ctx, symbol)
	}

	notify := func(err error, next time.Duration) {
		p.logger.Debug("Retrying market cap sample",
			zap.String("token", symbol),
			zap.Error(err),
			zap.Duration("backoff", next))
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(p.cfg.MaxRetries),
		backoff.WithNotify(notify))
}

// SpotPricer is the engine view the curve feed needs.
type SpotPricer interface {
	MarketCap(symbol string) (decimal.Decimal, error)
}

// CurveFeed derives market cap from the bonding curve's spot price and the
// live circulating supply. No external calls.
type CurveFeed struct {
	pricer SpotPricer
	now    func() time.Time
}

func NewCurveFeed(pricer SpotPricer) *CurveFeed {
	return &CurveFeed{pricer: pricer, now: time.Now}
}

func (f *CurveFeed) Sample(_ context.Context, symbol string) (types.MarketCapSample, error) {
	mc, err := f.pricer.MarketCap(symbol)
	if err != nil {
		return types.MarketCapSample{}, err
	}
	return types.MarketCapSample{
		TokenSymbol: symbol,
		MarketCap:   mc,
		Timestamp:   f.now(),
	}, nil
}
