// internal/ledger/ledger.go
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/types"
)

// RewardInfo is the reward-machine view the ledger needs to gate creator
// claims. Implemented by reward.StateMachine; the ledger never mutates
// reward state.
type RewardInfo interface {
	RewardStatus(tokenSymbol string) (types.RewardState, error)
}

// Config controls claim cadence. Zero values fall back to the platform
// defaults (7-day premium window, $50k market-cap threshold).
type Config struct {
	PremiumClaimInterval time.Duration
	MarketCapThreshold   decimal.Decimal
}

const defaultPremiumClaimInterval = 7 * 24 * time.Hour

var defaultMarketCapThreshold = decimal.NewFromInt(50000)

func (c *Config) applyDefaults() {
	if c.PremiumClaimInterval <= 0 {
		c.PremiumClaimInterval = defaultPremiumClaimInterval
	}
	if !c.MarketCapThreshold.IsPositive() {
		c.MarketCapThreshold = defaultMarketCapThreshold
	}
}

// Ledger tracks accumulated, claimable and claimed fee balances per token.
// Credits come only from trade settlement; debits only from Claim.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*types.FeeLedgerEntry
	rewards RewardInfo
	cfg     Config
	logger  *zap.Logger
}

func New(rewards RewardInfo, cfg Config, logger *zap.Logger) *Ledger {
	cfg.applyDefaults()
	return &Ledger{
		entries: make(map[string]*types.FeeLedgerEntry),
		rewards: rewards,
		cfg:     cfg,
		logger:  logger.Named("fee-ledger"),
	}
}

// Credit adds one settlement's fee split to the token's balances.
func (l *Ledger) Credit(tokenSymbol string, creatorAmount, platformAmount decimal.Decimal) error {
	if creatorAmount.IsNegative() || platformAmount.IsNegative() {
		return fmt.Errorf("%w: fee credit cannot be negative (creator %s, platform %s)",
			types.ErrInvalidAmount, creatorAmount, platformAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[tokenSymbol]
	if entry == nil {
		entry = &types.FeeLedgerEntry{TokenSymbol: tokenSymbol}
		l.entries[tokenSymbol] = entry
	}
	entry.AccumulatedCreatorFees = entry.AccumulatedCreatorFees.Add(creatorAmount)
	entry.AccumulatedPlatformFees = entry.AccumulatedPlatformFees.Add(platformAmount)

	l.logger.Debug("Credited trading fees",
		zap.String("token", tokenSymbol),
		zap.String("creator_fee", creatorAmount.String()),
		zap.String("platform_fee", platformAmount.String()))
	return nil
}

// Entry returns a copy of the token's ledger entry.
func (l *Ledger) Entry(tokenSymbol string) (types.FeeLedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[tokenSymbol]
	if !ok {
		return types.FeeLedgerEntry{TokenSymbol: tokenSymbol}, false
	}
	return *entry, true
}

// Restore seeds a ledger entry from persistence. Intended for startup only.
func (l *Ledger) Restore(entry types.FeeLedgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := entry
	l.entries[entry.TokenSymbol] = &cp
}

// Claimable returns the creator balance claimable at asOf under the token's
// current reward state. A zero result with a nil error means the balance is
// simply not (or not yet) claimable.
func (l *Ledger) Claimable(tokenSymbol string, asOf time.Time) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.claimableLocked(tokenSymbol, asOf)
}

func (l *Ledger) claimableLocked(tokenSymbol string, asOf time.Time) (decimal.Decimal, error) {
	entry := l.entries[tokenSymbol]
	if entry == nil || !entry.AccumulatedCreatorFees.IsPositive() {
		return decimal.Zero, nil
	}

	state, err := l.rewards.RewardStatus(tokenSymbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reward status for %s: %w", tokenSymbol, err)
	}

	switch state.RewardType {
	case types.RewardPremium:
		// Weekly window measured from the previous claim, or from the
		// milestone when no claim has happened yet. Claims pause while the
		// market cap sits below the threshold; the tier itself is sticky.
		if state.LastMarketCap.LessThan(l.cfg.MarketCapThreshold) {
			return decimal.Zero, nil
		}
		windowStart := state.MilestoneAchievedAt
		if state.LastFeeClaim != nil {
			windowStart = state.LastFeeClaim
		}
		if windowStart == nil || asOf.Sub(*windowStart) < l.cfg.PremiumClaimInterval {
			return decimal.Zero, nil
		}
		return entry.AccumulatedCreatorFees, nil

	case types.RewardStandard:
		// Single lifetime claim of the full accumulated balance.
		if state.LastFeeClaim != nil {
			return decimal.Zero, nil
		}
		return entry.AccumulatedCreatorFees, nil

	default:
		return decimal.Zero, nil
	}
}

// NextClaimIn reports how long until the token's creator balance becomes
// claimable again. Zero means the window is already open, or that the
// token's tier has no scheduled window.
func (l *Ledger) NextClaimIn(tokenSymbol string, asOf time.Time) (time.Duration, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state, err := l.rewards.RewardStatus(tokenSymbol)
	if err != nil {
		return 0, fmt.Errorf("reward status for %s: %w", tokenSymbol, err)
	}
	if state.RewardType != types.RewardPremium {
		return 0, nil
	}

	windowStart := state.MilestoneAchievedAt
	if state.LastFeeClaim != nil {
		windowStart = state.LastFeeClaim
	}
	if windowStart == nil {
		return 0, nil
	}
	opensAt := windowStart.Add(l.cfg.PremiumClaimInterval)
	if !opensAt.After(asOf) {
		return 0, nil
	}
	return opensAt.Sub(asOf), nil
}

// Claim debits the claimable creator balance to zero and stamps the claim
// time. Fails with ClaimNotYetAvailable when no balance is claimable at asOf.
func (l *Ledger) Claim(tokenSymbol string, asOf time.Time) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	amount, err := l.claimableLocked(tokenSymbol, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: token %s has no claimable creator fees at %s",
			types.ErrClaimNotYetAvailable, tokenSymbol, asOf.UTC().Format(time.RFC3339))
	}

	entry := l.entries[tokenSymbol]
	entry.AccumulatedCreatorFees = entry.AccumulatedCreatorFees.Sub(amount)
	entry.ClaimedTotal = entry.ClaimedTotal.Add(amount)
	claimedAt := asOf
	entry.LastClaimAt = &claimedAt

	l.logger.Info("Creator fees claimed",
		zap.String("token", tokenSymbol),
		zap.String("amount", amount.String()),
		zap.Time("claimed_at", asOf))
	return amount, nil
}
