// internal/engine/admin.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/events"
	"github.com/yashastest/wybe-engine/internal/registry"
	"github.com/yashastest/wybe-engine/internal/types"
)

// InitializeToken registers a token with its curve, starts reward tracking
// and persists the initial state.
func (e *Engine) InitializeToken(ctx context.Context, req registry.CreateTokenRequest) (*types.Token, error) {
	now := e.now()
	token, err := e.registry.CreateToken(req, now)
	if err != nil {
		return nil, err
	}
	e.rewards.Track(token.Symbol, now)

	if err := e.store.SaveToken(ctx, token); err != nil {
		return nil, fmt.Errorf("persisting token %q: %w", token.Symbol, err)
	}
	state, err := e.rewards.RewardStatus(token.Symbol)
	if err == nil {
		if err := e.store.SaveRewardState(ctx, &state); err != nil {
			return nil, fmt.Errorf("persisting reward state for %q: %w", token.Symbol, err)
		}
	}

	if e.bus != nil {
		_ = e.bus.Publish(events.NewTokenInitializedEvent(token))
	}
	e.logger.Info("Token initialized",
		zap.String("token", token.Symbol),
		zap.String("authority", token.Authority),
		zap.String("curve", string(token.CurveType)))
	return token, nil
}

// UpdateFees changes a token's fee split. Authority only, and rejected while
// the token is frozen.
func (e *Engine) UpdateFees(ctx context.Context, symbol, callerWallet string, creatorFeeBps, platformFeeBps uint32) error {
	lock := e.lockToken(symbol)
	lock.Lock()
	defer lock.Unlock()

	if err := e.registry.UpdateFees(symbol, callerWallet, creatorFeeBps, platformFeeBps); err != nil {
		return err
	}
	if err := e.persistToken(ctx, symbol); err != nil {
		return err
	}
	if e.bus != nil {
		_ = e.bus.Publish(events.NewFeesUpdatedEvent(symbol, creatorFeeBps, platformFeeBps))
	}
	return nil
}

// Freeze halts all settlement on a token until Unfreeze.
func (e *Engine) Freeze(ctx context.Context, symbol, callerWallet string) error {
	return e.setFrozen(ctx, symbol, callerWallet, true)
}

// Unfreeze resumes settlement on a frozen token.
func (e *Engine) Unfreeze(ctx context.Context, symbol, callerWallet string) error {
	return e.setFrozen(ctx, symbol, callerWallet, false)
}

func (e *Engine) setFrozen(ctx context.Context, symbol, callerWallet string, frozen bool) error {
	lock := e.lockToken(symbol)
	lock.Lock()
	defer lock.Unlock()

	var err error
	if frozen {
		err = e.registry.Freeze(symbol, callerWallet)
	} else {
		err = e.registry.Unfreeze(symbol, callerWallet)
	}
	if err != nil {
		return err
	}
	if err := e.persistToken(ctx, symbol); err != nil {
		return err
	}
	if e.bus != nil {
		_ = e.bus.Publish(events.NewFreezeChangedEvent(symbol, frozen))
	}
	e.logger.Info("Freeze state changed",
		zap.String("token", symbol), zap.Bool("frozen", frozen))
	return nil
}

func (e *Engine) persistToken(ctx context.Context, symbol string) error {
	token, err := e.registry.Token(symbol)
	if err != nil {
		return err
	}
	return e.store.SaveToken(ctx, &token)
}

// RewardStatus exposes the current reward state of a token.
func (e *Engine) RewardStatus(symbol string) (types.RewardState, error) {
	return e.rewards.RewardStatus(symbol)
}

// Claimable previews the creator balance a claim would pay out right now.
func (e *Engine) Claimable(symbol string, asOf time.Time) (decimal.Decimal, error) {
	return e.ledger.Claimable(symbol, asOf)
}

// TokenClaimStatus is one token's line in a creator's claim summary.
type TokenClaimStatus struct {
	TokenSymbol  string
	RewardType   types.RewardType
	Unclaimed    decimal.Decimal
	Claimable    decimal.Decimal
	ClaimedTotal decimal.Decimal
	// NextClaimIn counts down to the next premium claim window. Zero when
	// the window is open or the tier has no scheduled window.
	NextClaimIn time.Duration
}

// ClaimSummary aggregates claim status across every token the wallet is
// authority for.
type ClaimSummary struct {
	CreatorWallet  string
	TotalUnclaimed decimal.Decimal
	TotalClaimable decimal.Decimal
	Tokens         []TokenClaimStatus
}

// ClaimSummary reports, for one creator wallet, the unclaimed and currently
// claimable creator-fee balances across all of their tokens.
func (e *Engine) ClaimSummary(creatorWallet string, asOf time.Time) (*ClaimSummary, error) {
	summary := &ClaimSummary{
		CreatorWallet:  creatorWallet,
		TotalUnclaimed: decimal.Zero,
		TotalClaimable: decimal.Zero,
	}

	for _, symbol := range e.registry.Symbols() {
		token, err := e.registry.Token(symbol)
		if err != nil {
			return nil, err
		}
		if token.Authority != creatorWallet {
			continue
		}

		entry, _ := e.ledger.Entry(symbol)
		claimable, err := e.ledger.Claimable(symbol, asOf)
		if err != nil {
			return nil, err
		}
		state, err := e.rewards.RewardStatus(symbol)
		if err != nil {
			return nil, err
		}
		nextIn, err := e.ledger.NextClaimIn(symbol, asOf)
		if err != nil {
			return nil, err
		}

		summary.Tokens = append(summary.Tokens, TokenClaimStatus{
			TokenSymbol:  symbol,
			RewardType:   state.RewardType,
			Unclaimed:    entry.AccumulatedCreatorFees,
			Claimable:    claimable,
			ClaimedTotal: entry.ClaimedTotal,
			NextClaimIn:  nextIn,
		})
		summary.TotalUnclaimed = summary.TotalUnclaimed.Add(entry.AccumulatedCreatorFees)
		summary.TotalClaimable = summary.TotalClaimable.Add(claimable)
	}
	return summary, nil
}
