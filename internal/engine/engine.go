// internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/chain"
	"github.com/yashastest/wybe-engine/internal/curve"
	"github.com/yashastest/wybe-engine/internal/events"
	"github.com/yashastest/wybe-engine/internal/ledger"
	"github.com/yashastest/wybe-engine/internal/registry"
	"github.com/yashastest/wybe-engine/internal/reward"
	"github.com/yashastest/wybe-engine/internal/storage"
	"github.com/yashastest/wybe-engine/internal/types"
)

const bpsDenominator = 10000

// Config carries engine-level settings.
type Config struct {
	// TreasuryWallet receives the non-fee part of curve trade proceeds.
	TreasuryWallet string
}

// Engine settles mint, buy, sell and direct-swap operations against the
// bonding curve. Settlement for one token is serialized with a per-token
// lock: supply moves the price for the next trade, so two settlements on the
// same token must never interleave. Different tokens settle in parallel.
type Engine struct {
	cfg       Config
	registry  *registry.Registry
	ledger    *ledger.Ledger
	rewards   *reward.StateMachine
	store     storage.Storage
	submitter chain.Submitter
	bus       *events.Bus
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.Mutex
	tokenLocks map[string]*sync.Mutex
}

func New(
	cfg Config,
	reg *registry.Registry,
	led *ledger.Ledger,
	rewards *reward.StateMachine,
	store storage.Storage,
	submitter chain.Submitter,
	bus *events.Bus,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		registry:   reg,
		ledger:     led,
		rewards:    rewards,
		store:      store,
		submitter:  submitter,
		bus:        bus,
		logger:     logger.Named("settlement-engine"),
		now:        time.Now,
		tokenLocks: make(map[string]*sync.Mutex),
	}
}

// MintResult reports a completed primary issuance.
type MintResult struct {
	NewSupply   uint64
	Cost        decimal.Decimal
	TxSignature string
}

// BuyResult reports a completed curve buy.
type BuyResult struct {
	TokenAmount uint64
	SolAmount   decimal.Decimal
	NewPrice    decimal.Decimal
	TxSignature string
}

// SellResult reports a completed curve sell.
type SellResult struct {
	SolAmount   decimal.Decimal
	NewPrice    decimal.Decimal
	TxSignature string
}

// SwapResult reports a completed holder-to-holder trade.
type SwapResult struct {
	SolAmount   decimal.Decimal
	CreatorFee  decimal.Decimal
	PlatformFee decimal.Decimal
	TxSignature string
}

// lockToken returns the settlement mutex for a token, creating it on first use.
func (e *Engine) lockToken(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.tokenLocks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		e.tokenLocks[symbol] = lock
	}
	return lock
}

// Mint issues amount tokens to the recipient at the curve's integral cost.
// Primary issuance charges no creator or platform fees.
func (e *Engine) Mint(ctx context.Context, symbol string, amount uint64, recipientWallet string) (*MintResult, error) {
	lock := e.lockToken(symbol)
	lock.Lock()
	defer lock.Unlock()

	token, err := e.registry.Token(symbol)
	if err != nil {
		return nil, err
	}
	if token.IsFrozen {
		return nil, fmt.Errorf("%w: %q", types.ErrAccountFrozen, symbol)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: mint amount must be positive", types.ErrInvalidAmount)
	}
	if err := registry.ValidateWallet(recipientWallet); err != nil {
		return nil, err
	}

	params := curve.ParamsForToken(&token)
	cost, err := curve.Cost(params, token.TotalSupply, amount)
	if err != nil {
		return nil, err
	}
	newSupply := token.TotalSupply + amount // overflow already ruled out by Cost
	newPrice, err := curve.Price(params, newSupply)
	if err != nil {
		return nil, err
	}

	signature, err := e.submitter.SubmitTransfer(ctx, chain.TransferRequest{
		TokenSymbol: symbol,
		FromWallet:  recipientWallet,
		ToWallet:    e.cfg.TreasuryWallet,
		TokenAmount: amount,
		SolAmount:   cost,
		Memo:        "mint",
	})
	if err != nil {
		return nil, fmt.Errorf("ledger submission failed, mint not applied: %w", err)
	}

	trade := e.newTrade(symbol, types.TradeMint, recipientWallet, "", amount, newPrice, cost, decimal.Zero, decimal.Zero, signature)
	if err := e.persistCurveTrade(ctx, &token, newSupply, recipientWallet, amount, nil, trade); err != nil {
		return nil, err
	}

	if err := e.registry.MintTo(symbol, recipientWallet, amount); err != nil {
		// Cannot happen under the settlement lock; fail loudly if it does.
		return nil, fmt.Errorf("applying mint after persistence: %w", err)
	}

	e.publishTrade(trade)
	e.logger.Info("Mint settled",
		zap.String("token", symbol),
		zap.String("recipient", recipientWallet),
		zap.Uint64("amount", amount),
		zap.String("cost", cost.String()),
		zap.Uint64("new_supply", newSupply))
	return &MintResult{NewSupply: newSupply, Cost: cost, TxSignature: signature}, nil
}

// Buy purchases an exact token amount against the curve, minting new supply.
func (e *Engine) Buy(ctx context.Context, symbol, buyerWallet string, tokenAmount uint64) (*BuyResult, error) {
	lock := e.lockToken(symbol)
	lock.Lock()
	defer lock.Unlock()
	return e.buyLocked(ctx, symbol, buyerWallet, tokenAmount)
}

// BuyWithBudget purchases the maximal token amount whose curve cost fits the
// quote-currency budget.
func (e *Engine) BuyWithBudget(ctx context.Context, symbol, buyerWallet string, budget decimal.Decimal) (*BuyResult, error) {
	lock := e.lockToken(symbol)
	lock.Lock()
	defer lock.Unlock()

	token, err := e.registry.Token(symbol)
	if err != nil {
		return nil, err
	}
	if token.IsFrozen {
		return nil, fmt.Errorf("%w: %q", types.ErrAccountFrozen, symbol)
	}

	amount, err := curve.TokensForBudget(curve.ParamsForToken(&token), token.TotalSupply, budget)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: budget %s buys zero whole tokens of %q",
			types.ErrInvalidAmount, budget, symbol)
	}
	return e.buyLocked(ctx, symbol, buyerWallet, amount)
}

func (e *Engine) buyLocked(ctx context.Context, symbol, buyerWallet string, tokenAmount uint64) (*BuyResult, error) {
	token, err := e.registry.Token(symbol)
	if err != nil {
		return nil, err
	}
	if token.IsFrozen {
		return nil, fmt.Errorf("%w: %q", types.ErrAccountFrozen, symbol)
	}
	if tokenAmount == 0 {
		return nil, fmt.Errorf("%w: buy amount must be positive", types.ErrInvalidAmount)
	}
	if err := registry.ValidateWallet(buyerWallet); err != nil {
		return nil, err
	}

	params := curve.ParamsForToken(&token)
	cost, err := curve.Cost(params, token.TotalSupply, tokenAmount)
	if err != nil {
		return nil, err
	}
	creatorFee, platformFee := splitFees(cost, token.CreatorFeeBps, token.PlatformFeeBps)
	newSupply := token.TotalSupply + tokenAmount
	newPrice, err := curve.Price(params, newSupply)
	if err != nil {
		return nil, err
	}

	signature, err := e.submitter.SubmitTransfer(ctx, chain.TransferRequest{
		TokenSymbol: symbol,
		FromWallet:  buyerWallet,
		ToWallet:    e.cfg.TreasuryWallet,
		TokenAmount: tokenAmount,
		SolAmount:   cost,
		Memo:        "buy",
	})
	if err != nil {
		return nil, fmt.Errorf("ledger submission failed, buy not applied: %w", err)
	}

	trade := e.newTrade(symbol, types.TradeBuy, buyerWallet, "", tokenAmount, newPrice, cost, creatorFee, platformFee, signature)
	feeEntry := e.candidateLedgerEntry(symbol, creatorFee, platformFee)
	if err := e.persistCurveTrade(ctx, &token, newSupply, buyerWallet, tokenAmount, feeEntry, trade); err != nil {
		return nil, err
	}

	if err := e.registry.MintTo(symbol, buyerWallet, tokenAmount); err != nil {
		return nil, fmt.Errorf("applying buy after persistence: %w", err)
	}
	if err := e.ledger.Credit(symbol, creatorFee, platformFee); err != nil {
		return nil, fmt.Errorf("crediting fees after persistence: %w", err)
	}

	e.publishTrade(trade)
	e.logger.Info("Buy settled",
		zap.String("token", symbol),
		zap.String("buyer", buyerWallet),
		zap.Uint64("token_amount", tokenAmount),
		zap.String("cost", cost.String()),
		zap.String("creator_fee", creatorFee.String()),
		zap.String("platform_fee", platformFee.String()),
		zap.String("new_price", newPrice.String()))
	return &BuyResult{
		TokenAmount: tokenAmount,
		SolAmount:   cost,
		NewPrice:    newPrice,
		TxSignature: signature,
	}, nil
}

// Sell burns the seller's tokens back into the curve and pays out the
// integral over the decreasing supply range, fees deducted.
func (e *Engine) Sell(ctx context.Context, symbol, sellerWallet string, tokenAmount uint64) (*SellResult, error) {
	lock := e.lockToken(symbol)
	lock.Lock()
	defer lock.Unlock()

	token, err := e.registry.Token(symbol)
	if err != nil {
		return nil, err
	}
	if token.IsFrozen {
		return nil, fmt.Errorf("%w: %q", types.ErrAccountFrozen, symbol)
	}
	if tokenAmount == 0 {
		return nil, fmt.Errorf("%w: sell amount must be positive", types.ErrInvalidAmount)
	}
	balance, err := e.registry.Balance(symbol, sellerWallet)
	if err != nil {
		return nil, err
	}
	if balance < tokenAmount {
		return nil, fmt.Errorf("%w: wallet %s holds %d of %q, needs %d",
			types.ErrInsufficientBalance, sellerWallet, balance, symbol, tokenAmount)
	}

	params := curve.ParamsForToken(&token)
	newSupply := token.TotalSupply - tokenAmount
	proceeds, err := curve.Cost(params, newSupply, tokenAmount)
	if err != nil {
		return nil, err
	}
	creatorFee, platformFee := splitFees(proceeds, token.CreatorFeeBps, token.PlatformFeeBps)
	netProceeds := proceeds.Sub(creatorFee).Sub(platformFee)
	newPrice, err := curve.Price(params, newSupply)
	if err != nil {
		return nil, err
	}

	signature, err := e.submitter.SubmitTransfer(ctx, chain.TransferRequest{
		TokenSymbol: symbol,
		FromWallet:  e.cfg.TreasuryWallet,
		ToWallet:    sellerWallet,
		TokenAmount: tokenAmount,
		SolAmount:   netProceeds,
		Memo:        "sell",
	})
	if err != nil {
		return nil, fmt.Errorf("ledger submission failed, sell not applied: %w", err)
	}

	trade := e.newTrade(symbol, types.TradeSell, sellerWallet, "", tokenAmount, newPrice, proceeds, creatorFee, platformFee, signature)
	feeEntry := e.candidateLedgerEntry(symbol, creatorFee, platformFee)
	if err := e.persistCurveTrade(ctx, &token, newSupply, sellerWallet, balance-tokenAmount, feeEntry, trade); err != nil {
		return nil, err
	}

	if err := e.registry.BurnFrom(symbol, sellerWallet, tokenAmount); err != nil {
		return nil, fmt.Errorf("applying sell after persistence: %w", err)
	}
	if err := e.ledger.Credit(symbol, creatorFee, platformFee); err != nil {
		return nil, fmt.Errorf("crediting fees after persistence: %w", err)
	}

	e.publishTrade(trade)
	e.logger.Info("Sell settled",
		zap.String("token", symbol),
		zap.String("seller", sellerWallet),
		zap.Uint64("token_amount", tokenAmount),
		zap.String("proceeds", proceeds.String()),
		zap.String("net_proceeds", netProceeds.String()),
		zap.String("new_price", newPrice.String()))
	return &SellResult{SolAmount: netProceeds, NewPrice: newPrice, TxSignature: signature}, nil
}

// ExecuteTrade moves tokens directly between two holders at an agreed price.
// No curve repricing, no supply change; the fee split still applies to the
// agreed notional and is deducted from the seller's proceeds.
func (e *Engine) ExecuteTrade(ctx context.Context, symbol, sellerWallet, buyerWallet string, tokenAmount uint64, agreedPrice decimal.Decimal) (*SwapResult, error) {
	lock := e.lockToken(symbol)
	lock.Lock()
	defer lock.Unlock()

	token, err := e.registry.Token(symbol)
	if err != nil {
		return nil, err
	}
	if token.IsFrozen {
		return nil, fmt.Errorf("%w: %q", types.ErrAccountFrozen, symbol)
	}
	if tokenAmount == 0 {
		return nil, fmt.Errorf("%w: trade amount must be positive", types.ErrInvalidAmount)
	}
	if !agreedPrice.IsPositive() {
		return nil, fmt.Errorf("%w: agreed price %s must be positive", types.ErrInvalidAmount, agreedPrice)
	}
	if sellerWallet == buyerWallet {
		return nil, fmt.Errorf("%w: seller and buyer are the same wallet", types.ErrInvalidAmount)
	}
	if err := registry.ValidateWallet(buyerWallet); err != nil {
		return nil, err
	}
	balance, err := e.registry.Balance(symbol, sellerWallet)
	if err != nil {
		return nil, err
	}
	if balance < tokenAmount {
		return nil, fmt.Errorf("%w: wallet %s holds %d of %q, needs %d",
			types.ErrInsufficientBalance, sellerWallet, balance, symbol, tokenAmount)
	}

	gross := agreedPrice.Mul(decimal.NewFromUint64(tokenAmount))
	creatorFee, platformFee := splitFees(gross, token.CreatorFeeBps, token.PlatformFeeBps)
	netToSeller := gross.Sub(creatorFee).Sub(platformFee)

	signature, err := e.submitter.SubmitTransfer(ctx, chain.TransferRequest{
		TokenSymbol: symbol,
		FromWallet:  buyerWallet,
		ToWallet:    sellerWallet,
		TokenAmount: tokenAmount,
		SolAmount:   netToSeller,
		Memo:        "swap",
	})
	if err != nil {
		return nil, fmt.Errorf("ledger submission failed, trade not applied: %w", err)
	}

	trade := e.newTrade(symbol, types.TradeSwap, buyerWallet, sellerWallet, tokenAmount, agreedPrice, gross, creatorFee, platformFee, signature)
	feeEntry := e.candidateLedgerEntry(symbol, creatorFee, platformFee)

	buyerBalance, err := e.registry.Balance(symbol, buyerWallet)
	if err != nil {
		return nil, err
	}
	if err := e.persistSwap(ctx, symbol, sellerWallet, balance-tokenAmount, buyerWallet, buyerBalance+tokenAmount, feeEntry, trade); err != nil {
		return nil, err
	}

	if err := e.registry.Transfer(symbol, sellerWallet, buyerWallet, tokenAmount); err != nil {
		return nil, fmt.Errorf("applying trade after persistence: %w", err)
	}
	if err := e.ledger.Credit(symbol, creatorFee, platformFee); err != nil {
		return nil, fmt.Errorf("crediting fees after persistence: %w", err)
	}

	e.publishTrade(trade)
	e.logger.Info("Direct trade settled",
		zap.String("token", symbol),
		zap.String("seller", sellerWallet),
		zap.String("buyer", buyerWallet),
		zap.Uint64("token_amount", tokenAmount),
		zap.String("gross", gross.String()),
		zap.String("net_to_seller", netToSeller.String()))
	return &SwapResult{
		SolAmount:   netToSeller,
		CreatorFee:  creatorFee,
		PlatformFee: platformFee,
		TxSignature: signature,
	}, nil
}

// ClaimCreatorFees pays out the claimable creator balance. Only the token
// authority may claim. Runs under the settlement lock so ledger mutation for
// a token stays single-writer.
func (e *Engine) ClaimCreatorFees(ctx context.Context, symbol, callerWallet string, asOf time.Time) (decimal.Decimal, error) {
	lock := e.lockToken(symbol)
	lock.Lock()
	defer lock.Unlock()

	token, err := e.registry.Token(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if callerWallet != token.Authority {
		return decimal.Zero, fmt.Errorf("%w: wallet %s is not the authority of %q",
			types.ErrUnauthorized, callerWallet, symbol)
	}

	amount, err := e.ledger.Claimable(symbol, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: token %s has no claimable creator fees at %s",
			types.ErrClaimNotYetAvailable, symbol, asOf.UTC().Format(time.RFC3339))
	}

	// The debit is applied only after the payout is submitted and persisted,
	// so a failed submission leaves the balance intact and claimable again.
	signature, err := e.submitter.SubmitTransfer(ctx, chain.TransferRequest{
		TokenSymbol: symbol,
		FromWallet:  e.cfg.TreasuryWallet,
		ToWallet:    callerWallet,
		SolAmount:   amount,
		Memo:        "creator-fee-claim",
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("claim payout submission (balance not debited): %w", err)
	}

	entry, _ := e.ledger.Entry(symbol)
	claimedAt := asOf
	entry.AccumulatedCreatorFees = entry.AccumulatedCreatorFees.Sub(amount)
	entry.ClaimedTotal = entry.ClaimedTotal.Add(amount)
	entry.LastClaimAt = &claimedAt
	if err := e.store.SaveFeeLedgerEntry(ctx, &entry); err != nil {
		return decimal.Zero, fmt.Errorf("persisting ledger for claim: %w", err)
	}
	state, err := e.rewards.RewardStatus(symbol)
	if err == nil {
		state.LastFeeClaim = &claimedAt
		if err := e.store.SaveRewardState(ctx, &state); err != nil {
			return decimal.Zero, fmt.Errorf("persisting reward state for claim: %w", err)
		}
	}

	// In-memory application cannot fail under the token lock.
	if _, err := e.ledger.Claim(symbol, asOf); err != nil {
		return decimal.Zero, fmt.Errorf("applying claim after persistence: %w", err)
	}
	if err := e.rewards.RecordFeeClaim(symbol, asOf); err != nil {
		return decimal.Zero, fmt.Errorf("recording claim after persistence: %w", err)
	}

	if e.bus != nil {
		_ = e.bus.Publish(events.NewFeesClaimedEvent(symbol, callerWallet, amount))
	}
	e.logger.Info("Creator fee claim paid",
		zap.String("token", symbol),
		zap.String("wallet", callerWallet),
		zap.String("amount", amount.String()),
		zap.String("signature", signature))
	return amount, nil
}

// newTrade assembles the immutable audit record for a settlement.
func (e *Engine) newTrade(symbol string, kind types.TradeKind, counterparty, secondParty string, amount uint64, price, gross, creatorFee, platformFee decimal.Decimal, signature string) *types.Trade {
	return &types.Trade{
		ID:           uuid.NewString(),
		TokenSymbol:  symbol,
		Kind:         kind,
		Counterparty: counterparty,
		SecondParty:  secondParty,
		TokenAmount:  amount,
		QuotedPrice:  price,
		GrossAmount:  gross,
		CreatorFee:   creatorFee,
		PlatformFee:  platformFee,
		TxSignature:  signature,
		Timestamp:    e.now(),
	}
}

// candidateLedgerEntry computes the post-credit ledger row without mutating
// the live ledger, so the row can be persisted before the credit is applied.
func (e *Engine) candidateLedgerEntry(symbol string, creatorFee, platformFee decimal.Decimal) *types.FeeLedgerEntry {
	entry, _ := e.ledger.Entry(symbol)
	entry.AccumulatedCreatorFees = entry.AccumulatedCreatorFees.Add(creatorFee)
	entry.AccumulatedPlatformFees = entry.AccumulatedPlatformFees.Add(platformFee)
	return &entry
}

// persistCurveTrade writes the candidate state of a mint/buy/sell: updated
// token supply, the touched holder, the fee ledger row and the trade record.
// Failure surfaces to the caller with no in-memory mutation applied.
func (e *Engine) persistCurveTrade(ctx context.Context, token *types.Token, newSupply uint64, wallet string, newBalance uint64, feeEntry *types.FeeLedgerEntry, trade *types.Trade) error {
	persisted := *token
	persisted.TotalSupply = newSupply
	if err := e.store.SaveToken(ctx, &persisted); err != nil {
		return fmt.Errorf("persisting token, settlement not applied: %w", err)
	}
	holder := types.Holder{TokenSymbol: token.Symbol, Wallet: wallet, Balance: newBalance}
	if err := e.store.SaveHolder(ctx, &holder); err != nil {
		return fmt.Errorf("persisting holder, settlement not applied: %w", err)
	}
	if feeEntry != nil {
		if err := e.store.SaveFeeLedgerEntry(ctx, feeEntry); err != nil {
			return fmt.Errorf("persisting fee ledger, settlement not applied: %w", err)
		}
	}
	if err := e.store.AppendTrade(ctx, trade); err != nil {
		return fmt.Errorf("appending trade, settlement not applied: %w", err)
	}
	return nil
}

// persistSwap writes both holder rows of a direct trade plus fees and audit.
func (e *Engine) persistSwap(ctx context.Context, symbol, seller string, sellerBalance uint64, buyer string, buyerBalance uint64, feeEntry *types.FeeLedgerEntry, trade *types.Trade) error {
	sellerHolder := types.Holder{TokenSymbol: symbol, Wallet: seller, Balance: sellerBalance}
	if err := e.store.SaveHolder(ctx, &sellerHolder); err != nil {
		return fmt.Errorf("persisting seller, settlement not applied: %w", err)
	}
	buyerHolder := types.Holder{TokenSymbol: symbol, Wallet: buyer, Balance: buyerBalance}
	if err := e.store.SaveHolder(ctx, &buyerHolder); err != nil {
		return fmt.Errorf("persisting buyer, settlement not applied: %w", err)
	}
	if feeEntry != nil {
		if err := e.store.SaveFeeLedgerEntry(ctx, feeEntry); err != nil {
			return fmt.Errorf("persisting fee ledger, settlement not applied: %w", err)
		}
	}
	if err := e.store.AppendTrade(ctx, trade); err != nil {
		return fmt.Errorf("appending trade, settlement not applied: %w", err)
	}
	return nil
}

func (e *Engine) publishTrade(trade *types.Trade) {
	if e.bus != nil {
		_ = e.bus.Publish(events.NewTradeExecutedEvent(*trade))
	}
}

// splitFees applies the basis-point split to a gross amount.
func splitFees(gross decimal.Decimal, creatorFeeBps, platformFeeBps uint32) (creatorFee, platformFee decimal.Decimal) {
	denom := decimal.NewFromInt(bpsDenominator)
	creatorFee = gross.Mul(decimal.NewFromInt(int64(creatorFeeBps))).DivRound(denom, 12)
	platformFee = gross.Mul(decimal.NewFromInt(int64(platformFeeBps))).DivRound(denom, 12)
	return creatorFee, platformFee
}
