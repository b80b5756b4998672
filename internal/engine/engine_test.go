package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/chain"
	"github.com/yashastest/wybe-engine/internal/ledger"
	"github.com/yashastest/wybe-engine/internal/registry"
	"github.com/yashastest/wybe-engine/internal/reward"
	"github.com/yashastest/wybe-engine/internal/storage"
	"github.com/yashastest/wybe-engine/internal/storage/memory"
	"github.com/yashastest/wybe-engine/internal/types"
)

const (
	treasuryWallet  = "11111111111111111111111111111111"
	authorityWallet = "Vote111111111111111111111111111111111111111"
	buyerWallet     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	sellerWallet    = "SysvarRent111111111111111111111111111111111"
)

type fixture struct {
	engine   *Engine
	registry *registry.Registry
	ledger   *ledger.Ledger
	rewards  *reward.StateMachine
	store    storage.Storage
}

func newFixture(t *testing.T, store storage.Storage) *fixture {
	t.Helper()
	log := zap.NewNop()
	if store == nil {
		store = memory.NewStorage()
	}
	reg := registry.New(2000, log)
	rewards := reward.NewStateMachine(reward.Config{}, log)
	led := ledger.New(rewards, ledger.Config{}, log)
	eng := New(Config{TreasuryWallet: treasuryWallet},
		reg, led, rewards, store, chain.NewLocalSubmitter(log), nil, log)
	return &fixture{engine: eng, registry: reg, ledger: led, rewards: rewards, store: store}
}

func (f *fixture) launchToken(t *testing.T, ct types.CurveType) {
	t.Helper()
	_, err := f.engine.InitializeToken(context.Background(), registry.CreateTokenRequest{
		Symbol:         "WYBE",
		Name:           "Wybe Launch Token",
		Authority:      authorityWallet,
		CurveType:      ct,
		BasePrice:      decimal.RequireFromString("0.001"),
		ScaleFactor:    decimal.NewFromInt(100000),
		CreatorFeeBps:  250,
		PlatformFeeBps: 250,
	})
	require.NoError(t, err)
}

func (f *fixture) supplyAndBalances(t *testing.T) (uint64, uint64) {
	t.Helper()
	token, err := f.registry.Token("WYBE")
	require.NoError(t, err)
	holders, err := f.registry.Holders("WYBE")
	require.NoError(t, err)
	var sum uint64
	for _, h := range holders {
		sum += h.Balance
	}
	return token.TotalSupply, sum
}

func TestBuyConservesSupply(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	res, err := f.engine.Buy(ctx, "WYBE", buyerWallet, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), res.TokenAmount)
	assert.True(t, res.SolAmount.IsPositive())
	assert.NotEmpty(t, res.TxSignature)

	_, err = f.engine.Buy(ctx, "WYBE", sellerWallet, 5000)
	require.NoError(t, err)

	supply, sum := f.supplyAndBalances(t)
	assert.Equal(t, uint64(15000), supply)
	assert.Equal(t, supply, sum)
}

func TestBuyThenSellNeverProfits(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveExponential)
	ctx := context.Background()

	buy, err := f.engine.Buy(ctx, "WYBE", buyerWallet, 20000)
	require.NoError(t, err)

	sell, err := f.engine.Sell(ctx, "WYBE", buyerWallet, 20000)
	require.NoError(t, err)

	// The sell integrates the same supply range, so net proceeds are the buy
	// cost minus both fee splits, never more.
	assert.True(t, sell.SolAmount.LessThan(buy.SolAmount),
		"round trip must not profit: bought for %s, sold for %s", buy.SolAmount, sell.SolAmount)

	supply, sum := f.supplyAndBalances(t)
	assert.Equal(t, uint64(0), supply)
	assert.Equal(t, uint64(0), sum)
}

func TestBuyWithBudgetRespectsBudget(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	budget := decimal.NewFromInt(50)
	res, err := f.engine.BuyWithBudget(ctx, "WYBE", buyerWallet, budget)
	require.NoError(t, err)
	assert.Greater(t, res.TokenAmount, uint64(0))
	assert.True(t, res.SolAmount.LessThanOrEqual(budget),
		"cost %s exceeds budget %s", res.SolAmount, budget)
}

func TestMintChargesNoFees(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	res, err := f.engine.Mint(ctx, "WYBE", 1000, authorityWallet)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), res.NewSupply)
	assert.True(t, res.Cost.IsPositive())

	entry, _ := f.ledger.Entry("WYBE")
	assert.True(t, entry.AccumulatedCreatorFees.IsZero())
	assert.True(t, entry.AccumulatedPlatformFees.IsZero())

	trades, err := f.store.ListTrades(ctx, "WYBE", 10, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, types.TradeMint, trades[0].Kind)
	assert.True(t, trades[0].CreatorFee.IsZero())
}

func TestBuyCreditsFeeSplit(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	res, err := f.engine.Buy(ctx, "WYBE", buyerWallet, 10000)
	require.NoError(t, err)

	// 250 bps of the cost each way.
	wantFee := res.SolAmount.Mul(decimal.NewFromInt(250)).DivRound(decimal.NewFromInt(10000), 12)
	entry, _ := f.ledger.Entry("WYBE")
	assert.True(t, entry.AccumulatedCreatorFees.Equal(wantFee),
		"creator fee %s, want %s", entry.AccumulatedCreatorFees, wantFee)
	assert.True(t, entry.AccumulatedPlatformFees.Equal(wantFee))
}

func TestFrozenTokenRejectsSettlement(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	_, err := f.engine.Buy(ctx, "WYBE", buyerWallet, 100)
	require.NoError(t, err)
	require.NoError(t, f.engine.Freeze(ctx, "WYBE", authorityWallet))

	_, err = f.engine.Buy(ctx, "WYBE", buyerWallet, 100)
	assert.ErrorIs(t, err, types.ErrAccountFrozen)
	_, err = f.engine.Sell(ctx, "WYBE", buyerWallet, 50)
	assert.ErrorIs(t, err, types.ErrAccountFrozen)
	_, err = f.engine.Mint(ctx, "WYBE", 10, authorityWallet)
	assert.ErrorIs(t, err, types.ErrAccountFrozen)
	_, err = f.engine.ExecuteTrade(ctx, "WYBE", buyerWallet, sellerWallet, 10, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, types.ErrAccountFrozen)

	require.NoError(t, f.engine.Unfreeze(ctx, "WYBE", authorityWallet))
	_, err = f.engine.Buy(ctx, "WYBE", buyerWallet, 100)
	assert.NoError(t, err)
}

func TestSellInsufficientBalance(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	_, err := f.engine.Buy(ctx, "WYBE", buyerWallet, 100)
	require.NoError(t, err)

	_, err = f.engine.Sell(ctx, "WYBE", buyerWallet, 101)
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)

	// The failed sell must not have touched anything.
	supply, sum := f.supplyAndBalances(t)
	assert.Equal(t, uint64(100), supply)
	assert.Equal(t, supply, sum)
}

func TestExecuteTradeMovesTokensWithoutSupplyChange(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	_, err := f.engine.Buy(ctx, "WYBE", sellerWallet, 1000)
	require.NoError(t, err)
	entryBefore, _ := f.ledger.Entry("WYBE")

	price := decimal.RequireFromString("0.01")
	res, err := f.engine.ExecuteTrade(ctx, "WYBE", sellerWallet, buyerWallet, 400, price)
	require.NoError(t, err)

	gross := price.Mul(decimal.NewFromInt(400))
	assert.True(t, res.SolAmount.Equal(gross.Sub(res.CreatorFee).Sub(res.PlatformFee)))

	token, err := f.registry.Token("WYBE")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), token.TotalSupply, "direct trades do not change supply")

	sellerBal, _ := f.registry.Balance("WYBE", sellerWallet)
	buyerBal, _ := f.registry.Balance("WYBE", buyerWallet)
	assert.Equal(t, uint64(600), sellerBal)
	assert.Equal(t, uint64(400), buyerBal)

	entryAfter, _ := f.ledger.Entry("WYBE")
	assert.True(t, entryAfter.AccumulatedCreatorFees.GreaterThan(entryBefore.AccumulatedCreatorFees),
		"swap fees accrue to the creator ledger")
}

// failingStorage rejects trade appends to exercise the not-applied guarantee.
type failingStorage struct {
	storage.Storage
}

var errDiskFull = errors.New("disk full")

func (f *failingStorage) AppendTrade(_ context.Context, _ *types.Trade) error {
	return errDiskFull
}

func TestPersistenceFailureLeavesStateUntouched(t *testing.T) {
	inner := memory.NewStorage()
	f := newFixture(t, &failingStorage{Storage: inner})
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	_, err := f.engine.Buy(ctx, "WYBE", buyerWallet, 500)
	require.ErrorIs(t, err, errDiskFull)

	supply, sum := f.supplyAndBalances(t)
	assert.Equal(t, uint64(0), supply, "failed settlement must not mint")
	assert.Equal(t, uint64(0), sum)

	entry, _ := f.ledger.Entry("WYBE")
	assert.True(t, entry.AccumulatedCreatorFees.IsZero(), "failed settlement must not credit fees")
}

// failingSubmitter fails transfers carrying the given memo and passes
// everything else through.
type failingSubmitter struct {
	chain.Submitter
	failMemo string
}

var errChainDown = errors.New("rpc node unavailable")

func (s *failingSubmitter) SubmitTransfer(ctx context.Context, req chain.TransferRequest) (string, error) {
	if req.Memo == s.failMemo {
		return "", errChainDown
	}
	return s.Submitter.SubmitTransfer(ctx, req)
}

func TestClaimPayoutFailureLeavesBalanceClaimable(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	_, err := f.engine.Buy(ctx, "WYBE", buyerWallet, 100000)
	require.NoError(t, err)
	entry, _ := f.ledger.Entry("WYBE")
	accrued := entry.AccumulatedCreatorFees
	require.True(t, accrued.IsPositive())

	// Late crossing assigns the standard tier with its single lifetime claim.
	claimTime := time.Now().Add(200 * time.Hour)
	_, err = f.rewards.Evaluate(types.MarketCapSample{
		TokenSymbol: "WYBE", MarketCap: decimal.NewFromInt(60000), Timestamp: claimTime,
	})
	require.NoError(t, err)

	f.engine.submitter = &failingSubmitter{Submitter: f.engine.submitter, failMemo: "creator-fee-claim"}

	_, err = f.engine.ClaimCreatorFees(ctx, "WYBE", authorityWallet, claimTime)
	require.ErrorIs(t, err, errChainDown)

	entry, _ = f.ledger.Entry("WYBE")
	assert.True(t, entry.AccumulatedCreatorFees.Equal(accrued),
		"balance must survive a failed payout")
	assert.True(t, entry.ClaimedTotal.IsZero())
	state, err := f.engine.RewardStatus("WYBE")
	require.NoError(t, err)
	assert.Nil(t, state.LastFeeClaim)
	claimable, err := f.engine.Claimable("WYBE", claimTime)
	require.NoError(t, err)
	assert.True(t, claimable.Equal(accrued), "the claim must still be available")

	// With the chain back, the same claim pays out in full.
	f.engine.submitter = chain.NewLocalSubmitter(zap.NewNop())
	amount, err := f.engine.ClaimCreatorFees(ctx, "WYBE", authorityWallet, claimTime)
	require.NoError(t, err)
	assert.True(t, amount.Equal(accrued))
}

func TestClaimCreatorFeesPremiumFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	_, err := f.engine.Buy(ctx, "WYBE", buyerWallet, 100000)
	require.NoError(t, err)
	entry, _ := f.ledger.Entry("WYBE")
	accrued := entry.AccumulatedCreatorFees
	require.True(t, accrued.IsPositive())

	// Drive the reward machine to premium with direct market-cap samples.
	launchTime := time.Now()
	crossed := launchTime.Add(time.Hour)
	_, err = f.rewards.Evaluate(types.MarketCapSample{
		TokenSymbol: "WYBE", MarketCap: decimal.NewFromInt(60000), Timestamp: crossed,
	})
	require.NoError(t, err)
	_, err = f.rewards.Evaluate(types.MarketCapSample{
		TokenSymbol: "WYBE", MarketCap: decimal.NewFromInt(60000), Timestamp: crossed.Add(48 * time.Hour),
	})
	require.NoError(t, err)

	state, err := f.engine.RewardStatus("WYBE")
	require.NoError(t, err)
	require.Equal(t, types.PhasePremiumActive, state.Phase)

	// Only the authority may claim.
	claimTime := crossed.Add(48*time.Hour + 8*24*time.Hour)
	_, err = f.engine.ClaimCreatorFees(ctx, "WYBE", buyerWallet, claimTime)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	// Too early: the weekly window runs from the milestone.
	_, err = f.engine.ClaimCreatorFees(ctx, "WYBE", authorityWallet, crossed.Add(50*time.Hour))
	assert.ErrorIs(t, err, types.ErrClaimNotYetAvailable)

	amount, err := f.engine.ClaimCreatorFees(ctx, "WYBE", authorityWallet, claimTime)
	require.NoError(t, err)
	assert.True(t, amount.Equal(accrued), "claim pays the whole unclaimed balance")

	// Immediately claiming again fails until the next window.
	_, err = f.engine.ClaimCreatorFees(ctx, "WYBE", authorityWallet, claimTime.Add(time.Hour))
	assert.ErrorIs(t, err, types.ErrClaimNotYetAvailable)

	state, err = f.engine.RewardStatus("WYBE")
	require.NoError(t, err)
	require.NotNil(t, state.LastFeeClaim)
	assert.True(t, state.LastFeeClaim.Equal(claimTime))
}

func TestClaimSummaryAggregatesCreatorTokens(t *testing.T) {
	f := newFixture(t, nil)
	f.launchToken(t, types.CurveLinear)
	ctx := context.Background()

	// A second token by the same creator, and one by somebody else.
	_, err := f.engine.InitializeToken(ctx, registry.CreateTokenRequest{
		Symbol:         "SIGMA",
		Name:           "Sigma",
		Authority:      authorityWallet,
		CurveType:      types.CurveExponential,
		BasePrice:      decimal.RequireFromString("0.001"),
		ScaleFactor:    decimal.NewFromInt(100000),
		CreatorFeeBps:  300,
		PlatformFeeBps: 200,
	})
	require.NoError(t, err)
	_, err = f.engine.InitializeToken(ctx, registry.CreateTokenRequest{
		Symbol:         "OTHER",
		Name:           "Other",
		Authority:      buyerWallet,
		CurveType:      types.CurveLinear,
		BasePrice:      decimal.RequireFromString("0.001"),
		ScaleFactor:    decimal.NewFromInt(100000),
		CreatorFeeBps:  250,
		PlatformFeeBps: 250,
	})
	require.NoError(t, err)

	_, err = f.engine.Buy(ctx, "WYBE", buyerWallet, 50000)
	require.NoError(t, err)
	_, err = f.engine.Buy(ctx, "SIGMA", buyerWallet, 20000)
	require.NoError(t, err)

	wybeEntry, _ := f.ledger.Entry("WYBE")
	sigmaEntry, _ := f.ledger.Entry("SIGMA")

	// Give WYBE a standard tier so its balance is actually claimable; SIGMA
	// stays pending with nothing claimable yet.
	deadline := time.Now().Add(200 * time.Hour)
	_, err = f.rewards.Evaluate(types.MarketCapSample{
		TokenSymbol: "WYBE", MarketCap: decimal.NewFromInt(60000), Timestamp: deadline,
	})
	require.NoError(t, err)

	summary, err := f.engine.ClaimSummary(authorityWallet, deadline)
	require.NoError(t, err)
	require.Len(t, summary.Tokens, 2, "only the creator's tokens are listed")

	byToken := make(map[string]TokenClaimStatus, len(summary.Tokens))
	for _, st := range summary.Tokens {
		byToken[st.TokenSymbol] = st
	}
	assert.True(t, byToken["WYBE"].Unclaimed.Equal(wybeEntry.AccumulatedCreatorFees))
	assert.True(t, byToken["WYBE"].Claimable.Equal(wybeEntry.AccumulatedCreatorFees))
	assert.Equal(t, types.RewardStandard, byToken["WYBE"].RewardType)
	assert.True(t, byToken["SIGMA"].Unclaimed.Equal(sigmaEntry.AccumulatedCreatorFees))
	assert.True(t, byToken["SIGMA"].Claimable.IsZero())

	wantUnclaimed := wybeEntry.AccumulatedCreatorFees.Add(sigmaEntry.AccumulatedCreatorFees)
	assert.True(t, summary.TotalUnclaimed.Equal(wantUnclaimed))
	assert.True(t, summary.TotalClaimable.Equal(wybeEntry.AccumulatedCreatorFees))

	other, err := f.engine.ClaimSummary(sellerWallet, deadline)
	require.NoError(t, err)
	assert.Empty(t, other.Tokens)
	assert.True(t, other.TotalClaimable.IsZero())
}

func TestQuoteMatchesSettledCost(t *testing.T) {
	f2 := newFixture(t, nil)
	_, err := f2.engine.InitializeToken(context.Background(), registry.CreateTokenRequest{
		Symbol:           "WYBE",
		Name:             "Wybe Launch Token",
		Authority:        authorityWallet,
		CurveType:        types.CurveSCurve,
		BasePrice:        decimal.RequireFromString("0.001"),
		ScaleFactor:      decimal.NewFromInt(100000),
		InflectionSupply: decimal.NewFromInt(500000),
		CreatorFeeBps:    250,
		PlatformFeeBps:   250,
	})
	require.NoError(t, err)

	quote, err := f2.engine.QuoteBuy("WYBE", 5000)
	require.NoError(t, err)

	res, err := f2.engine.Buy(context.Background(), "WYBE", buyerWallet, 5000)
	require.NoError(t, err)
	assert.True(t, quote.SolAmount.Equal(res.SolAmount),
		"quote %s must match settled cost %s when supply has not moved", quote.SolAmount, res.SolAmount)
}
