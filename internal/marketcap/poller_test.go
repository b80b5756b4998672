package marketcap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/reward"
	"github.com/yashastest/wybe-engine/internal/storage/memory"
	"github.com/yashastest/wybe-engine/internal/types"
)

type staticSymbols []string

func (s staticSymbols) Symbols() []string { return s }

type stubFeed struct {
	caps     map[string]decimal.Decimal
	failures int32 // transient errors to return before succeeding
	calls    int32
}

func (f *stubFeed) Sample(_ context.Context, symbol string) (types.MarketCapSample, error) {
	atomic.AddInt32(&f.calls, 1)
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return types.MarketCapSample{}, errors.New("feed unavailable")
	}
	return types.MarketCapSample{
		TokenSymbol: symbol,
		MarketCap:   f.caps[symbol],
		Timestamp:   time.Now(),
	}, nil
}

func TestPollOnceEvaluatesAndPersists(t *testing.T) {
	log := zap.NewNop()
	rewards := reward.NewStateMachine(reward.Config{}, log)
	rewards.Track("WYBE", time.Now())
	store := memory.NewStorage()

	feed := &stubFeed{caps: map[string]decimal.Decimal{"WYBE": decimal.NewFromInt(60000)}}
	p := NewPoller(Config{}, feed, staticSymbols{"WYBE"}, rewards, store, nil, log)

	require.NoError(t, p.PollOnce(context.Background()))

	// Crossing the threshold opens the sustain window and the new state is
	// written through to storage.
	state, err := rewards.RewardStatus("WYBE")
	require.NoError(t, err)
	assert.Equal(t, types.PhaseSustainWindowActive, state.Phase)

	persisted, err := store.LoadRewardState(context.Background(), "WYBE")
	require.NoError(t, err)
	assert.Equal(t, types.PhaseSustainWindowActive, persisted.Phase)
	assert.True(t, persisted.LastMarketCap.Equal(decimal.NewFromInt(60000)))
}

func TestPollOnceRetriesTransientFeedErrors(t *testing.T) {
	log := zap.NewNop()
	rewards := reward.NewStateMachine(reward.Config{}, log)
	rewards.Track("WYBE", time.Now())

	feed := &stubFeed{
		caps:     map[string]decimal.Decimal{"WYBE": decimal.NewFromInt(10000)},
		failures: 2,
	}
	p := NewPoller(Config{MaxRetries: 3}, feed, staticSymbols{"WYBE"}, rewards, memory.NewStorage(), nil, log)

	require.NoError(t, p.PollOnce(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&feed.calls))
}

func TestPollOnceGivesUpAfterMaxRetries(t *testing.T) {
	log := zap.NewNop()
	rewards := reward.NewStateMachine(reward.Config{}, log)
	rewards.Track("WYBE", time.Now())

	feed := &stubFeed{failures: 100}
	p := NewPoller(Config{MaxRetries: 2}, feed, staticSymbols{"WYBE"}, rewards, memory.NewStorage(), nil, log)

	err := p.PollOnce(context.Background())
	assert.Error(t, err)
}

type fixedPricer struct{ mc decimal.Decimal }

func (f fixedPricer) MarketCap(string) (decimal.Decimal, error) { return f.mc, nil }

func TestCurveFeedSample(t *testing.T) {
	feed := NewCurveFeed(fixedPricer{mc: decimal.NewFromInt(12345)})
	sample, err := feed.Sample(context.Background(), "WYBE")
	require.NoError(t, err)
	assert.Equal(t, "WYBE", sample.TokenSymbol)
	assert.True(t, sample.MarketCap.Equal(decimal.NewFromInt(12345)))
	assert.False(t, sample.Timestamp.IsZero())
}
