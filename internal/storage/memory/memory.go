// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yashastest/wybe-engine/internal/storage"
	"github.com/yashastest/wybe-engine/internal/types"
)

// memoryStorage keeps everything in maps. Used by the scenario runner and by
// tests; behavior mirrors the postgres implementation, including the
// zero-holder and token-not-found semantics.
type memoryStorage struct {
	mu      sync.RWMutex
	tokens  map[string]types.Token
	holders map[string]map[string]types.Holder
	trades  []types.Trade
	ledger  map[string]types.FeeLedgerEntry
	rewards map[string]types.RewardState
}

func NewStorage() storage.Storage {
	return &memoryStorage{
		tokens:  make(map[string]types.Token),
		holders: make(map[string]map[string]types.Holder),
		ledger:  make(map[string]types.FeeLedgerEntry),
		rewards: make(map[string]types.RewardState),
	}
}

func (m *memoryStorage) SaveToken(_ context.Context, token *types.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Symbol] = *token
	return nil
}

func (m *memoryStorage) LoadToken(_ context.Context, symbol string) (*types.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	return &token, nil
}

func (m *memoryStorage) ListTokens(_ context.Context) ([]types.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Token, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *memoryStorage) SaveHolder(_ context.Context, holder *types.Holder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byWallet := m.holders[holder.TokenSymbol]
	if byWallet == nil {
		byWallet = make(map[string]types.Holder)
		m.holders[holder.TokenSymbol] = byWallet
	}
	byWallet[holder.Wallet] = *holder
	return nil
}

func (m *memoryStorage) LoadHolder(_ context.Context, symbol, wallet string) (*types.Holder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.holders[symbol][wallet]; ok {
		return &h, nil
	}
	return &types.Holder{TokenSymbol: symbol, Wallet: wallet}, nil
}

func (m *memoryStorage) ListHolders(_ context.Context, symbol string) ([]types.Holder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Holder, 0, len(m.holders[symbol]))
	for _, h := range m.holders[symbol] {
		if h.Balance > 0 {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wallet < out[j].Wallet })
	return out, nil
}

func (m *memoryStorage) AppendTrade(_ context.Context, trade *types.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, *trade)
	return nil
}

func (m *memoryStorage) ListTrades(_ context.Context, symbol string, limit, offset int) ([]types.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]types.Trade, 0)
	for i := len(m.trades) - 1; i >= 0; i-- { // newest first
		if m.trades[i].TokenSymbol == symbol {
			matched = append(matched, m.trades[i])
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memoryStorage) SaveFeeLedgerEntry(_ context.Context, entry *types.FeeLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger[entry.TokenSymbol] = *entry
	return nil
}

func (m *memoryStorage) LoadFeeLedgerEntry(_ context.Context, symbol string) (*types.FeeLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.ledger[symbol]; ok {
		return &e, nil
	}
	return &types.FeeLedgerEntry{TokenSymbol: symbol}, nil
}

func (m *memoryStorage) SaveRewardState(_ context.Context, state *types.RewardState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rewards[state.TokenSymbol] = *state
	return nil
}

func (m *memoryStorage) LoadRewardState(_ context.Context, symbol string) (*types.RewardState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rewards[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no reward state for %q", types.ErrTokenNotFound, symbol)
	}
	return &s, nil
}

func (m *memoryStorage) RunMigrations() error { return nil }

func (m *memoryStorage) Close() error { return nil }
