// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/yashastest/wybe-engine/internal/types"
)

// Storage is the persistence collaborator boundary. Every call is fallible
// and retryable by the caller; the engine never assumes success and never
// retries financial writes itself.
type Storage interface {
	// Tokens
	SaveToken(ctx context.Context, token *types.Token) error
	LoadToken(ctx context.Context, symbol string) (*types.Token, error)
	ListTokens(ctx context.Context) ([]types.Token, error)

	// Holders
	SaveHolder(ctx context.Context, holder *types.Holder) error
	LoadHolder(ctx context.Context, symbol, wallet string) (*types.Holder, error)
	ListHolders(ctx context.Context, symbol string) ([]types.Holder, error)

	// Trades (append-only audit log)
	AppendTrade(ctx context.Context, trade *types.Trade) error
	ListTrades(ctx context.Context, symbol string, limit, offset int) ([]types.Trade, error)

	// Fee ledger
	SaveFeeLedgerEntry(ctx context.Context, entry *types.FeeLedgerEntry) error
	LoadFeeLedgerEntry(ctx context.Context, symbol string) (*types.FeeLedgerEntry, error)

	// Reward state
	SaveRewardState(ctx context.Context, state *types.RewardState) error
	LoadRewardState(ctx context.Context, symbol string) (*types.RewardState, error)

	RunMigrations() error
	Close() error
}
