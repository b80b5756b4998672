// internal/registry/registry.go
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/curve"
	"github.com/yashastest/wybe-engine/internal/types"
)

const (
	maxNameLen   = 32
	maxSymbolLen = 8
)

// CreateTokenRequest carries the launch parameters for a new token.
type CreateTokenRequest struct {
	Symbol           string
	Name             string
	Authority        string
	CurveType        types.CurveType
	BasePrice        decimal.Decimal
	ScaleFactor      decimal.Decimal
	InflectionSupply decimal.Decimal
	CreatorFeeBps    uint32
	PlatformFeeBps   uint32
}

// Registry is the in-process source of truth for Token and Holder records
// between calls to the persistence collaborator. All mutation goes through
// its methods; the settlement engine reads and writes under the engine's
// per-token settlement lock.
type Registry struct {
	mu        sync.RWMutex
	tokens    map[string]*types.Token
	holders   map[string]map[string]uint64 // symbol -> wallet -> balance
	feeCapBps uint32
	logger    *zap.Logger
}

// New builds an empty registry. maxCombinedFeeBps of 0 falls back to the
// platform cap of 2000 (20%).
func New(maxCombinedFeeBps uint32, logger *zap.Logger) *Registry {
	if maxCombinedFeeBps == 0 {
		maxCombinedFeeBps = 2000
	}
	return &Registry{
		tokens:    make(map[string]*types.Token),
		holders:   make(map[string]map[string]uint64),
		feeCapBps: maxCombinedFeeBps,
		logger:    logger.Named("registry"),
	}
}

// ValidateWallet checks that the wallet is a well-formed base58 public key.
func ValidateWallet(wallet string) error {
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		return fmt.Errorf("%w: %q: %v", types.ErrInvalidWallet, wallet, err)
	}
	return nil
}

// CreateToken validates and registers a new token with zero supply.
func (r *Registry) CreateToken(req CreateTokenRequest, now time.Time) (*types.Token, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", types.ErrInvalidTokenName)
	}
	if len(req.Name) > maxNameLen {
		return nil, fmt.Errorf("%w: name %q longer than %d characters", types.ErrInvalidTokenName, req.Name, maxNameLen)
	}
	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol cannot be empty", types.ErrInvalidTokenSymbol)
	}
	if len(req.Symbol) > maxSymbolLen {
		return nil, fmt.Errorf("%w: symbol %q longer than %d characters", types.ErrInvalidTokenSymbol, req.Symbol, maxSymbolLen)
	}
	if err := ValidateWallet(req.Authority); err != nil {
		return nil, err
	}
	if err := r.checkFeeCap(req.CreatorFeeBps, req.PlatformFeeBps); err != nil {
		return nil, err
	}
	params := curve.Params{
		Type:             req.CurveType,
		BasePrice:        req.BasePrice,
		ScaleFactor:      req.ScaleFactor,
		InflectionSupply: req.InflectionSupply,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tokens[req.Symbol]; exists {
		return nil, fmt.Errorf("%w: %q", types.ErrTokenExists, req.Symbol)
	}

	token := &types.Token{
		Symbol:           req.Symbol,
		Name:             req.Name,
		Authority:        req.Authority,
		CurveType:        req.CurveType,
		BasePrice:        req.BasePrice,
		ScaleFactor:      req.ScaleFactor,
		InflectionSupply: req.InflectionSupply,
		CreatorFeeBps:    req.CreatorFeeBps,
		PlatformFeeBps:   req.PlatformFeeBps,
		CreatedAt:        now,
	}
	r.tokens[req.Symbol] = token
	r.holders[req.Symbol] = make(map[string]uint64)

	r.logger.Info("Token registered",
		zap.String("symbol", token.Symbol),
		zap.String("authority", token.Authority),
		zap.String("curve", string(token.CurveType)),
		zap.String("base_price", token.BasePrice.String()))
	cp := *token
	return &cp, nil
}

// Restore seeds a token and its holder balances from persistence.
func (r *Registry) Restore(token types.Token, holders []types.Holder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := token
	r.tokens[token.Symbol] = &cp
	balances := make(map[string]uint64, len(holders))
	for _, h := range holders {
		if h.Balance > 0 {
			balances[h.Wallet] = h.Balance
		}
	}
	r.holders[token.Symbol] = balances
}

// Token returns a copy of the token record.
func (r *Registry) Token(symbol string) (types.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[symbol]
	if !ok {
		return types.Token{}, fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	return *token, nil
}

// Symbols lists all registered token symbols in lexical order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tokens))
	for symbol := range r.tokens {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Balance returns a wallet's holding of a token. Unknown wallets hold zero.
func (r *Registry) Balance(symbol, wallet string) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	balances, ok := r.holders[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	return balances[wallet], nil
}

// Holders returns the non-zero holder records for a token.
func (r *Registry) Holders(symbol string) ([]types.Holder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	balances, ok := r.holders[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	out := make([]types.Holder, 0, len(balances))
	for wallet, bal := range balances {
		out = append(out, types.Holder{TokenSymbol: symbol, Wallet: wallet, Balance: bal})
	}
	return out, nil
}

// UpdateFees changes the fee split. Only the token authority may call it, the
// token must not be frozen, and the combined value must stay under the cap.
// On any failure the stored values are unchanged.
func (r *Registry) UpdateFees(symbol, callerWallet string, creatorFeeBps, platformFeeBps uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[symbol]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	if token.IsFrozen {
		return fmt.Errorf("%w: %q", types.ErrAccountFrozen, symbol)
	}
	if callerWallet != token.Authority {
		return fmt.Errorf("%w: wallet %s is not the authority of %q", types.ErrUnauthorized, callerWallet, symbol)
	}
	if err := r.checkFeeCap(creatorFeeBps, platformFeeBps); err != nil {
		return err
	}

	token.CreatorFeeBps = creatorFeeBps
	token.PlatformFeeBps = platformFeeBps
	r.logger.Info("Token fees updated",
		zap.String("symbol", symbol),
		zap.Uint32("creator_fee_bps", creatorFeeBps),
		zap.Uint32("platform_fee_bps", platformFeeBps))
	return nil
}

// Freeze halts all settlement on the token. Authority only.
func (r *Registry) Freeze(symbol, callerWallet string) error {
	return r.setFrozen(symbol, callerWallet, true)
}

// Unfreeze re-enables settlement. Authority only.
func (r *Registry) Unfreeze(symbol, callerWallet string) error {
	return r.setFrozen(symbol, callerWallet, false)
}

func (r *Registry) setFrozen(symbol, callerWallet string, frozen bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[symbol]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	if callerWallet != token.Authority {
		return fmt.Errorf("%w: wallet %s is not the authority of %q", types.ErrUnauthorized, callerWallet, symbol)
	}
	if frozen && token.IsFrozen {
		return fmt.Errorf("%w: %q", types.ErrAlreadyFrozen, symbol)
	}
	if !frozen && !token.IsFrozen {
		return fmt.Errorf("%w: %q", types.ErrNotFrozen, symbol)
	}

	token.IsFrozen = frozen
	r.logger.Warn("Token freeze state changed",
		zap.String("symbol", symbol),
		zap.Bool("frozen", frozen))
	return nil
}

// MintTo increases the wallet's balance and the total supply by amount.
// Validated for overflow before anything is written, so the conservation law
// (sum of balances == total supply) holds whether or not it succeeds.
func (r *Registry) MintTo(symbol, wallet string, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[symbol]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	balances := r.holders[symbol]

	newSupply, err := checkedAdd(token.TotalSupply, amount)
	if err != nil {
		return fmt.Errorf("total supply of %q: %w", symbol, err)
	}
	newBalance, err := checkedAdd(balances[wallet], amount)
	if err != nil {
		return fmt.Errorf("balance of %s in %q: %w", wallet, symbol, err)
	}

	token.TotalSupply = newSupply
	balances[wallet] = newBalance
	return nil
}

// BurnFrom decreases the wallet's balance and the total supply by amount.
func (r *Registry) BurnFrom(symbol, wallet string, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[symbol]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	balances := r.holders[symbol]

	if balances[wallet] < amount {
		return fmt.Errorf("%w: wallet %s holds %d of %q, needs %d",
			types.ErrInsufficientBalance, wallet, balances[wallet], symbol, amount)
	}
	if token.TotalSupply < amount {
		return fmt.Errorf("%w: total supply %d of %q below burn of %d",
			types.ErrArithmeticOverflow, token.TotalSupply, symbol, amount)
	}

	token.TotalSupply -= amount
	if balances[wallet] == amount {
		delete(balances, wallet)
	} else {
		balances[wallet] -= amount
	}
	return nil
}

// Transfer moves amount between two wallets without touching the supply.
func (r *Registry) Transfer(symbol, from, to string, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount == 0 {
		return fmt.Errorf("%w: transfer amount must be positive", types.ErrInvalidAmount)
	}
	if from == to {
		return fmt.Errorf("%w: transfer from %s to itself", types.ErrInvalidAmount, from)
	}
	if _, ok := r.tokens[symbol]; !ok {
		return fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	balances := r.holders[symbol]

	if balances[from] < amount {
		return fmt.Errorf("%w: wallet %s holds %d of %q, needs %d",
			types.ErrInsufficientBalance, from, balances[from], symbol, amount)
	}
	newTo, err := checkedAdd(balances[to], amount)
	if err != nil {
		return fmt.Errorf("balance of %s in %q: %w", to, symbol, err)
	}

	if balances[from] == amount {
		delete(balances, from)
	} else {
		balances[from] -= amount
	}
	balances[to] = newTo
	return nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a > ^uint64(0)-b {
		return 0, fmt.Errorf("%w: %d + %d", types.ErrArithmeticOverflow, a, b)
	}
	return a + b, nil
}

func (r *Registry) checkFeeCap(creatorFeeBps, platformFeeBps uint32) error {
	combined := uint64(creatorFeeBps) + uint64(platformFeeBps)
	if combined > uint64(r.feeCapBps) {
		return fmt.Errorf("%w: %d bps exceeds cap of %d", types.ErrCombinedFeeTooHigh, combined, r.feeCapBps)
	}
	return nil
}
