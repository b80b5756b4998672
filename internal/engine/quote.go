// internal/engine/quote.go
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yashastest/wybe-engine/internal/curve"
	"github.com/yashastest/wybe-engine/internal/types"
)

// Quote is a read-only pricing preview. Nothing is reserved: by the time a
// settlement runs, supply may have moved and the settled numbers can differ.
type Quote struct {
	TokenAmount uint64
	SolAmount   decimal.Decimal
	SpotPrice   decimal.Decimal
}

// SpotPrice returns the instantaneous curve price at the current supply.
func (e *Engine) SpotPrice(symbol string) (decimal.Decimal, error) {
	token, err := e.registry.Token(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return curve.Price(curve.ParamsForToken(&token), token.TotalSupply)
}

// QuoteBuy previews the cost of buying an exact token amount.
func (e *Engine) QuoteBuy(symbol string, tokenAmount uint64) (*Quote, error) {
	token, err := e.registry.Token(symbol)
	if err != nil {
		return nil, err
	}
	if tokenAmount == 0 {
		return nil, fmt.Errorf("%w: quote amount must be positive", types.ErrInvalidAmount)
	}
	params := curve.ParamsForToken(&token)
	cost, err := curve.Cost(params, token.TotalSupply, tokenAmount)
	if err != nil {
		return nil, err
	}
	spot, err := curve.Price(params, token.TotalSupply)
	if err != nil {
		return nil, err
	}
	return &Quote{TokenAmount: tokenAmount, SolAmount: cost, SpotPrice: spot}, nil
}

// QuoteSell previews the gross proceeds of selling an exact token amount.
// Fees are not deducted in the preview.
func (e *Engine) QuoteSell(symbol string, tokenAmount uint64) (*Quote, error) {
	token, err := e.registry.Token(symbol)
	if err != nil {
		return nil, err
	}
	if tokenAmount == 0 {
		return nil, fmt.Errorf("%w: quote amount must be positive", types.ErrInvalidAmount)
	}
	if tokenAmount > token.TotalSupply {
		return nil, fmt.Errorf("%w: cannot sell %d of %q, supply is %d",
			types.ErrInvalidAmount, tokenAmount, symbol, token.TotalSupply)
	}
	params := curve.ParamsForToken(&token)
	proceeds, err := curve.Cost(params, token.TotalSupply-tokenAmount, tokenAmount)
	if err != nil {
		return nil, err
	}
	spot, err := curve.Price(params, token.TotalSupply)
	if err != nil {
		return nil, err
	}
	return &Quote{TokenAmount: tokenAmount, SolAmount: proceeds, SpotPrice: spot}, nil
}

// MarketCap reports spot price times circulating supply for a token.
func (e *Engine) MarketCap(symbol string) (decimal.Decimal, error) {
	token, err := e.registry.Token(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return curve.MarketCap(curve.ParamsForToken(&token), token.TotalSupply)
}
