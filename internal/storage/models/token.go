// internal/storage/models/token.go
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yashastest/wybe-engine/internal/types"
)

type Token struct {
	BaseModel
	Symbol           string          `gorm:"unique;not null;type:varchar(8)"`
	Name             string          `gorm:"not null;type:varchar(32)"`
	Authority        string          `gorm:"index;not null;type:varchar(44)"`
	CurveType        string          `gorm:"not null;type:varchar(20)"`
	BasePrice        decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	ScaleFactor      decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	InflectionSupply decimal.Decimal `gorm:"type:numeric(30,12)"`
	TotalSupply      uint64          `gorm:"not null;default:0"`
	CreatorFeeBps    uint32          `gorm:"not null"`
	PlatformFeeBps   uint32          `gorm:"not null"`
	IsFrozen         bool            `gorm:"not null;default:false"`
	LaunchedAt       time.Time       `gorm:"not null"`
}

// FromDomain maps the registry record onto the persisted row.
func (t *Token) FromDomain(src *types.Token) {
	t.Symbol = src.Symbol
	t.Name = src.Name
	t.Authority = src.Authority
	t.CurveType = string(src.CurveType)
	t.BasePrice = src.BasePrice
	t.ScaleFactor = src.ScaleFactor
	t.InflectionSupply = src.InflectionSupply
	t.TotalSupply = src.TotalSupply
	t.CreatorFeeBps = src.CreatorFeeBps
	t.PlatformFeeBps = src.PlatformFeeBps
	t.IsFrozen = src.IsFrozen
	t.LaunchedAt = src.CreatedAt
}

// ToDomain maps the persisted row back to the registry record.
func (t *Token) ToDomain() types.Token {
	return types.Token{
		Symbol:           t.Symbol,
		Name:             t.Name,
		Authority:        t.Authority,
		CurveType:        types.CurveType(t.CurveType),
		BasePrice:        t.BasePrice,
		ScaleFactor:      t.ScaleFactor,
		InflectionSupply: t.InflectionSupply,
		TotalSupply:      t.TotalSupply,
		CreatorFeeBps:    t.CreatorFeeBps,
		PlatformFeeBps:   t.PlatformFeeBps,
		IsFrozen:         t.IsFrozen,
		CreatedAt:        t.LaunchedAt,
	}
}

type Holder struct {
	BaseModel
	TokenSymbol string `gorm:"uniqueIndex:idx_holder_token_wallet;not null;type:varchar(8)"`
	Wallet      string `gorm:"uniqueIndex:idx_holder_token_wallet;not null;type:varchar(44)"`
	Balance     uint64 `gorm:"not null;default:0"`
}

func (h *Holder) FromDomain(src *types.Holder) {
	h.TokenSymbol = src.TokenSymbol
	h.Wallet = src.Wallet
	h.Balance = src.Balance
}

func (h *Holder) ToDomain() types.Holder {
	return types.Holder{TokenSymbol: h.TokenSymbol, Wallet: h.Wallet, Balance: h.Balance}
}
