// internal/storage/models/trade.go
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yashastest/wybe-engine/internal/types"
)

// Trade rows are append-only: settled trades are never updated or deleted.
type Trade struct {
	BaseModel
	TradeID      string          `gorm:"unique;not null;type:varchar(36)"`
	TokenSymbol  string          `gorm:"index;not null;type:varchar(8)"`
	Kind         string          `gorm:"not null;type:varchar(10)"`
	Counterparty string          `gorm:"index;not null;type:varchar(44)"`
	SecondParty  string          `gorm:"type:varchar(44)"`
	TokenAmount  uint64          `gorm:"not null"`
	QuotedPrice  decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	GrossAmount  decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	CreatorFee   decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	PlatformFee  decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	TxSignature  string          `gorm:"type:varchar(88)"`
	ExecutedAt   time.Time       `gorm:"index;not null"`
}

func (t *Trade) FromDomain(src *types.Trade) {
	t.TradeID = src.ID
	t.TokenSymbol = src.TokenSymbol
	t.Kind = string(src.Kind)
	t.Counterparty = src.Counterparty
	t.SecondParty = src.SecondParty
	t.TokenAmount = src.TokenAmount
	t.QuotedPrice = src.QuotedPrice
	t.GrossAmount = src.GrossAmount
	t.CreatorFee = src.CreatorFee
	t.PlatformFee = src.PlatformFee
	t.TxSignature = src.TxSignature
	t.ExecutedAt = src.Timestamp
}

func (t *Trade) ToDomain() types.Trade {
	return types.Trade{
		ID:           t.TradeID,
		TokenSymbol:  t.TokenSymbol,
		Kind:         types.TradeKind(t.Kind),
		Counterparty: t.Counterparty,
		SecondParty:  t.SecondParty,
		TokenAmount:  t.TokenAmount,
		QuotedPrice:  t.QuotedPrice,
		GrossAmount:  t.GrossAmount,
		CreatorFee:   t.CreatorFee,
		PlatformFee:  t.PlatformFee,
		TxSignature:  t.TxSignature,
		Timestamp:    t.ExecutedAt,
	}
}
