// internal/types/types.go
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurveType selects the pricing curve family for a token.
type CurveType string

const (
	CurveLinear      CurveType = "linear"
	CurveExponential CurveType = "exponential"
	CurveLogarithmic CurveType = "logarithmic"
	CurveSCurve      CurveType = "scurve"
)

// ParseCurveType validates a curve type string from config or storage.
func ParseCurveType(s string) (CurveType, bool) {
	ct := CurveType(s)
	switch ct {
	case CurveLinear, CurveExponential, CurveLogarithmic, CurveSCurve:
		return ct, true
	default:
		return "", false
	}
}

// Token is the canonical record for a launched token. The registry owns it;
// the settlement engine holds a transient reference during a single settlement.
type Token struct {
	Symbol           string
	Name             string
	Authority        string // creator wallet, the only wallet allowed to change fees or freeze
	CurveType        CurveType
	BasePrice        decimal.Decimal
	ScaleFactor      decimal.Decimal
	InflectionSupply decimal.Decimal // s-curve midpoint; ignored by other curve families
	TotalSupply      uint64
	CreatorFeeBps    uint32
	PlatformFeeBps   uint32
	IsFrozen         bool
	CreatedAt        time.Time
}

// Holder is one (token, wallet) balance. Sum of balances for a token must
// equal the token's TotalSupply after every operation.
type Holder struct {
	TokenSymbol string
	Wallet      string
	Balance     uint64
}

// TradeKind distinguishes the settlement paths.
type TradeKind string

const (
	TradeMint TradeKind = "mint"
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
	TradeSwap TradeKind = "swap" // direct holder-to-holder transfer at an agreed price
)

// Trade is an immutable audit record, never mutated after creation.
type Trade struct {
	ID           string
	TokenSymbol  string
	Kind         TradeKind
	Counterparty string // buyer for buy/mint, seller for sell; for swaps the buyer side
	SecondParty  string // seller side of a swap, empty otherwise
	TokenAmount  uint64
	QuotedPrice  decimal.Decimal // unit price after the operation
	GrossAmount  decimal.Decimal // SOL moved before fee split
	CreatorFee   decimal.Decimal
	PlatformFee  decimal.Decimal
	TxSignature  string
	Timestamp    time.Time
}

// FeeLedgerEntry tracks fee balances accumulated for one token. Only the
// settlement engine credits it and only a claim debits it.
type FeeLedgerEntry struct {
	TokenSymbol             string
	AccumulatedCreatorFees  decimal.Decimal
	AccumulatedPlatformFees decimal.Decimal
	ClaimedTotal            decimal.Decimal
	LastClaimAt             *time.Time
}

// RewardType is the creator reward tier.
type RewardType string

const (
	RewardPending  RewardType = "pending"
	RewardPremium  RewardType = "premium"  // 40% of trading fees, weekly claim
	RewardStandard RewardType = "standard" // 20% of trading fees, one-time claim
)

// RewardPhase is the observable state of the milestone state machine.
type RewardPhase string

const (
	PhasePending             RewardPhase = "pending"
	PhaseSustainWindowActive RewardPhase = "sustain_window_active"
	PhasePremiumActive       RewardPhase = "premium_active"
	PhaseStandardAssigned    RewardPhase = "standard_assigned"
)

// RewardState tracks one token's progress toward the creator reward milestone.
// Created at launch with rewardType pending; transitions are one-directional
// except for the sustain-window reset back to pending.
type RewardState struct {
	TokenSymbol         string
	LaunchTime          time.Time
	First50kTime        *time.Time // first instant market cap crossed the threshold
	MilestoneAchievedAt *time.Time // threshold held continuously for the sustain window
	RewardType          RewardType
	Phase               RewardPhase
	LastFeeClaim        *time.Time
	LastMarketCap       decimal.Decimal // most recent observed sample, for claim gating
	LastObservedAt      time.Time
}

// MarketCapSample is one observation from the market-cap feed collaborator.
type MarketCapSample struct {
	TokenSymbol string
	MarketCap   decimal.Decimal
	Timestamp   time.Time
}
