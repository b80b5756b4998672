// internal/events/types.go
package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yashastest/wybe-engine/internal/types"
)

// EventType represents the type of event.
type EventType string

const (
	// Token lifecycle events
	TokenInitialized EventType = "token.initialized"
	FeesUpdated      EventType = "token.fees_updated"
	AccountFrozen    EventType = "token.frozen"
	AccountUnfrozen  EventType = "token.unfrozen"

	// Settlement events
	TradeExecuted EventType = "trade.executed"

	// Reward events
	RewardTierChanged EventType = "reward.tier_changed"
	FeesClaimed       EventType = "reward.fees_claimed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TokenInitializedEvent is emitted when a token and its curve are registered.
type TokenInitializedEvent struct {
	BaseEvent
	TokenSymbol string
	Authority   string
	CurveType   types.CurveType
	BasePrice   decimal.Decimal
}

// NewTokenInitializedEvent builds the registration event for a token.
func NewTokenInitializedEvent(token *types.Token) *TokenInitializedEvent {
	return &TokenInitializedEvent{
		BaseEvent:   newBase(TokenInitialized),
		TokenSymbol: token.Symbol,
		Authority:   token.Authority,
		CurveType:   token.CurveType,
		BasePrice:   token.BasePrice,
	}
}

// FeesUpdatedEvent is emitted when the authority changes the fee split.
type FeesUpdatedEvent struct {
	BaseEvent
	TokenSymbol    string
	CreatorFeeBps  uint32
	PlatformFeeBps uint32
}

func NewFeesUpdatedEvent(symbol string, creatorFeeBps, platformFeeBps uint32) *FeesUpdatedEvent {
	return &FeesUpdatedEvent{
		BaseEvent:      newBase(FeesUpdated),
		TokenSymbol:    symbol,
		CreatorFeeBps:  creatorFeeBps,
		PlatformFeeBps: platformFeeBps,
	}
}

// FreezeChangedEvent is emitted when trading on a token is frozen or resumed.
type FreezeChangedEvent struct {
	BaseEvent
	TokenSymbol string
	Frozen      bool
}

func NewFreezeChangedEvent(symbol string, frozen bool) *FreezeChangedEvent {
	t := AccountFrozen
	if !frozen {
		t = AccountUnfrozen
	}
	return &FreezeChangedEvent{BaseEvent: newBase(t), TokenSymbol: symbol, Frozen: frozen}
}

// TradeExecutedEvent is emitted after a settlement is applied and persisted.
type TradeExecutedEvent struct {
	BaseEvent
	Trade types.Trade
}

func NewTradeExecutedEvent(trade types.Trade) *TradeExecutedEvent {
	return &TradeExecutedEvent{BaseEvent: newBase(TradeExecuted), Trade: trade}
}

// RewardTierChangedEvent is emitted on every reward phase transition.
type RewardTierChangedEvent struct {
	BaseEvent
	TokenSymbol string
	FromPhase   types.RewardPhase
	ToPhase     types.RewardPhase
	RewardType  types.RewardType
}

func NewRewardTierChangedEvent(symbol string, from, to types.RewardPhase, rt types.RewardType) *RewardTierChangedEvent {
	return &RewardTierChangedEvent{
		BaseEvent:   newBase(RewardTierChanged),
		TokenSymbol: symbol,
		FromPhase:   from,
		ToPhase:     to,
		RewardType:  rt,
	}
}

// FeesClaimedEvent is emitted after a creator fee claim pays out.
type FeesClaimedEvent struct {
	BaseEvent
	TokenSymbol string
	Wallet      string
	Amount      decimal.Decimal
}

func NewFeesClaimedEvent(symbol, wallet string, amount decimal.Decimal) *FeesClaimedEvent {
	return &FeesClaimedEvent{
		BaseEvent:   newBase(FeesClaimed),
		TokenSymbol: symbol,
		Wallet:      wallet,
		Amount:      amount,
	}
}
