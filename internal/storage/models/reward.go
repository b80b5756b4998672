// internal/storage/models/reward.go
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yashastest/wybe-engine/internal/types"
)

type FeeLedgerEntry struct {
	BaseModel
	TokenSymbol             string          `gorm:"unique;not null;type:varchar(8)"`
	AccumulatedCreatorFees  decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	AccumulatedPlatformFees decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	ClaimedTotal            decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	LastClaimAt             *time.Time
}

func (e *FeeLedgerEntry) FromDomain(src *types.FeeLedgerEntry) {
	e.TokenSymbol = src.TokenSymbol
	e.AccumulatedCreatorFees = src.AccumulatedCreatorFees
	e.AccumulatedPlatformFees = src.AccumulatedPlatformFees
	e.ClaimedTotal = src.ClaimedTotal
	e.LastClaimAt = src.LastClaimAt
}

func (e *FeeLedgerEntry) ToDomain() types.FeeLedgerEntry {
	return types.FeeLedgerEntry{
		TokenSymbol:             e.TokenSymbol,
		AccumulatedCreatorFees:  e.AccumulatedCreatorFees,
		AccumulatedPlatformFees: e.AccumulatedPlatformFees,
		ClaimedTotal:            e.ClaimedTotal,
		LastClaimAt:             e.LastClaimAt,
	}
}

type RewardState struct {
	BaseModel
	TokenSymbol         string          `gorm:"unique;not null;type:varchar(8)"`
	LaunchTime          time.Time       `gorm:"not null"`
	First50kTime        *time.Time
	MilestoneAchievedAt *time.Time
	RewardType          string          `gorm:"not null;type:varchar(10)"`
	Phase               string          `gorm:"not null;type:varchar(25)"`
	LastFeeClaim        *time.Time
	LastMarketCap       decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	LastObservedAt      time.Time
}

func (s *RewardState) FromDomain(src *types.RewardState) {
	s.TokenSymbol = src.TokenSymbol
	s.LaunchTime = src.LaunchTime
	s.First50kTime = src.First50kTime
	s.MilestoneAchievedAt = src.MilestoneAchievedAt
	s.RewardType = string(src.RewardType)
	s.Phase = string(src.Phase)
	s.LastFeeClaim = src.LastFeeClaim
	s.LastMarketCap = src.LastMarketCap
	s.LastObservedAt = src.LastObservedAt
}

func (s *RewardState) ToDomain() types.RewardState {
	return types.RewardState{
		TokenSymbol:         s.TokenSymbol,
		LaunchTime:          s.LaunchTime,
		First50kTime:        s.First50kTime,
		MilestoneAchievedAt: s.MilestoneAchievedAt,
		RewardType:          types.RewardType(s.RewardType),
		Phase:               types.RewardPhase(s.Phase),
		LastFeeClaim:        s.LastFeeClaim,
		LastMarketCap:       s.LastMarketCap,
		LastObservedAt:      s.LastObservedAt,
	}
}
