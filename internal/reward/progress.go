// internal/reward/progress.go
package reward

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yashastest/wybe-engine/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Progress is a display snapshot of one token's milestone standing. All
// fields are derived; nothing here feeds back into the state machine.
type Progress struct {
	TokenSymbol     string
	Phase           types.RewardPhase
	RewardType      types.RewardType
	MarketCap       decimal.Decimal
	Target          decimal.Decimal
	PercentOfTarget decimal.Decimal // 0-100, capped

	// DeadlineRemaining is the time left to first cross the target. Zero once
	// the deadline has passed or the phase has moved on.
	DeadlineRemaining time.Duration

	// SustainRemaining is the hold time still needed above the target. Zero
	// unless the sustain window is running.
	SustainRemaining time.Duration
}

// Progress reports where a token stands against the milestone at asOf.
func (m *StateMachine) Progress(tokenSymbol string, asOf time.Time) (Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[tokenSymbol]
	if !ok {
		return Progress{}, fmt.Errorf("%w: no reward state for %q", types.ErrTokenNotFound, tokenSymbol)
	}

	p := Progress{
		TokenSymbol: tokenSymbol,
		Phase:       state.Phase,
		RewardType:  state.RewardType,
		MarketCap:   state.LastMarketCap,
		Target:      m.cfg.MarketCapThreshold,
	}

	percent := state.LastMarketCap.Mul(hundred).DivRound(m.cfg.MarketCapThreshold, 2)
	if percent.GreaterThan(hundred) {
		percent = hundred
	}
	if percent.IsNegative() {
		percent = decimal.Zero
	}
	p.PercentOfTarget = percent

	if state.Phase == types.PhasePending {
		if remaining := m.cfg.MilestoneDeadline - asOf.Sub(state.LaunchTime); remaining > 0 {
			p.DeadlineRemaining = remaining
		}
	}
	if state.Phase == types.PhaseSustainWindowActive && state.First50kTime != nil {
		if remaining := m.cfg.SustainWindow - asOf.Sub(*state.First50kTime); remaining > 0 {
			p.SustainRemaining = remaining
		}
	}
	return p, nil
}
