// internal/reward/state_machine.go
package reward

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/types"
)

// Config holds the milestone windows. Zero values fall back to the platform
// defaults ($50k held 48h, reached within 4 days of launch).
type Config struct {
	MarketCapThreshold decimal.Decimal
	SustainWindow      time.Duration
	MilestoneDeadline  time.Duration
}

const (
	defaultSustainWindow     = 48 * time.Hour
	defaultMilestoneDeadline = 4 * 24 * time.Hour
)

var defaultMarketCapThreshold = decimal.NewFromInt(50000)

func (c *Config) applyDefaults() {
	if !c.MarketCapThreshold.IsPositive() {
		c.MarketCapThreshold = defaultMarketCapThreshold
	}
	if c.SustainWindow <= 0 {
		c.SustainWindow = defaultSustainWindow
	}
	if c.MilestoneDeadline <= 0 {
		c.MilestoneDeadline = defaultMilestoneDeadline
	}
}

// Transition describes one phase change produced by an observation.
type Transition struct {
	TokenSymbol string
	From        types.RewardPhase
	To          types.RewardPhase
	RewardType  types.RewardType
	At          time.Time
}

// StateMachine owns the per-token RewardState records and advances them on
// market-cap observations. It reads market caps by value and never touches
// token or holder records.
type StateMachine struct {
	mu     sync.RWMutex
	states map[string]*types.RewardState
	cfg    Config
	logger *zap.Logger
}

func NewStateMachine(cfg Config, logger *zap.Logger) *StateMachine {
	cfg.applyDefaults()
	return &StateMachine{
		states: make(map[string]*types.RewardState),
		cfg:    cfg,
		logger: logger.Named("reward-machine"),
	}
}

// Track registers a token at launch. All milestone fields start empty and the
// reward type starts pending.
func (m *StateMachine) Track(tokenSymbol string, launchTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.states[tokenSymbol]; exists {
		return
	}
	m.states[tokenSymbol] = &types.RewardState{
		TokenSymbol: tokenSymbol,
		LaunchTime:  launchTime,
		RewardType:  types.RewardPending,
		Phase:       types.PhasePending,
	}
}

// Restore seeds a state from persistence. Intended for startup only.
func (m *StateMachine) Restore(state types.RewardState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := state
	m.states[state.TokenSymbol] = &cp
}

// RewardStatus returns a copy of the token's reward state. Satisfies
// ledger.RewardInfo.
func (m *StateMachine) RewardStatus(tokenSymbol string) (types.RewardState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[tokenSymbol]
	if !ok {
		return types.RewardState{}, fmt.Errorf("%w: no reward state for %q", types.ErrTokenNotFound, tokenSymbol)
	}
	return *state, nil
}

// RecordFeeClaim stamps the claim time used for the premium weekly window and
// the standard one-shot gate. Called by the claim path after the ledger debit.
func (m *StateMachine) RecordFeeClaim(tokenSymbol string, asOf time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[tokenSymbol]
	if !ok {
		return fmt.Errorf("%w: no reward state for %q", types.ErrTokenNotFound, tokenSymbol)
	}
	claimedAt := asOf
	state.LastFeeClaim = &claimedAt
	return nil
}

// Evaluate advances the state machine with one market-cap sample and returns
// the transition it caused, if any. Samples may arrive from a stale snapshot;
// the windows are measured in hours and days, so eventual consistency is fine.
func (m *StateMachine) Evaluate(sample types.MarketCapSample) (*Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[sample.TokenSymbol]
	if !ok {
		return nil, fmt.Errorf("%w: no reward state for %q", types.ErrTokenNotFound, sample.TokenSymbol)
	}

	state.LastMarketCap = sample.MarketCap
	state.LastObservedAt = sample.Timestamp

	above := sample.MarketCap.GreaterThanOrEqual(m.cfg.MarketCapThreshold)
	sinceLaunch := sample.Timestamp.Sub(state.LaunchTime)

	switch state.Phase {
	case types.PhasePending:
		if above && sinceLaunch <= m.cfg.MilestoneDeadline {
			crossedAt := sample.Timestamp
			state.First50kTime = &crossedAt
			return m.advance(state, types.PhaseSustainWindowActive, state.RewardType, sample.Timestamp), nil
		}
		if sinceLaunch > m.cfg.MilestoneDeadline {
			// Deadline elapsed without completing the sustain window: the
			// one-time standard tier is assigned. This also catches tokens
			// whose market cap re-crosses the threshold too late.
			state.RewardType = types.RewardStandard
			return m.advance(state, types.PhaseStandardAssigned, types.RewardStandard, sample.Timestamp), nil
		}
		return nil, nil

	case types.PhaseSustainWindowActive:
		if !above {
			// Dropped below the threshold before the sustain window closed:
			// the clock resets and restarts on the next crossing.
			state.First50kTime = nil
			return m.advance(state, types.PhasePending, state.RewardType, sample.Timestamp), nil
		}
		if state.First50kTime != nil && sample.Timestamp.Sub(*state.First50kTime) >= m.cfg.SustainWindow {
			achievedAt := sample.Timestamp
			state.MilestoneAchievedAt = &achievedAt
			state.RewardType = types.RewardPremium
			return m.advance(state, types.PhasePremiumActive, types.RewardPremium, sample.Timestamp), nil
		}
		return nil, nil

	default:
		// PremiumActive and StandardAssigned are terminal for the tier; a
		// premium token below the threshold only has its weekly claim paused.
		return nil, nil
	}
}

func (m *StateMachine) advance(state *types.RewardState, to types.RewardPhase, rt types.RewardType, at time.Time) *Transition {
	from := state.Phase
	state.Phase = to
	m.logger.Info("Reward phase transition",
		zap.String("token", state.TokenSymbol),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reward_type", string(rt)),
		zap.Time("at", at))
	return &Transition{
		TokenSymbol: state.TokenSymbol,
		From:        from,
		To:          to,
		RewardType:  rt,
		At:          at,
	}
}
