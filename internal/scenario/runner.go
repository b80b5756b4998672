// internal/scenario/runner.go
package scenario

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yashastest/wybe-engine/internal/engine"
	"github.com/yashastest/wybe-engine/internal/registry"
)

// Runner executes a parsed scenario against the settlement engine. Steps run
// in file order; a failed step logs and continues so one rejected trade does
// not abort the rest of the script.
type Runner struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewRunner(eng *engine.Engine, logger *zap.Logger) *Runner {
	return &Runner{engine: eng, logger: logger.Named("scenario-runner")}
}

// Run launches every token, then executes every step.
func (r *Runner) Run(ctx context.Context, sc *Scenario) error {
	for _, launch := range sc.Tokens {
		_, err := r.engine.InitializeToken(ctx, registry.CreateTokenRequest{
			Symbol:           launch.Symbol,
			Name:             launch.Name,
			Authority:        launch.Authority,
			CurveType:        launch.CurveType,
			BasePrice:        launch.BasePrice,
			ScaleFactor:      launch.ScaleFactor,
			InflectionSupply: launch.InflectionSupply,
			CreatorFeeBps:    launch.CreatorFeeBps,
			PlatformFeeBps:   launch.PlatformFeeBps,
		})
		if err != nil {
			return fmt.Errorf("launching token %q: %w", launch.Symbol, err)
		}
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStep(ctx, step); err != nil {
			r.logger.Warn("Step failed",
				zap.Int("step", i),
				zap.String("token", step.Token),
				zap.String("operation", string(step.Operation)),
				zap.Error(err))
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	switch step.Operation {
	case OperationMint:
		_, err := r.engine.Mint(ctx, step.Token, step.Amount, step.Wallet)
		return err
	case OperationBuy:
		_, err := r.engine.Buy(ctx, step.Token, step.Wallet, step.Amount)
		return err
	case OperationBuyBudget:
		_, err := r.engine.BuyWithBudget(ctx, step.Token, step.Wallet, step.Budget)
		return err
	case OperationSell:
		_, err := r.engine.Sell(ctx, step.Token, step.Wallet, step.Amount)
		return err
	case OperationSwap:
		_, err := r.engine.ExecuteTrade(ctx, step.Token, step.Wallet, step.Counterparty, step.Amount, step.Price)
		return err
	case OperationClaim:
		_, err := r.engine.ClaimCreatorFees(ctx, step.Token, step.Wallet, time.Now())
		return err
	case OperationFreeze:
		return r.engine.Freeze(ctx, step.Token, step.Wallet)
	case OperationUnfreeze:
		return r.engine.Unfreeze(ctx, step.Token, step.Wallet)
	case OperationUpdateFees:
		return r.engine.UpdateFees(ctx, step.Token, step.Wallet, step.CreatorFeeBps, step.PlatformFeeBps)
	default:
		return fmt.Errorf("unsupported operation: %q", step.Operation)
	}
}
