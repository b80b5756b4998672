// internal/curve/curve.go
package curve

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/yashastest/wybe-engine/internal/types"
)

// Settled amounts are computed in decimal arithmetic end to end; float64 is
// used only by display helpers. Quotes are rounded to quotePrecision places
// when returned to callers.
const (
	quotePrecision = 12 // lamport-level resolution for SOL amounts
	taylorPrec     = 24 // series precision for exp/ln evaluation
)

// scurveLift caps the s-curve price at (1 + scurveLift) * basePrice once the
// curve flattens past its inflection supply.
var scurveLift = decimal.NewFromInt(4)

// Params fully describes one token's pricing curve.
type Params struct {
	Type             types.CurveType
	BasePrice        decimal.Decimal
	ScaleFactor      decimal.Decimal
	InflectionSupply decimal.Decimal // s-curve only
}

// ParamsForToken extracts curve parameters from a token record.
func ParamsForToken(t *types.Token) Params {
	return Params{
		Type:             t.CurveType,
		BasePrice:        t.BasePrice,
		ScaleFactor:      t.ScaleFactor,
		InflectionSupply: t.InflectionSupply,
	}
}

// Validate rejects parameter sets the curve formulas cannot price.
func (p Params) Validate() error {
	if _, ok := types.ParseCurveType(string(p.Type)); !ok {
		return fmt.Errorf("%w: unknown curve type %q", types.ErrInvalidCurveParameters, p.Type)
	}
	if !p.BasePrice.IsPositive() {
		return fmt.Errorf("%w: base price %s must be positive", types.ErrInvalidCurveParameters, p.BasePrice)
	}
	if !p.ScaleFactor.IsPositive() {
		return fmt.Errorf("%w: scale factor %s must be positive", types.ErrInvalidCurveParameters, p.ScaleFactor)
	}
	if p.Type == types.CurveSCurve && !p.InflectionSupply.IsPositive() {
		return fmt.Errorf("%w: s-curve inflection supply %s must be positive", types.ErrInvalidCurveParameters, p.InflectionSupply)
	}
	return nil
}

// Price returns the spot price at the given circulating supply.
// Price(0) equals BasePrice exactly for every curve family, and price is
// monotonically non-decreasing in supply.
func Price(p Params, supply uint64) (decimal.Decimal, error) {
	if err := p.Validate(); err != nil {
		return decimal.Zero, err
	}
	s := decimal.NewFromUint64(supply)
	switch p.Type {
	case types.CurveLinear:
		// basePrice * (1 + s/F)
		return p.BasePrice.Mul(decimal.New(1, 0).Add(s.DivRound(p.ScaleFactor, taylorPrec))).Round(quotePrecision), nil

	case types.CurveExponential:
		// basePrice * e^(s/F)
		e, err := expDec(s.DivRound(p.ScaleFactor, taylorPrec))
		if err != nil {
			return decimal.Zero, err
		}
		return p.BasePrice.Mul(e).Round(quotePrecision), nil

	case types.CurveLogarithmic:
		// basePrice * (1 + ln(1 + s/F))
		ln, err := lnDec(decimal.New(1, 0).Add(s.DivRound(p.ScaleFactor, taylorPrec)))
		if err != nil {
			return decimal.Zero, err
		}
		return p.BasePrice.Mul(decimal.New(1, 0).Add(ln)).Round(quotePrecision), nil

	case types.CurveSCurve:
		sig, err := logistic(p, s)
		if err != nil {
			return decimal.Zero, err
		}
		sig0, err := logistic(p, decimal.Zero)
		if err != nil {
			return decimal.Zero, err
		}
		// basePrice * (1 + A*(sigma(s) - sigma(0))), A normalized so the
		// price starts exactly at basePrice and tops out at (1+lift)*basePrice.
		amp := scurveLift.DivRound(decimal.New(1, 0).Sub(sig0), taylorPrec)
		return p.BasePrice.Mul(decimal.New(1, 0).Add(amp.Mul(sig.Sub(sig0)))).Round(quotePrecision), nil
	}
	return decimal.Zero, fmt.Errorf("%w: unknown curve type %q", types.ErrInvalidCurveParameters, p.Type)
}

// Cost returns the exact integral of the price over [supply, supply+delta].
// Charging the integral instead of price*delta keeps large orders on the
// curve instead of systematically underpricing them.
func Cost(p Params, supply, delta uint64) (decimal.Decimal, error) {
	if err := p.Validate(); err != nil {
		return decimal.Zero, err
	}
	if delta == 0 {
		return decimal.Zero, fmt.Errorf("%w: delta must be positive", types.ErrInvalidAmount)
	}
	if supply > math.MaxUint64-delta {
		return decimal.Zero, fmt.Errorf("%w: supply %d + delta %d", types.ErrArithmeticOverflow, supply, delta)
	}

	s1 := decimal.NewFromUint64(supply)
	s2 := decimal.NewFromUint64(supply + delta)
	d := decimal.NewFromUint64(delta)

	switch p.Type {
	case types.CurveLinear:
		// closed-form trapezoid: b * d * (1 + (s1+s2)/(2F))
		mid := s1.Add(s2).DivRound(p.ScaleFactor.Mul(decimal.NewFromInt(2)), taylorPrec)
		return p.BasePrice.Mul(d).Mul(decimal.New(1, 0).Add(mid)).Round(quotePrecision), nil

	case types.CurveExponential:
		// b * F * (e^(s2/F) - e^(s1/F))
		e2, err := expDec(s2.DivRound(p.ScaleFactor, taylorPrec))
		if err != nil {
			return decimal.Zero, err
		}
		e1, err := expDec(s1.DivRound(p.ScaleFactor, taylorPrec))
		if err != nil {
			return decimal.Zero, err
		}
		return p.BasePrice.Mul(p.ScaleFactor).Mul(e2.Sub(e1)).Round(quotePrecision), nil

	case types.CurveLogarithmic:
		// antiderivative of b*(1+ln(1+s/F)) is b*F*u*ln(u), u = 1+s/F
		g := func(s decimal.Decimal) (decimal.Decimal, error) {
			u := decimal.New(1, 0).Add(s.DivRound(p.ScaleFactor, taylorPrec))
			ln, err := lnDec(u)
			if err != nil {
				return decimal.Zero, err
			}
			return u.Mul(ln), nil
		}
		g2, err := g(s2)
		if err != nil {
			return decimal.Zero, err
		}
		g1, err := g(s1)
		if err != nil {
			return decimal.Zero, err
		}
		return p.BasePrice.Mul(p.ScaleFactor).Mul(g2.Sub(g1)).Round(quotePrecision), nil

	case types.CurveSCurve:
		// integral of the logistic term is F * softplus((s-m)/F)
		sig0, err := logistic(p, decimal.Zero)
		if err != nil {
			return decimal.Zero, err
		}
		sp2, err := softplus(p, s2)
		if err != nil {
			return decimal.Zero, err
		}
		sp1, err := softplus(p, s1)
		if err != nil {
			return decimal.Zero, err
		}
		amp := scurveLift.DivRound(decimal.New(1, 0).Sub(sig0), taylorPrec)
		lift := amp.Mul(p.ScaleFactor.Mul(sp2.Sub(sp1)).Sub(sig0.Mul(d)))
		return p.BasePrice.Mul(d.Add(lift)).Round(quotePrecision), nil
	}
	return decimal.Zero, fmt.Errorf("%w: unknown curve type %q", types.ErrInvalidCurveParameters, p.Type)
}

// TokensForBudget solves for the maximal whole-token amount whose cost does
// not exceed the quote-currency budget. Cost is monotonic in the amount, so a
// doubling probe plus binary search converges in O(log n) curve evaluations.
func TokensForBudget(p Params, supply uint64, budget decimal.Decimal) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if !budget.IsPositive() {
		return 0, fmt.Errorf("%w: budget %s must be positive", types.ErrInvalidAmount, budget)
	}

	affordable := func(n uint64) (bool, error) {
		if n == 0 {
			return true, nil
		}
		if supply > math.MaxUint64-n {
			return false, nil
		}
		c, err := Cost(p, supply, n)
		if err != nil {
			return false, err
		}
		return c.LessThanOrEqual(budget), nil
	}

	// Probe upward until the budget is exceeded.
	var hi uint64 = 1
	for {
		ok, err := affordable(hi)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		if hi > math.MaxUint64/2 {
			hi = math.MaxUint64
			break
		}
		hi *= 2
	}

	lo := uint64(0) // invariant: lo affordable, hi not (unless hi saturated)
	for lo < hi-1 && hi > 0 {
		mid := lo + (hi-lo)/2
		ok, err := affordable(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// MarketCap returns price*supply. Display and feed convenience only; the
// reward machine consumes market caps from the external feed.
func MarketCap(p Params, supply uint64) (decimal.Decimal, error) {
	price, err := Price(p, supply)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(decimal.NewFromUint64(supply)), nil
}

// logistic evaluates 1/(1+e^(-(s-m)/F)).
func logistic(p Params, s decimal.Decimal) (decimal.Decimal, error) {
	x := s.Sub(p.InflectionSupply).DivRound(p.ScaleFactor, taylorPrec)
	e, err := expDec(x.Neg())
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(1, 0).DivRound(decimal.New(1, 0).Add(e), taylorPrec), nil
}

// softplus evaluates ln(1+e^((s-m)/F)), the antiderivative of the logistic.
// For large positive arguments ln(1+e^x) is computed as x + ln(1+e^-x) to
// keep the intermediate exponential small.
func softplus(p Params, s decimal.Decimal) (decimal.Decimal, error) {
	x := s.Sub(p.InflectionSupply).DivRound(p.ScaleFactor, taylorPrec)
	if x.GreaterThan(decimal.NewFromInt(32)) {
		e, err := expDec(x.Neg())
		if err != nil {
			return decimal.Zero, err
		}
		tail, err := lnDec(decimal.New(1, 0).Add(e))
		if err != nil {
			return decimal.Zero, err
		}
		return x.Add(tail), nil
	}
	e, err := expDec(x)
	if err != nil {
		return decimal.Zero, err
	}
	return lnDec(decimal.New(1, 0).Add(e))
}

func expDec(x decimal.Decimal) (decimal.Decimal, error) {
	e, err := x.ExpTaylor(taylorPrec)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: exp(%s): %v", types.ErrInvalidCurveParameters, x, err)
	}
	return e, nil
}

func lnDec(x decimal.Decimal) (decimal.Decimal, error) {
	l, err := x.Ln(taylorPrec)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: ln(%s): %v", types.ErrInvalidCurveParameters, x, err)
	}
	return l, nil
}
