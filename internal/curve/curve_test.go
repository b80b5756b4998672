package curve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashastest/wybe-engine/internal/types"
)

func testParams(ct types.CurveType) Params {
	return Params{
		Type:             ct,
		BasePrice:        decimal.RequireFromString("0.001"),
		ScaleFactor:      decimal.NewFromInt(100000),
		InflectionSupply: decimal.NewFromInt(500000),
	}
}

var allCurveTypes = []types.CurveType{
	types.CurveLinear,
	types.CurveExponential,
	types.CurveLogarithmic,
	types.CurveSCurve,
}

func TestPriceAtZeroSupplyEqualsBasePrice(t *testing.T) {
	for _, ct := range allCurveTypes {
		p := testParams(ct)
		price, err := Price(p, 0)
		require.NoError(t, err, "curve %s", ct)

		// The s-curve's normalization pins price(0) to basePrice exactly like
		// the other families.
		diff := price.Sub(p.BasePrice).Abs()
		assert.True(t, diff.LessThan(decimal.RequireFromString("0.0000000001")),
			"curve %s: price(0) = %s, want %s", ct, price, p.BasePrice)
	}
}

func TestPriceIsMonotonicallyIncreasing(t *testing.T) {
	supplies := []uint64{0, 1, 1000, 50000, 250000, 500000, 1000000, 5000000}
	for _, ct := range allCurveTypes {
		p := testParams(ct)
		prev := decimal.NewFromInt(-1)
		for _, s := range supplies {
			price, err := Price(p, s)
			require.NoError(t, err, "curve %s supply %d", ct, s)
			assert.True(t, price.GreaterThan(prev),
				"curve %s: price(%d) = %s not greater than previous %s", ct, s, price, prev)
			prev = price
		}
	}
}

func TestCostIsPositiveAndAdditive(t *testing.T) {
	for _, ct := range allCurveTypes {
		p := testParams(ct)

		whole, err := Cost(p, 10000, 5000)
		require.NoError(t, err)
		assert.True(t, whole.IsPositive(), "curve %s: cost must be positive", ct)

		// Splitting a purchase in two must cost the same as one settlement.
		first, err := Cost(p, 10000, 2000)
		require.NoError(t, err)
		second, err := Cost(p, 12000, 3000)
		require.NoError(t, err)

		diff := whole.Sub(first.Add(second)).Abs()
		assert.True(t, diff.LessThan(decimal.RequireFromString("0.000001")),
			"curve %s: split cost %s differs from whole cost %s", ct, first.Add(second), whole)
	}
}

func TestCostExceedsSpotPriceTimesAmount(t *testing.T) {
	// On an increasing curve the integral over a buy is strictly more than
	// amount times the starting spot price.
	for _, ct := range allCurveTypes {
		p := testParams(ct)
		spot, err := Price(p, 10000)
		require.NoError(t, err)
		cost, err := Cost(p, 10000, 50000)
		require.NoError(t, err)
		floor := spot.Mul(decimal.NewFromInt(50000))
		assert.True(t, cost.GreaterThan(floor),
			"curve %s: cost %s should exceed spot floor %s", ct, cost, floor)
	}
}

func TestCostRejectsSupplyOverflow(t *testing.T) {
	p := testParams(types.CurveLinear)
	_, err := Cost(p, ^uint64(0)-10, 100)
	assert.ErrorIs(t, err, types.ErrArithmeticOverflow)
}

func TestCostRejectsZeroDelta(t *testing.T) {
	p := testParams(types.CurveLinear)
	_, err := Cost(p, 1000, 0)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestValidateRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero base price", func(p *Params) { p.BasePrice = decimal.Zero }},
		{"negative base price", func(p *Params) { p.BasePrice = decimal.NewFromInt(-1) }},
		{"zero scale factor", func(p *Params) { p.ScaleFactor = decimal.Zero }},
		{"unknown curve type", func(p *Params) { p.Type = types.CurveType("bonded") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams(types.CurveLinear)
			tc.mutate(&p)
			assert.ErrorIs(t, p.Validate(), types.ErrInvalidCurveParameters)
		})
	}

	t.Run("scurve needs inflection supply", func(t *testing.T) {
		p := testParams(types.CurveSCurve)
		p.InflectionSupply = decimal.Zero
		assert.ErrorIs(t, p.Validate(), types.ErrInvalidCurveParameters)
	})
}

func TestTokensForBudgetInvertsCost(t *testing.T) {
	budget := decimal.NewFromInt(100)
	for _, ct := range allCurveTypes {
		p := testParams(ct)
		tokens, err := TokensForBudget(p, 10000, budget)
		require.NoError(t, err, "curve %s", ct)
		require.Greater(t, tokens, uint64(0), "curve %s: budget should buy something", ct)

		cost, err := Cost(p, 10000, tokens)
		require.NoError(t, err)
		assert.True(t, cost.LessThanOrEqual(budget),
			"curve %s: cost %s of %d tokens exceeds budget %s", ct, cost, tokens, budget)

		costPlusOne, err := Cost(p, 10000, tokens+1)
		require.NoError(t, err)
		assert.True(t, costPlusOne.GreaterThan(budget),
			"curve %s: one more token (%s) should not fit the budget %s", ct, costPlusOne, budget)
	}
}

func TestTokensForBudgetTooSmall(t *testing.T) {
	p := testParams(types.CurveExponential)
	// Budget below the price of a single token buys nothing.
	tokens, err := TokensForBudget(p, 0, decimal.RequireFromString("0.0000001"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tokens)
}

func TestMarketCap(t *testing.T) {
	p := testParams(types.CurveLinear)
	mc, err := MarketCap(p, 200000)
	require.NoError(t, err)

	price, err := Price(p, 200000)
	require.NoError(t, err)
	assert.True(t, mc.Equal(price.Mul(decimal.NewFromInt(200000))),
		"market cap %s should equal spot price times supply", mc)
}

func TestCostMatchesNumericIntegralOfPrice(t *testing.T) {
	const (
		start = uint64(10000)
		delta = uint64(5000)
		step  = uint64(25)
	)
	for _, ct := range allCurveTypes {
		p := testParams(ct)

		// Trapezoidal sum of the spot price over [start, start+delta].
		sum := decimal.Zero
		for s := start; s <= start+delta; s += step {
			price, err := Price(p, s)
			require.NoError(t, err, "curve %s", ct)
			weight := decimal.NewFromUint64(step)
			if s == start || s == start+delta {
				weight = weight.Div(decimal.NewFromInt(2))
			}
			sum = sum.Add(price.Mul(weight))
		}

		cost, err := Cost(p, start, delta)
		require.NoError(t, err, "curve %s", ct)

		tolerance := sum.Mul(decimal.RequireFromString("0.005"))
		diff := cost.Sub(sum).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerance),
			"curve %s: closed-form cost %s deviates from numeric integral %s by %s",
			ct, cost, sum, diff)
	}
}
