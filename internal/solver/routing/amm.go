package routing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

var (
	one = decimal.NewFromInt(1)

	// defaultAmplification applies to stable pools that carry no explicit
	// amplification coefficient.
	defaultAmplification = decimal.NewFromInt(100)

	// stableReserveCap keeps stable-swap output strictly inside the pool.
	stableReserveCap = decimal.NewFromFloat(0.99)
)

// SwapOutput computes the output amount of selling amountIn of tokenIn into the
// pool, dispatching on the pool's curve type. A zero return means the swap is
// not executable.
func SwapOutput(pool *domain.LiquidityPool, tokenIn domain.Token, amountIn decimal.Decimal) decimal.Decimal {
	rin, rout, ok := pool.Reserves(tokenIn)
	if !ok || amountIn.LessThanOrEqual(decimal.Zero) || rin.IsZero() || rout.IsZero() {
		return decimal.Zero
	}
	switch pool.Type {
	case domain.PoolConstantProduct:
		return constantProductOutput(amountIn, rin, rout, pool.FeeRate)
	case domain.PoolStableSwap:
		return stableSwapOutput(amountIn, rin, rout, pool.FeeRate, pool.Amplification)
	case domain.PoolWeighted:
		win, wout := pool.Weights(tokenIn)
		return weightedOutput(amountIn, rin, rout, win, wout, pool.FeeRate)
	default:
		return decimal.Zero
	}
}

// constantProductOutput implements the fee-adjusted x*y=k swap:
// out = Rout * x' / (Rin + x') with x' = x * (1 - fee).
func constantProductOutput(amountIn, rin, rout, fee decimal.Decimal) decimal.Decimal {
	effIn := amountIn.Mul(one.Sub(fee))
	return rout.Mul(effIn).Div(rin.Add(effIn))
}

// stableSwapOutput approximates a stable-swap curve by blending a 1:1 linear
// quote with the constant-product quote. The blend weight
// w = 1 / (1 + A * x / Rin) keeps output near parity for trades that are small
// relative to reserves and degrades toward constant-product behaviour as the
// trade grows. The formula is pinned for reproducibility; A is the pool's
// amplification coefficient.
func stableSwapOutput(amountIn, rin, rout, fee, amp decimal.Decimal) decimal.Decimal {
	if amp.LessThanOrEqual(decimal.Zero) {
		amp = defaultAmplification
	}
	effIn := amountIn.Mul(one.Sub(fee))
	cp := rout.Mul(effIn).Div(rin.Add(effIn))

	w := one.Div(one.Add(amp.Mul(amountIn).Div(rin)))
	out := w.Mul(effIn).Add(one.Sub(w).Mul(cp))

	if cap := rout.Mul(stableReserveCap); out.GreaterThan(cap) {
		return cap
	}
	return out
}

// weightedOutput implements the weighted constant-product generalization:
// out = Rout * (1 - (Rin / (Rin + x'))^(Win/Wout)). The exponent is evaluated
// in float64; decimal carries no fractional power primitive.
func weightedOutput(amountIn, rin, rout, win, wout, fee decimal.Decimal) decimal.Decimal {
	if win.LessThanOrEqual(decimal.Zero) || wout.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	effIn := amountIn.Mul(one.Sub(fee))
	base := rin.Div(rin.Add(effIn)).InexactFloat64()
	exp := win.Div(wout).InexactFloat64()
	factor := 1 - math.Pow(base, exp)
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return decimal.Zero
	}
	return rout.Mul(decimal.NewFromFloat(factor))
}

// PriceImpact returns the fractional deviation of the effective execution price
// from the pre-trade spot price for one hop.
func PriceImpact(pool *domain.LiquidityPool, tokenIn domain.Token, amountIn, amountOut decimal.Decimal) decimal.Decimal {
	rin, rout, ok := pool.Reserves(tokenIn)
	if !ok || rin.IsZero() || amountIn.IsZero() {
		return one
	}
	spot := rout.Div(rin)
	if spot.IsZero() {
		return one
	}
	effective := amountOut.Div(amountIn)
	impact := spot.Sub(effective).Div(spot)
	if impact.IsNegative() {
		return decimal.Zero
	}
	return impact
}
