package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PoolType selects the pricing curve of a liquidity pool. The set is closed:
// every routing formula dispatches over exactly these variants.
type PoolType string

const (
	PoolConstantProduct PoolType = "CONSTANT_PRODUCT"
	PoolStableSwap      PoolType = "STABLE_SWAP"
	PoolWeighted        PoolType = "WEIGHTED"
)

// LiquidityPool is a reserve snapshot of a two-token AMM pool. Reserves are
// already normalized to decimal token units by the adapter that fetched them.
type LiquidityPool struct {
	ID       uuid.UUID      `json:"id"`
	Address  common.Address `json:"address"`
	Type     PoolType       `json:"type"`
	TokenA   Token          `json:"token_a"`
	TokenB   Token          `json:"token_b"`
	ReserveA decimal.Decimal `json:"reserve_a"`
	ReserveB decimal.Decimal `json:"reserve_b"`

	// WeightA and WeightB apply to weighted pools only; both zero otherwise.
	WeightA decimal.Decimal `json:"weight_a,omitempty"`
	WeightB decimal.Decimal `json:"weight_b,omitempty"`

	// Amplification applies to stable-swap pools only.
	Amplification decimal.Decimal `json:"amplification,omitempty"`

	// FeeRate is the swap fee as a fraction, e.g. 0.003 for 0.3%.
	FeeRate decimal.Decimal `json:"fee_rate"`

	// GasEstimate is the gas cost of one swap through this pool.
	GasEstimate uint64 `json:"gas_estimate"`
}

// Reserves returns (reserveIn, reserveOut) oriented for a swap that sells
// tokenIn into the pool. The second return is false when tokenIn is not in
// the pool.
func (p *LiquidityPool) Reserves(tokenIn Token) (decimal.Decimal, decimal.Decimal, bool) {
	switch {
	case tokenIn.Equal(p.TokenA):
		return p.ReserveA, p.ReserveB, true
	case tokenIn.Equal(p.TokenB):
		return p.ReserveB, p.ReserveA, true
	default:
		return decimal.Zero, decimal.Zero, false
	}
}

// Weights returns (weightIn, weightOut) oriented like Reserves.
func (p *LiquidityPool) Weights(tokenIn Token) (decimal.Decimal, decimal.Decimal) {
	if tokenIn.Equal(p.TokenB) {
		return p.WeightB, p.WeightA
	}
	return p.WeightA, p.WeightB
}

// Other returns the pool token opposite to the given one.
func (p *LiquidityPool) Other(token Token) (Token, bool) {
	switch {
	case token.Equal(p.TokenA):
		return p.TokenB, true
	case token.Equal(p.TokenB):
		return p.TokenA, true
	default:
		return Token{}, false
	}
}

// SpotPrice returns the marginal price of tokenOut per tokenIn before any trade.
func (p *LiquidityPool) SpotPrice(tokenIn Token) decimal.Decimal {
	rin, rout, ok := p.Reserves(tokenIn)
	if !ok || rin.IsZero() {
		return decimal.Zero
	}
	return rout.Div(rin)
}

// Validate checks the pool's structural invariants.
func (p *LiquidityPool) Validate() error {
	if p.TokenA.Equal(p.TokenB) {
		return fmt.Errorf("pool tokens must differ")
	}
	if p.ReserveA.IsNegative() || p.ReserveB.IsNegative() {
		return fmt.Errorf("reserves must be non-negative")
	}
	if p.FeeRate.IsNegative() || p.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee rate must be in [0,1), got %s", p.FeeRate)
	}
	switch p.Type {
	case PoolConstantProduct, PoolStableSwap:
	case PoolWeighted:
		if p.WeightA.LessThanOrEqual(decimal.Zero) || p.WeightB.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("weighted pool weights must be positive")
		}
	default:
		return fmt.Errorf("unknown pool type %q", p.Type)
	}
	return nil
}
