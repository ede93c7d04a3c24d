package domain

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToken(addr byte, symbol string) Token {
	var a common.Address
	a[19] = addr
	return Token{ChainID: ChainEthereum, Address: a, Symbol: symbol, Decimals: 18}
}

func TestNewTokenPairCanonicalOrdering(t *testing.T) {
	weth := testToken(0x01, "WETH")
	usdc := testToken(0x02, "USDC")

	p1 := NewTokenPair(weth, usdc)
	p2 := NewTokenPair(usdc, weth)

	assert.Equal(t, p1, p2, "pair must be direction independent")
	assert.Equal(t, weth, p1.Base, "lower address becomes base")
	assert.Equal(t, usdc, p1.Quote)
	assert.Equal(t, p1.Key(), p2.Key())

	assert.False(t, p1.Inverted(weth), "base seller is not inverted")
	assert.True(t, p1.Inverted(usdc), "quote seller is inverted")
}

func TestTokenPairCrossChainOrdering(t *testing.T) {
	eth := testToken(0x05, "TKN")
	poly := eth
	poly.ChainID = ChainPolygon

	p := NewTokenPair(poly, eth)
	assert.Equal(t, ChainEthereum, p.Base.ChainID, "lower chain id becomes base")
}

func TestOrderLimitPriceAndPair(t *testing.T) {
	weth := testToken(0x01, "WETH")
	usdc := testToken(0x02, "USDC")
	o := Order{
		ID:           uuid.New(),
		SellToken:    weth,
		BuyToken:     usdc,
		SellAmount:   decimal.NewFromInt(2),
		MinBuyAmount: decimal.NewFromInt(3),
		ExpiresAt:    time.Now().Add(time.Hour),
		Status:       OrderStatusOpen,
	}

	assert.True(t, o.LimitPrice().Equal(decimal.NewFromFloat(1.5)))
	assert.Equal(t, NewTokenPair(weth, usdc), o.Pair())
	require.NoError(t, o.Validate())
}

func TestOrderValidateRejectsBadOrders(t *testing.T) {
	weth := testToken(0x01, "WETH")
	usdc := testToken(0x02, "USDC")
	base := Order{
		ID:           uuid.New(),
		SellToken:    weth,
		BuyToken:     usdc,
		SellAmount:   decimal.NewFromInt(1),
		MinBuyAmount: decimal.NewFromInt(1),
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	tests := []struct {
		name   string
		mutate func(*Order)
	}{
		{"missing id", func(o *Order) { o.ID = uuid.Nil }},
		{"zero sell amount", func(o *Order) { o.SellAmount = decimal.Zero }},
		{"negative min buy", func(o *Order) { o.MinBuyAmount = decimal.NewFromInt(-1) }},
		{"same token", func(o *Order) { o.BuyToken = o.SellToken }},
		{"missing expiry", func(o *Order) { o.ExpiresAt = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			tt.mutate(&o)
			assert.Error(t, o.Validate())
		})
	}
}

func TestOrderIsExpired(t *testing.T) {
	now := time.Now()
	o := Order{ExpiresAt: now}
	assert.True(t, o.IsExpired(now), "expiry instant counts as expired")
	assert.False(t, o.IsExpired(now.Add(-time.Second)))
}

func TestPoolReservesAndSpotPrice(t *testing.T) {
	weth := testToken(0x01, "WETH")
	usdc := testToken(0x02, "USDC")
	pool := LiquidityPool{
		ID:       uuid.New(),
		Type:     PoolConstantProduct,
		TokenA:   weth,
		TokenB:   usdc,
		ReserveA: decimal.NewFromInt(100),
		ReserveB: decimal.NewFromInt(200000),
		FeeRate:  decimal.NewFromFloat(0.003),
	}
	require.NoError(t, pool.Validate())

	rin, rout, ok := pool.Reserves(weth)
	require.True(t, ok)
	assert.True(t, rin.Equal(pool.ReserveA))
	assert.True(t, rout.Equal(pool.ReserveB))

	spot := pool.SpotPrice(weth)
	assert.True(t, spot.Equal(decimal.NewFromInt(2000)))

	other, ok := pool.Other(usdc)
	require.True(t, ok)
	assert.True(t, other.Equal(weth))

	_, _, ok = pool.Reserves(testToken(0x09, "DAI"))
	assert.False(t, ok, "foreign token has no reserves")
}

func TestSettlementPlanGasAndValidation(t *testing.T) {
	weth := testToken(0x01, "WETH")
	usdc := testToken(0x02, "USDC")
	order := Order{
		ID:           uuid.New(),
		SellToken:    weth,
		BuyToken:     usdc,
		SellAmount:   decimal.NewFromInt(1),
		MinBuyAmount: decimal.NewFromInt(1),
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	plan := NewSettlementPlan()
	assert.Error(t, plan.Validate(nil), "empty plan is invalid")

	plan.AddTrade(Trade{
		OrderID:            order.ID,
		ExecutedSellAmount: order.SellAmount,
		ExecutedBuyAmount:  decimal.NewFromInt(2),
	})
	plan.AddInteraction(Interaction{PoolID: uuid.New(), TokenIn: weth, TokenOut: usdc, AmountIn: decimal.NewFromInt(1)})

	assert.Equal(t, uint64(21000+50000+100000), plan.EstimateGas())

	orders := map[uuid.UUID]*Order{order.ID: &order}
	assert.Error(t, plan.Validate(orders), "trade without clearing price is invalid")

	plan.SetClearingPrice(ClearingPrice{Pair: order.Pair(), Price: decimal.NewFromInt(2), Confidence: decimal.NewFromInt(1)})
	assert.NoError(t, plan.Validate(orders))
}

func TestSolutionOrderIDs(t *testing.T) {
	id1, id2, id3 := uuid.New(), uuid.New(), uuid.New()
	s := Solution{
		Matches: []OrderMatch{{OrderIDs: []uuid.UUID{id1, id2}, Kind: MatchDirect}},
		Routes:  []Route{{OrderID: id3}},
	}
	assert.Equal(t, []uuid.UUID{id1, id2, id3}, s.OrderIDs())
}

func TestRouteEffectiveRate(t *testing.T) {
	r := Route{AmountIn: decimal.NewFromInt(10), AmountOut: decimal.NewFromInt(9)}
	assert.True(t, r.EffectiveRate().Equal(decimal.NewFromFloat(0.9)))

	empty := Route{}
	assert.True(t, empty.EffectiveRate().IsZero())
}
