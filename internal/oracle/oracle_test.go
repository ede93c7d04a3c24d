package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

func testPair() domain.TokenPair {
	var a, b common.Address
	a[19], b[19] = 0x01, 0x02
	return domain.NewTokenPair(
		domain.Token{ChainID: domain.ChainEthereum, Address: a, Symbol: "WETH", Decimals: 18},
		domain.Token{ChainID: domain.ChainEthereum, Address: b, Symbol: "USDC", Decimals: 6},
	)
}

func TestStaticOracleReturnsFreshHint(t *testing.T) {
	pair := testPair()
	now := time.Now()
	o := NewStaticOracle([]PriceHint{
		{Pair: pair, Price: decimal.NewFromInt(2000), ObservedAt: now},
	}, time.Minute).WithClock(func() time.Time { return now })

	h, ok := o.Price(context.Background(), pair)
	require.True(t, ok)
	assert.True(t, h.Price.Equal(decimal.NewFromInt(2000)))
}

func TestStaticOracleDropsStaleHint(t *testing.T) {
	pair := testPair()
	observed := time.Now()
	o := NewStaticOracle([]PriceHint{
		{Pair: pair, Price: decimal.NewFromInt(2000), ObservedAt: observed},
	}, time.Minute).WithClock(func() time.Time { return observed.Add(2 * time.Minute) })

	_, ok := o.Price(context.Background(), pair)
	assert.False(t, ok)
}

func TestStaticOracleUnknownPairAndBadPrice(t *testing.T) {
	pair := testPair()
	o := NewStaticOracle(nil, time.Minute)
	_, ok := o.Price(context.Background(), pair)
	assert.False(t, ok)

	o = NewStaticOracle([]PriceHint{
		{Pair: pair, Price: decimal.Zero, ObservedAt: time.Now()},
	}, time.Minute)
	_, ok = o.Price(context.Background(), pair)
	assert.False(t, ok, "non-positive prices are never served")
}

func TestStaticOracleRespectsContext(t *testing.T) {
	pair := testPair()
	o := NewStaticOracle([]PriceHint{
		{Pair: pair, Price: decimal.NewFromInt(1), ObservedAt: time.Now()},
	}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := o.Price(ctx, pair)
	assert.False(t, ok)
}

func TestNopNeverReturnsPrice(t *testing.T) {
	_, ok := Nop{}.Price(context.Background(), testPair())
	assert.False(t, ok)
}
