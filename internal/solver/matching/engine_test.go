package matching

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

func testToken(addr byte, symbol string) domain.Token {
	var a common.Address
	a[19] = addr
	return domain.Token{ChainID: domain.ChainEthereum, Address: a, Symbol: symbol, Decimals: 18}
}

func testOrder(sell, buy domain.Token, sellAmount, minBuy float64) domain.Order {
	return domain.Order{
		ID:           uuid.New(),
		SellToken:    sell,
		BuyToken:     buy,
		SellAmount:   decimal.NewFromFloat(sellAmount),
		MinBuyAmount: decimal.NewFromFloat(minBuy),
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(time.Hour),
		Status:       domain.OrderStatusOpen,
	}
}

func newTestEngine(t *testing.T) *Engine {
	return NewEngine(zaptest.NewLogger(t), 4, decimal.NewFromFloat(0.1))
}

func TestFindMatchesDirectPair(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	a := testOrder(x, y, 100, 95)
	b := testOrder(y, x, 100, 95)

	matches := newTestEngine(t).FindMatches([]domain.Order{a, b})
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, domain.MatchDirect, m.Kind)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, m.OrderIDs)
	assert.True(t, m.Quality.GreaterThan(decimal.Zero))
	assert.True(t, m.Quality.LessThanOrEqual(decimal.NewFromInt(1)))
	assert.True(t, m.EstimatedSurplus.GreaterThan(decimal.Zero))
}

func TestFindMatchesRejectsCrossedLimits(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	// Both sides demand 20% more than they give; no price satisfies both.
	a := testOrder(x, y, 100, 120)
	b := testOrder(y, x, 100, 120)

	matches := newTestEngine(t).FindMatches([]domain.Order{a, b})
	assert.Empty(t, matches)
}

func TestFindMatchesIgnoresUnrelatedTokens(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	z := testToken(0x03, "Z")
	a := testOrder(x, y, 100, 95)
	b := testOrder(z, x, 100, 95)

	matches := newTestEngine(t).FindMatches([]domain.Order{a, b})
	assert.Empty(t, matches)
}

func TestFindMatchesThreeOrderRing(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	z := testToken(0x03, "Z")
	// X->Y->Z->X with slack limits; the limit product is 0.729.
	a := testOrder(x, y, 100, 90)
	b := testOrder(y, z, 100, 90)
	c := testOrder(z, x, 100, 90)

	matches := newTestEngine(t).FindMatches([]domain.Order{a, b, c})
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, domain.MatchRing, m.Kind)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID, c.ID}, m.OrderIDs)
	assert.True(t, m.Quality.GreaterThan(decimal.Zero))
}

func TestFindMatchesRejectsInfeasibleRing(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	z := testToken(0x03, "Z")
	// Limit product 1.2^3 > 1: the ring cannot settle.
	a := testOrder(x, y, 100, 120)
	b := testOrder(y, z, 100, 120)
	c := testOrder(z, x, 100, 120)

	matches := newTestEngine(t).FindMatches([]domain.Order{a, b, c})
	assert.Empty(t, matches)
}

func TestFindMatchesQualityFloor(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	// Tiny band and badly mismatched volumes keep quality low.
	a := testOrder(x, y, 1000, 999)
	b := testOrder(y, x, 1, 0.999)

	e := NewEngine(zaptest.NewLogger(t), 4, decimal.NewFromFloat(0.9))
	assert.Empty(t, e.FindMatches([]domain.Order{a, b}))
}

func TestSelectMatchesNoOrderReuse(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	a := testOrder(x, y, 100, 95)
	b := testOrder(y, x, 100, 95)
	c := testOrder(y, x, 100, 98)

	e := newTestEngine(t)
	matches := e.FindMatches([]domain.Order{a, b, c})
	require.Len(t, matches, 2, "a matches both counterparties")

	selected := e.SelectMatches(matches)
	require.Len(t, selected, 1, "a can settle only once")

	used := make(map[uuid.UUID]int)
	for _, m := range selected {
		for _, id := range m.OrderIDs {
			used[id]++
		}
	}
	for id, n := range used {
		assert.Equal(t, 1, n, "order %s selected more than once", id)
	}
}

func TestFindMatchesDeterministicAcrossPermutations(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	z := testToken(0x03, "Z")
	orders := []domain.Order{
		testOrder(x, y, 100, 95),
		testOrder(y, x, 100, 95),
		testOrder(x, z, 50, 45),
		testOrder(z, x, 50, 45),
		testOrder(y, z, 80, 70),
		testOrder(z, y, 80, 70),
	}
	permuted := []domain.Order{orders[5], orders[2], orders[0], orders[4], orders[1], orders[3]}

	e := newTestEngine(t)
	first := e.SelectMatches(e.FindMatches(orders))
	second := e.SelectMatches(e.FindMatches(permuted))

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, matchIDKey(first[i]), matchIDKey(second[i]))
		assert.True(t, first[i].Quality.Equal(second[i].Quality))
	}
}

func TestTokenGraphFindCycles(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	z := testToken(0x03, "Z")
	orders := []domain.Order{
		testOrder(x, y, 1, 1),
		testOrder(y, z, 1, 1),
		testOrder(z, x, 1, 1),
		testOrder(x, z, 1, 1), // dead end, no closing edge
	}

	cycles := NewTokenGraph(orders).FindCycles(4)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []int{0, 1, 2}, cycles[0])
}

func TestFindCyclesRespectsSizeBound(t *testing.T) {
	a := testToken(0x01, "A")
	b := testToken(0x02, "B")
	c := testToken(0x03, "C")
	d := testToken(0x04, "D")
	orders := []domain.Order{
		testOrder(a, b, 1, 1),
		testOrder(b, c, 1, 1),
		testOrder(c, d, 1, 1),
		testOrder(d, a, 1, 1),
	}

	assert.Empty(t, NewTokenGraph(orders).FindCycles(3))
	assert.Len(t, NewTokenGraph(orders).FindCycles(4), 1)
}
