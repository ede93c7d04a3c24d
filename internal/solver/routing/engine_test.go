package routing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

func newTestEngine(t *testing.T, pools []domain.LiquidityPool) *Engine {
	return NewEngine(zaptest.NewLogger(t), pools, 3, decimal.NewFromFloat(0.05), 100000, 100)
}

func TestFindBestRouteSingleHop(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	pools := []domain.LiquidityPool{testPool(domain.PoolConstantProduct, x, y, 1000, 1000)}

	orderID := uuid.New()
	route, err := newTestEngine(t, pools).FindBestRoute(orderID, x, y, decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.Equal(t, orderID, route.OrderID)
	assert.Equal(t, 1, route.Hops())
	assert.Equal(t, []uuid.UUID{pools[0].ID}, route.PoolIDs)
	assert.InDelta(t, 9.87158, route.AmountOut.InexactFloat64(), 0.0001)
	require.Len(t, route.HopAmounts, 2)
	assert.True(t, route.HopAmounts[0].Equal(route.AmountIn))
	assert.True(t, route.HopAmounts[1].Equal(route.AmountOut))
}

func TestFindBestRouteMultiHop(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	z := testToken(0x03, "Z")
	pools := []domain.LiquidityPool{
		testPool(domain.PoolConstantProduct, x, y, 10000, 10000),
		testPool(domain.PoolConstantProduct, y, z, 10000, 10000),
	}

	route, err := newTestEngine(t, pools).FindBestRoute(uuid.New(), x, z, decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.Equal(t, 2, route.Hops())
	assert.Equal(t, []domain.Token{x, y, z}, route.Path)
	require.Len(t, route.HopAmounts, 3)
	assert.True(t, route.HopAmounts[1].LessThan(route.HopAmounts[0]))
	assert.True(t, route.HopAmounts[2].LessThan(route.HopAmounts[1]))
}

func TestFindBestRoutePrefersDeeperPool(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	shallow := testPool(domain.PoolConstantProduct, x, y, 100, 100)
	deep := testPool(domain.PoolConstantProduct, x, y, 100000, 100000)
	pools := []domain.LiquidityPool{shallow, deep}

	route, err := newTestEngine(t, pools).FindBestRoute(uuid.New(), x, y, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{deep.ID}, route.PoolIDs)
}

func TestFindBestRouteNoPath(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	z := testToken(0x03, "Z")
	w := testToken(0x04, "W")
	pools := []domain.LiquidityPool{testPool(domain.PoolConstantProduct, x, y, 1000, 1000)}

	_, err := newTestEngine(t, pools).FindBestRoute(uuid.New(), z, w, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestFindBestRouteRespectsImpactBound(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	pools := []domain.LiquidityPool{testPool(domain.PoolConstantProduct, x, y, 1000, 1000)}

	e := NewEngine(zaptest.NewLogger(t), pools, 3, decimal.NewFromFloat(0.001), 100000, 100)
	_, err := e.FindBestRoute(uuid.New(), x, y, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestFindBestRouteRespectsHopBound(t *testing.T) {
	a := testToken(0x01, "A")
	b := testToken(0x02, "B")
	c := testToken(0x03, "C")
	d := testToken(0x04, "D")
	e := testToken(0x05, "E")
	pools := []domain.LiquidityPool{
		testPool(domain.PoolConstantProduct, a, b, 100000, 100000),
		testPool(domain.PoolConstantProduct, b, c, 100000, 100000),
		testPool(domain.PoolConstantProduct, c, d, 100000, 100000),
		testPool(domain.PoolConstantProduct, d, e, 100000, 100000),
	}

	eng := NewEngine(zaptest.NewLogger(t), pools, 3, decimal.NewFromFloat(0.05), 100000, 100)
	_, err := eng.FindBestRoute(uuid.New(), a, e, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNoRoute, "a->e needs four hops")

	route, err := eng.FindBestRoute(uuid.New(), a, d, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, 3, route.Hops())
}

func TestFindBestRouteRejectsNonPositiveAmount(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	pools := []domain.LiquidityPool{testPool(domain.PoolConstantProduct, x, y, 1000, 1000)}

	_, err := newTestEngine(t, pools).FindBestRoute(uuid.New(), x, y, decimal.Zero)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestFindBestRouteGasAccounting(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	pool := testPool(domain.PoolConstantProduct, x, y, 1000, 1000)
	pool.GasEstimate = 70000
	pools := []domain.LiquidityPool{pool}

	route, err := newTestEngine(t, pools).FindBestRoute(uuid.New(), x, y, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(70000), route.GasEstimate, "pool estimate wins over the per-hop constant")

	pools[0].GasEstimate = 0
	route, err = newTestEngine(t, pools).FindBestRoute(uuid.New(), x, y, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(100000), route.GasEstimate)
}

func TestFindBestRouteDeterministic(t *testing.T) {
	x := testToken(0x01, "X")
	y := testToken(0x02, "Y")
	z := testToken(0x03, "Z")
	pools := []domain.LiquidityPool{
		testPool(domain.PoolConstantProduct, x, y, 10000, 10000),
		testPool(domain.PoolConstantProduct, y, z, 10000, 10000),
		testPool(domain.PoolConstantProduct, x, z, 9000, 9000),
	}

	e := newTestEngine(t, pools)
	first, err := e.FindBestRoute(uuid.Nil, x, z, decimal.NewFromInt(10))
	require.NoError(t, err)
	second, err := e.FindBestRoute(uuid.Nil, x, z, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
