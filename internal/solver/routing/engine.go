package routing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

// ErrNoRoute reports that no path exists within hop and impact bounds. The
// solver engine treats it as a per-order NoLiquidity condition, never as a
// batch failure.
var ErrNoRoute = errors.New("no route within hop and impact bounds")

// gweiToReference converts gwei-denominated gas cost into the reference unit
// route scores are expressed in.
var gweiToReference = decimal.New(1, -9)

// Engine finds execution routes through liquidity pools for order volume that
// direct matching could not cover. It is built per solve call from the pool
// snapshot and never mutates it.
type Engine struct {
	logger    *zap.Logger
	pools     []domain.LiquidityPool
	adjacency map[string][]int

	maxHops      int
	maxImpact    decimal.Decimal
	gasPerHop    uint64
	gasPriceGwei uint64
}

// NewEngine indexes the pool snapshot for path search.
func NewEngine(logger *zap.Logger, pools []domain.LiquidityPool, maxHops int, maxImpact decimal.Decimal, gasPerHop, gasPriceGwei uint64) *Engine {
	e := &Engine{
		logger:       logger.Named("routing-engine"),
		pools:        pools,
		adjacency:    make(map[string][]int),
		maxHops:      maxHops,
		maxImpact:    maxImpact,
		gasPerHop:    gasPerHop,
		gasPriceGwei: gasPriceGwei,
	}
	for i := range pools {
		p := &pools[i]
		e.adjacency[poolTokenKey(p.TokenA)] = append(e.adjacency[poolTokenKey(p.TokenA)], i)
		e.adjacency[poolTokenKey(p.TokenB)] = append(e.adjacency[poolTokenKey(p.TokenB)], i)
	}
	return e
}

// FindBestRoute returns the highest-scoring route selling amountIn of tokenIn
// for tokenOut on behalf of the given order. It returns ErrNoRoute when no
// path survives the hop and impact bounds.
func (e *Engine) FindBestRoute(orderID uuid.UUID, tokenIn, tokenOut domain.Token, amountIn decimal.Decimal) (domain.Route, error) {
	if amountIn.LessThanOrEqual(decimal.Zero) {
		return domain.Route{}, fmt.Errorf("amount in must be positive: %w", ErrNoRoute)
	}

	paths := e.enumeratePaths(tokenIn, tokenOut)
	if len(paths) == 0 {
		return domain.Route{}, ErrNoRoute
	}

	var best *domain.Route
	for _, path := range paths {
		route, ok := e.evaluatePath(orderID, path, amountIn)
		if !ok {
			continue
		}
		if best == nil || route.Score.GreaterThan(best.Score) {
			r := route
			best = &r
		}
	}
	if best == nil {
		return domain.Route{}, ErrNoRoute
	}

	e.logger.Debug("route selected",
		zap.String("order_id", orderID.String()),
		zap.Int("hops", best.Hops()),
		zap.String("amount_out", best.AmountOut.String()),
		zap.String("price_impact", best.PriceImpact.String()))
	return *best, nil
}

// enumeratePaths walks the token graph breadth-first and collects simple token
// paths from source to destination up to maxHops edges. Pool index order fixes
// the traversal order, so enumeration is deterministic.
func (e *Engine) enumeratePaths(source, dest domain.Token) [][]domain.Token {
	type state struct{ path []domain.Token }
	var paths [][]domain.Token

	queue := []state{{path: []domain.Token{source}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		tail := cur.path[len(cur.path)-1]
		if tail.Equal(dest) && len(cur.path) > 1 {
			paths = append(paths, cur.path)
			continue
		}
		if len(cur.path) > e.maxHops {
			continue
		}
		for _, idx := range e.adjacency[poolTokenKey(tail)] {
			next, ok := e.pools[idx].Other(tail)
			if !ok || containsToken(cur.path, next) {
				continue
			}
			path := make([]domain.Token, len(cur.path)+1)
			copy(path, cur.path)
			path[len(cur.path)] = next
			queue = append(queue, state{path: path})
		}
	}
	return paths
}

// evaluatePath executes the path hop by hop, choosing the best pool per hop and
// accumulating gas and multiplicative price impact. Paths whose accumulated
// impact exceeds the bound are discarded mid-walk.
func (e *Engine) evaluatePath(orderID uuid.UUID, path []domain.Token, amountIn decimal.Decimal) (domain.Route, bool) {
	var (
		poolIDs  []uuid.UUID
		amount   = amountIn
		gas      uint64
		survival = one // product of (1 - impact_i) across hops
	)
	hopAmounts := make([]decimal.Decimal, 0, len(path))
	hopAmounts = append(hopAmounts, amountIn)

	for i := 0; i+1 < len(path); i++ {
		pool, out := e.bestPoolForHop(path[i], path[i+1], amount)
		if pool == nil {
			return domain.Route{}, false
		}
		impact := PriceImpact(pool, path[i], amount, out)
		survival = survival.Mul(one.Sub(impact))
		if one.Sub(survival).GreaterThan(e.maxImpact) {
			return domain.Route{}, false
		}

		poolIDs = append(poolIDs, pool.ID)
		if pool.GasEstimate > 0 {
			gas += pool.GasEstimate
		} else {
			gas += e.gasPerHop
		}
		amount = out
		hopAmounts = append(hopAmounts, amount)
	}

	impact := one.Sub(survival)
	route := domain.Route{
		OrderID:     orderID,
		PoolIDs:     poolIDs,
		Path:        path,
		HopAmounts:  hopAmounts,
		AmountIn:    amountIn,
		AmountOut:   amount,
		GasEstimate: gas,
		PriceImpact: impact,
		Score:       e.scoreRoute(amount, gas, impact),
	}
	return route, true
}

// bestPoolForHop picks the pool yielding the highest output for one hop. Lower
// pool index wins ties for determinism.
func (e *Engine) bestPoolForHop(tokenIn, tokenOut domain.Token, amountIn decimal.Decimal) (*domain.LiquidityPool, decimal.Decimal) {
	var (
		best    *domain.LiquidityPool
		bestOut decimal.Decimal
	)
	for _, idx := range e.adjacency[poolTokenKey(tokenIn)] {
		pool := &e.pools[idx]
		other, ok := pool.Other(tokenIn)
		if !ok || !other.Equal(tokenOut) {
			continue
		}
		out := SwapOutput(pool, tokenIn, amountIn)
		if out.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if best == nil || out.GreaterThan(bestOut) {
			best, bestOut = pool, out
		}
	}
	return best, bestOut
}

// scoreRoute values the output in reference units, less gas converted at the
// configured gas price and a penalty proportional to price impact.
func (e *Engine) scoreRoute(amountOut decimal.Decimal, gas uint64, impact decimal.Decimal) decimal.Decimal {
	gasPenalty := decimal.NewFromInt(int64(gas)).
		Mul(decimal.NewFromInt(int64(e.gasPriceGwei))).
		Mul(gweiToReference)
	impactPenalty := impact.Mul(amountOut)
	return amountOut.Sub(gasPenalty).Sub(impactPenalty)
}

func containsToken(path []domain.Token, t domain.Token) bool {
	for _, p := range path {
		if p.Equal(t) {
			return true
		}
	}
	return false
}

func poolTokenKey(t domain.Token) string {
	return fmt.Sprintf("%d:%s", t.ChainID, t.Address.Hex())
}
