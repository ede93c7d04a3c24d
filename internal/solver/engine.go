package solver

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shivam123-dev/cowSolver/internal/config"
	"github.com/shivam123-dev/cowSolver/internal/domain"
	"github.com/shivam123-dev/cowSolver/internal/oracle"
	"github.com/shivam123-dev/cowSolver/internal/solver/matching"
	"github.com/shivam123-dev/cowSolver/internal/solver/pricing"
	"github.com/shivam123-dev/cowSolver/internal/solver/routing"
	"github.com/shivam123-dev/cowSolver/pkg/metrics"
)

var (
	one             = decimal.NewFromInt(1)
	gweiToReference = decimal.New(1, -9)
)

// Engine orchestrates one batch auction solve: validation, match discovery,
// routing of the remainder, uniform pricing and the final profitability gate.
// It holds configuration and collaborators only; all batch state lives on the
// call stack, so a single Engine serves concurrent solve calls.
type Engine struct {
	cfg    config.Config
	logger *zap.Logger
	oracle oracle.PriceOracle

	minProfit     decimal.Decimal
	maxSlippage   decimal.Decimal
	maxImpact     decimal.Decimal
	minQuality    decimal.Decimal
	minConfidence decimal.Decimal
	feeFraction   decimal.Decimal
	penalty       decimal.Decimal
}

// NewEngine validates the configuration and builds a solver engine. The oracle
// may be nil; the MarketPrice pricing strategy then always uses its fallback.
func NewEngine(cfg config.Config, logger *zap.Logger, po oracle.PriceOracle) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewSolverError(CodeConfigError, err.Error())
	}
	return &Engine{
		cfg:           cfg,
		logger:        logger.Named("solver-engine"),
		oracle:        po,
		minProfit:     decimal.NewFromFloat(cfg.MinProfitThreshold),
		maxSlippage:   decimal.NewFromFloat(cfg.MaxSlippage),
		maxImpact:     decimal.NewFromFloat(cfg.MaxPriceImpact),
		minQuality:    decimal.NewFromFloat(cfg.MinQualityScore),
		minConfidence: decimal.NewFromFloat(cfg.MinConfidence),
		feeFraction:   decimal.NewFromFloat(cfg.FeeFraction),
		penalty:       decimal.NewFromFloat(cfg.InfeasiblePenalty),
	}, nil
}

// Solve runs the full pipeline over one snapshot and returns an Outcome. The
// time budget is checked at every stage boundary; once it is exhausted all
// intermediate work is discarded and the outcome is StatusTimedOut. Solve
// never fails the whole batch on a single bad order, unroutable order or
// infeasible pair.
func (e *Engine) Solve(ctx context.Context, snap Snapshot) *Outcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	outcome := e.solve(ctx, snap, start)
	outcome.Elapsed = time.Since(start)

	metrics.SolveDuration.Observe(outcome.Elapsed.Seconds())
	metrics.SolveOutcomes.WithLabelValues(string(outcome.Status)).Inc()

	e.logger.Info("solve complete",
		zap.String("status", string(outcome.Status)),
		zap.String("reason", string(outcome.Reason)),
		zap.Duration("elapsed", outcome.Elapsed))
	return outcome
}

func (e *Engine) solve(ctx context.Context, snap Snapshot, start time.Time) *Outcome {
	now := snap.Timestamp
	if now.IsZero() {
		now = start
	}

	orders := e.validateOrders(snap.Orders, now)
	if len(orders) == 0 {
		return &Outcome{Status: StatusRejected, Reason: ReasonNoValidOrders}
	}
	if budgetExhausted(ctx) {
		return timedOut()
	}

	var matches []domain.OrderMatch
	if e.cfg.EnableCoWMatching {
		me := matching.NewEngine(e.logger, e.cfg.MaxRingSize, e.minQuality)
		matches = me.SelectMatches(me.FindMatches(orders))
		for _, m := range matches {
			metrics.MatchesFound.WithLabelValues(string(m.Kind)).Inc()
		}
	}
	if budgetExhausted(ctx) {
		return timedOut()
	}

	routes := e.routeUnmatched(orders, matches, snap.Pools)
	if len(matches) == 0 && len(routes) == 0 {
		return &Outcome{Status: StatusRejected, Reason: ReasonNoCandidates}
	}
	if budgetExhausted(ctx) {
		return timedOut()
	}

	pe := pricing.NewEngine(e.logger, pricing.Strategy(e.cfg.PricingStrategy),
		e.oracle, e.cfg.OracleTimeout, e.minConfidence, e.feeFraction)

	prices, failedPairs := e.priceBatch(ctx, pe, orders, matches, routes)
	matches, routes = survivors(orders, matches, routes, prices)
	if len(matches) == 0 && len(routes) == 0 {
		return &Outcome{Status: StatusRejected, Reason: ReasonPriceInfeasible}
	}
	if budgetExhausted(ctx) {
		return timedOut()
	}

	solution := e.assemble(pe, orders, matches, routes, prices, failedPairs)
	net := solution.TotalSurplus.Sub(solution.TotalFees).Sub(e.gasReference(solution.GasCost))
	if net.LessThanOrEqual(e.minProfit) {
		e.logger.Debug("solution below profit threshold",
			zap.String("net", net.String()),
			zap.String("threshold", e.minProfit.String()))
		return &Outcome{Status: StatusRejected, Reason: ReasonUnprofitable}
	}

	return &Outcome{Status: StatusAccepted, Solution: solution}
}

// validateOrders drops orders that cannot settle: structurally invalid, not
// open, expired, or crossing chains while cross-chain settlement is disabled.
func (e *Engine) validateOrders(orders []domain.Order, now time.Time) []domain.Order {
	valid := make([]domain.Order, 0, len(orders))
	for i := range orders {
		o := orders[i]
		reason := ""
		switch {
		case o.Validate() != nil:
			reason = "invalid"
		case o.Status != domain.OrderStatusOpen:
			reason = "not_open"
		case o.IsExpired(now):
			reason = "expired"
		case o.CreatedAt.After(now):
			reason = "not_started"
		case !e.cfg.EnableCrossChain && o.SellToken.ChainID != o.BuyToken.ChainID:
			reason = "cross_chain"
		}
		if reason != "" {
			metrics.OrdersRejected.WithLabelValues(reason).Inc()
			e.logger.Debug("order rejected",
				zap.String("order_id", o.ID.String()),
				zap.String("reason", reason))
			continue
		}
		valid = append(valid, o)
	}
	return valid
}

// routeUnmatched finds the best pool route for every order the match selection
// left uncovered. Unroutable orders are skipped, never fatal.
func (e *Engine) routeUnmatched(orders []domain.Order, matches []domain.OrderMatch, pools []domain.LiquidityPool) []domain.Route {
	if !e.cfg.EnableAMMRouting || len(pools) == 0 {
		return nil
	}
	matched := make(map[uuid.UUID]struct{})
	for _, m := range matches {
		for _, id := range m.OrderIDs {
			matched[id] = struct{}{}
		}
	}

	re := routing.NewEngine(e.logger, pools, e.cfg.MaxHops, e.maxImpact, e.cfg.GasPerHop, e.cfg.MaxGasPrice)
	var routes []domain.Route
	for i := range orders {
		o := &orders[i]
		if _, ok := matched[o.ID]; ok {
			continue
		}
		route, err := re.FindBestRoute(o.ID, o.SellToken, o.BuyToken, o.SellAmount)
		if err != nil {
			metrics.RoutingFailures.Inc()
			e.logger.Debug("order unroutable",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
			continue
		}
		metrics.RoutesFound.Inc()
		routes = append(routes, route)
	}
	return routes
}

// pairGroup collects everything settling on one canonical pair.
type pairGroup struct {
	pair   domain.TokenPair
	orders []*domain.Order
	routes []*domain.Route
}

// priceBatch derives one uniform clearing price per pair touched by a match or
// route. Pairs fixed by pool execution take the volume-weighted route rate;
// every other pair goes through the configured strategy. Infeasible or
// low-confidence pairs are dropped and counted, never fatal.
func (e *Engine) priceBatch(ctx context.Context, pe *pricing.Engine, orders []domain.Order, matches []domain.OrderMatch, routes []domain.Route) (map[string]domain.ClearingPrice, int) {
	byID := ordersByID(orders)

	groups := make(map[string]*pairGroup)
	group := func(pair domain.TokenPair) *pairGroup {
		g, ok := groups[pair.Key()]
		if !ok {
			g = &pairGroup{pair: pair}
			groups[pair.Key()] = g
		}
		return g
	}
	seen := make(map[uuid.UUID]struct{})
	addOrder := func(o *domain.Order) {
		if _, ok := seen[o.ID]; ok {
			return
		}
		seen[o.ID] = struct{}{}
		g := group(o.Pair())
		g.orders = append(g.orders, o)
	}

	for _, m := range matches {
		for _, id := range m.OrderIDs {
			addOrder(byID[id])
		}
	}
	for i := range routes {
		r := &routes[i]
		o := byID[r.OrderID]
		addOrder(o)
		g := group(o.Pair())
		g.routes = append(g.routes, r)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	prices := make(map[string]domain.ClearingPrice, len(groups))
	failed := 0
	for _, k := range keys {
		g := groups[k]
		cp, err := e.priceGroup(ctx, pe, g, byID)
		if err == nil && cp.Confidence.LessThan(e.minConfidence) {
			err = pricing.ErrPriceInfeasible
		}
		if err != nil {
			failed++
			metrics.PricingFailures.Inc()
			e.logger.Debug("pair dropped",
				zap.String("pair", g.pair.String()),
				zap.Error(err))
			continue
		}
		prices[k] = cp
	}
	return prices, failed
}

func (e *Engine) priceGroup(ctx context.Context, pe *pricing.Engine, g *pairGroup, byID map[uuid.UUID]*domain.Order) (domain.ClearingPrice, error) {
	if len(g.routes) == 0 {
		return pe.PricePair(ctx, g.pair, g.orders)
	}

	// Pool execution fixes the price: volume-weighted effective rate across
	// the pair's routes, in canonical quote-per-base direction.
	num, den := decimal.Zero, decimal.Zero
	for _, r := range g.routes {
		rate := r.EffectiveRate()
		if rate.LessThanOrEqual(decimal.Zero) {
			continue
		}
		o := byID[r.OrderID]
		weight := r.AmountIn
		if g.pair.Inverted(o.SellToken) {
			rate = one.Div(rate)
			weight = r.AmountOut
		}
		num = num.Add(rate.Mul(weight))
		den = den.Add(weight)
	}
	if den.IsZero() {
		return domain.ClearingPrice{}, pricing.ErrPriceInfeasible
	}
	return pe.PriceAt(g.pair, g.orders, num.Div(den))
}

// survivors keeps a match only when every pair its orders trade on was priced,
// and a route only when its order's pair was priced.
func survivors(orders []domain.Order, matches []domain.OrderMatch, routes []domain.Route, prices map[string]domain.ClearingPrice) ([]domain.OrderMatch, []domain.Route) {
	byID := ordersByID(orders)

	keptMatches := matches[:0]
	for _, m := range matches {
		ok := true
		for _, id := range m.OrderIDs {
			if _, priced := prices[byID[id].Pair().Key()]; !priced {
				ok = false
				break
			}
		}
		if ok {
			keptMatches = append(keptMatches, m)
		}
	}

	keptRoutes := routes[:0]
	for _, r := range routes {
		if _, priced := prices[byID[r.OrderID].Pair().Key()]; priced {
			keptRoutes = append(keptRoutes, r)
		}
	}
	return keptMatches, keptRoutes
}

// assemble builds the settlement plan and the scored solution from the
// surviving matches, routes and prices.
func (e *Engine) assemble(pe *pricing.Engine, orders []domain.Order, matches []domain.OrderMatch, routes []domain.Route, prices map[string]domain.ClearingPrice, failedPairs int) *domain.Solution {
	byID := ordersByID(orders)
	plan := domain.NewSettlementPlan()

	totalSurplus, totalFees := decimal.Zero, decimal.Zero
	addTrade := func(o *domain.Order, executedSell decimal.Decimal, cp domain.ClearingPrice) {
		rate := cp.Price
		if cp.Pair.Inverted(o.SellToken) {
			rate = one.Div(cp.Price)
		}
		surplus, fee := pe.OrderSurplus(o, cp)
		if o.SellAmount.GreaterThan(decimal.Zero) {
			frac := executedSell.Div(o.SellAmount)
			surplus = surplus.Mul(frac)
			fee = fee.Mul(frac)
		}
		plan.AddTrade(domain.Trade{
			OrderID:            o.ID,
			ExecutedSellAmount: executedSell,
			ExecutedBuyAmount:  executedSell.Mul(rate),
			Fee:                fee,
		})
		plan.SetClearingPrice(cp)
		totalSurplus = totalSurplus.Add(surplus)
		totalFees = totalFees.Add(fee)
	}

	for _, m := range matches {
		if m.Kind == domain.MatchDirect && len(m.OrderIDs) == 2 {
			a, b := byID[m.OrderIDs[0]], byID[m.OrderIDs[1]]
			cp := prices[a.Pair().Key()]
			sellA, sellB := directFills(a, b, cp)
			addTrade(a, sellA, cp)
			addTrade(b, sellB, cp)
			continue
		}
		// Ring orders fill fully; pricing validated every leg's limit.
		for _, id := range m.OrderIDs {
			o := byID[id]
			addTrade(o, o.SellAmount, prices[o.Pair().Key()])
		}
	}

	for i := range routes {
		r := &routes[i]
		o := byID[r.OrderID]
		addTrade(o, r.AmountIn, prices[o.Pair().Key()])
		e.addInteractions(&plan, r)
	}

	gas := plan.EstimateGas()
	score := totalSurplus.
		Sub(e.gasReference(gas)).
		Sub(e.penalty.Mul(decimal.NewFromInt(int64(failedPairs))))

	return &domain.Solution{
		Matches:      matches,
		Routes:       routes,
		Prices:       prices,
		TotalSurplus: totalSurplus,
		TotalFees:    totalFees,
		GasCost:      gas,
		Score:        score,
		Settlement:   plan,
	}
}

// directFills sizes the matchable volume of a direct pair at the clearing
// price: the base leg is capped by the smaller side.
func directFills(a, b *domain.Order, cp domain.ClearingPrice) (sellA, sellB decimal.Decimal) {
	baseSeller, quoteSeller := a, b
	if cp.Pair.Inverted(a.SellToken) {
		baseSeller, quoteSeller = b, a
	}
	tradedBase := decimal.Min(baseSeller.SellAmount, quoteSeller.SellAmount.Div(cp.Price))

	sellBase := tradedBase
	sellQuote := tradedBase.Mul(cp.Price)
	// Division round-trip can overshoot the quote side by a few ulps.
	if sellQuote.GreaterThan(quoteSeller.SellAmount) {
		sellQuote = quoteSeller.SellAmount
	}
	if baseSeller == a {
		return sellBase, sellQuote
	}
	return sellQuote, sellBase
}

// addInteractions emits one pool swap per route hop, with the slippage
// tolerance applied to each hop's expected output.
func (e *Engine) addInteractions(plan *domain.SettlementPlan, r *domain.Route) {
	for i, poolID := range r.PoolIDs {
		if i+1 >= len(r.HopAmounts) {
			break
		}
		minOut := r.HopAmounts[i+1].Mul(one.Sub(e.maxSlippage))
		plan.AddInteraction(domain.Interaction{
			PoolID:       poolID,
			TokenIn:      r.Path[i],
			TokenOut:     r.Path[i+1],
			AmountIn:     r.HopAmounts[i],
			MinAmountOut: minOut,
		})
	}
}

// gasReference values gas units in reference units at the configured gas price
// ceiling.
func (e *Engine) gasReference(gas uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(gas)).
		Mul(decimal.NewFromInt(int64(e.cfg.MaxGasPrice))).
		Mul(gweiToReference)
}

func ordersByID(orders []domain.Order) map[uuid.UUID]*domain.Order {
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}
	return byID
}

func budgetExhausted(ctx context.Context) bool {
	return ctx.Err() != nil
}

func timedOut() *Outcome {
	return &Outcome{Status: StatusTimedOut, Reason: ReasonTimeout}
}
