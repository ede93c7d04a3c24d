package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shivam123-dev/cowSolver/internal/domain"
	"github.com/shivam123-dev/cowSolver/internal/oracle"
)

// ErrPriceInfeasible reports that no single price satisfies every participating
// order's limit for a pair. The solver drops the affected matches and routes
// and continues; the batch never fails on it.
var ErrPriceInfeasible = errors.New("no price satisfies all participant limits")

// Strategy selects how a clearing price is derived. The set is closed and
// dispatched at a single point.
type Strategy string

const (
	MidPoint       Strategy = "midpoint"
	VolumeWeighted Strategy = "volume_weighted"
	MarketPrice    Strategy = "market_price"
	MaxSurplus     Strategy = "max_surplus"
)

// maxSurplusSteps fixes the grid resolution of the MaxSurplus band search.
// A fixed grid keeps the search deterministic.
const maxSurplusSteps = 100

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// Engine derives uniform clearing prices per token pair and computes surplus
// and fees. All prices are quoted in quote token per base token of the
// canonical pair.
type Engine struct {
	logger        *zap.Logger
	strategy      Strategy
	oracle        oracle.PriceOracle
	oracleTimeout time.Duration
	minConfidence decimal.Decimal
	feeFraction   decimal.Decimal
}

// NewEngine creates a pricing engine. The oracle may be oracle.Nop; the
// MarketPrice strategy then always falls back to VolumeWeighted.
func NewEngine(logger *zap.Logger, strategy Strategy, po oracle.PriceOracle, oracleTimeout time.Duration, minConfidence, feeFraction decimal.Decimal) *Engine {
	if po == nil {
		po = oracle.Nop{}
	}
	return &Engine{
		logger:        logger.Named("pricing-engine"),
		strategy:      strategy,
		oracle:        po,
		oracleTimeout: oracleTimeout,
		minConfidence: minConfidence,
		feeFraction:   feeFraction,
	}
}

// participant is one order normalized onto the canonical pair direction.
type participant struct {
	order *domain.Order

	// limit is the order's constraint in quote per base: a minimum for base
	// sellers, a maximum for quote sellers.
	limit decimal.Decimal

	// volume is the order's size in base token units.
	volume decimal.Decimal

	sellsBase bool
}

// PricePair computes the uniform clearing price for a pair from its
// participating orders, validates it against every order's limit and returns
// ErrPriceInfeasible when validation fails.
func (e *Engine) PricePair(ctx context.Context, pair domain.TokenPair, orders []*domain.Order) (domain.ClearingPrice, error) {
	parts, err := normalize(pair, orders)
	if err != nil {
		return domain.ClearingPrice{}, err
	}

	price, err := e.derivePrice(ctx, pair, parts)
	if err != nil {
		return domain.ClearingPrice{}, err
	}
	if err := validate(parts, price); err != nil {
		return domain.ClearingPrice{}, err
	}

	cp := domain.ClearingPrice{
		Pair:       pair,
		Price:      price,
		Confidence: confidence(parts, price),
	}
	e.logger.Debug("pair priced",
		zap.String("pair", pair.String()),
		zap.String("price", cp.Price.String()),
		zap.String("confidence", cp.Confidence.String()))
	return cp, nil
}

// PriceAt validates an externally determined price, typically a route's
// effective execution rate, against every participant's limit. It is used for
// pairs whose price is fixed by pool execution rather than by a strategy.
func (e *Engine) PriceAt(pair domain.TokenPair, orders []*domain.Order, price decimal.Decimal) (domain.ClearingPrice, error) {
	parts, err := normalize(pair, orders)
	if err != nil {
		return domain.ClearingPrice{}, err
	}
	if err := validate(parts, price); err != nil {
		return domain.ClearingPrice{}, err
	}
	return domain.ClearingPrice{
		Pair:       pair,
		Price:      price,
		Confidence: confidence(parts, price),
	}, nil
}

// derivePrice is the single dispatch point over the strategy set.
func (e *Engine) derivePrice(ctx context.Context, pair domain.TokenPair, parts []participant) (decimal.Decimal, error) {
	switch e.strategy {
	case MidPoint:
		return midpointPrice(parts)
	case VolumeWeighted:
		return volumeWeightedPrice(parts)
	case MarketPrice:
		return e.marketPrice(ctx, pair, parts)
	case MaxSurplus:
		return maxSurplusPrice(parts)
	default:
		return midpointPrice(parts)
	}
}

// midpointPrice averages the lowest and highest normalized limit price.
func midpointPrice(parts []participant) (decimal.Decimal, error) {
	lo, hi := limitExtremes(parts)
	return lo.Add(hi).Div(two), nil
}

// volumeWeightedPrice weights each participant's limit by its base volume.
func volumeWeightedPrice(parts []participant) (decimal.Decimal, error) {
	sum, weight := decimal.Zero, decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p.limit.Mul(p.volume))
		weight = weight.Add(p.volume)
	}
	if weight.IsZero() {
		return decimal.Zero, ErrPriceInfeasible
	}
	return sum.Div(weight), nil
}

// marketPrice uses a fresh oracle hint when one exists; staleness or absence
// silently falls back to VolumeWeighted.
func (e *Engine) marketPrice(ctx context.Context, pair domain.TokenPair, parts []participant) (decimal.Decimal, error) {
	octx, cancel := context.WithTimeout(ctx, e.oracleTimeout)
	defer cancel()
	if hint, ok := e.oracle.Price(octx, pair); ok {
		return hint.Price, nil
	}
	e.logger.Debug("no fresh oracle price, falling back to volume weighted",
		zap.String("pair", pair.String()))
	return volumeWeightedPrice(parts)
}

// maxSurplusPrice searches the feasible band on a fixed grid for the price
// maximizing total surplus. An empty band fails with ErrPriceInfeasible.
func maxSurplusPrice(parts []participant) (decimal.Decimal, error) {
	lo, hi, ok := feasibleBand(parts)
	if !ok {
		return decimal.Zero, ErrPriceInfeasible
	}
	if lo.Equal(hi) {
		return lo, nil
	}

	step := hi.Sub(lo).Div(decimal.NewFromInt(maxSurplusSteps))
	best, bestSurplus := lo, totalSurplus(parts, lo)
	for i := 1; i <= maxSurplusSteps; i++ {
		price := lo.Add(step.Mul(decimal.NewFromInt(int64(i))))
		if price.GreaterThan(hi) {
			price = hi
		}
		if s := totalSurplus(parts, price); s.GreaterThan(bestSurplus) {
			best, bestSurplus = price, s
		}
	}
	return best, nil
}

// OrderSurplus returns the favorable difference between the order's limit and
// the clearing price, in quote token units, together with the protocol fee.
// The fee is capped so the trader's remaining surplus stays non-negative.
func (e *Engine) OrderSurplus(order *domain.Order, cp domain.ClearingPrice) (surplus, fee decimal.Decimal) {
	p, err := toParticipant(cp.Pair, order)
	if err != nil {
		return decimal.Zero, decimal.Zero
	}
	surplus = participantSurplus(p, cp.Price)
	if surplus.IsNegative() {
		surplus = decimal.Zero
	}
	fee = surplus.Mul(e.feeFraction)
	if fee.GreaterThan(surplus) {
		fee = surplus
	}
	return surplus, fee
}

// MinConfidence returns the engine's confidence floor.
func (e *Engine) MinConfidence() decimal.Decimal {
	return e.minConfidence
}

func normalize(pair domain.TokenPair, orders []*domain.Order) ([]participant, error) {
	parts := make([]participant, 0, len(orders))
	for _, o := range orders {
		p, err := toParticipant(pair, o)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, ErrPriceInfeasible
	}
	return parts, nil
}

func toParticipant(pair domain.TokenPair, o *domain.Order) (participant, error) {
	lp := o.LimitPrice()
	if lp.LessThanOrEqual(decimal.Zero) {
		return participant{}, ErrPriceInfeasible
	}
	if pair.Inverted(o.SellToken) {
		// Sells quote, buys base: the limit caps the price it pays.
		return participant{order: o, limit: one.Div(lp), volume: o.MinBuyAmount, sellsBase: false}, nil
	}
	return participant{order: o, limit: lp, volume: o.SellAmount, sellsBase: true}, nil
}

// feasibleBand intersects all participant limit constraints. Base sellers push
// the floor up, quote sellers pull the ceiling down.
func feasibleBand(parts []participant) (lo, hi decimal.Decimal, ok bool) {
	haveLo, haveHi := false, false
	for _, p := range parts {
		if p.sellsBase {
			if !haveLo || p.limit.GreaterThan(lo) {
				lo, haveLo = p.limit, true
			}
		} else {
			if !haveHi || p.limit.LessThan(hi) {
				hi, haveHi = p.limit, true
			}
		}
	}
	if !haveLo {
		lo = hi
	}
	if !haveHi {
		hi = lo
	}
	if lo.GreaterThan(hi) {
		return decimal.Zero, decimal.Zero, false
	}
	return lo, hi, true
}

func limitExtremes(parts []participant) (lo, hi decimal.Decimal) {
	lo, hi = parts[0].limit, parts[0].limit
	for _, p := range parts[1:] {
		if p.limit.LessThan(lo) {
			lo = p.limit
		}
		if p.limit.GreaterThan(hi) {
			hi = p.limit
		}
	}
	return lo, hi
}

func validate(parts []participant, price decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return ErrPriceInfeasible
	}
	for _, p := range parts {
		if p.sellsBase && price.LessThan(p.limit) {
			return ErrPriceInfeasible
		}
		if !p.sellsBase && price.GreaterThan(p.limit) {
			return ErrPriceInfeasible
		}
	}
	return nil
}

// confidence narrows with the spread of participant limits around the price.
func confidence(parts []participant, price decimal.Decimal) decimal.Decimal {
	lo, hi := limitExtremes(parts)
	if price.IsZero() {
		return decimal.Zero
	}
	return clamp01(one.Sub(hi.Sub(lo).Div(price)))
}

func participantSurplus(p participant, price decimal.Decimal) decimal.Decimal {
	if p.sellsBase {
		return price.Sub(p.limit).Mul(p.volume)
	}
	return p.limit.Sub(price).Mul(p.volume)
}

func totalSurplus(parts []participant, price decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(participantSurplus(p, price))
	}
	return total
}

func clamp01(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if d.GreaterThan(one) {
		return one
	}
	return d
}
