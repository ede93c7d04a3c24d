// Package oracle defines the narrow price-hint boundary the solver core depends
// on. Implementations that reach the network live outside the core; the solver
// must keep functioning when lookups return nothing.
package oracle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

// PriceHint is an externally observed price for a token pair, quoted in quote
// token per base token of the canonical pair.
type PriceHint struct {
	Pair       domain.TokenPair `json:"pair"`
	Price      decimal.Decimal  `json:"price"`
	ObservedAt time.Time        `json:"observed_at"`
}

// PriceOracle looks up an external price for a token pair. Implementations
// must respect the context deadline; a (zero, false) return means no fresh
// price is available and is never an error.
type PriceOracle interface {
	Price(ctx context.Context, pair domain.TokenPair) (PriceHint, bool)
}

// StaticOracle serves prices from an in-memory snapshot with a freshness
// window. It backs tests and file-driven batch runs; live deployments inject a
// network-backed implementation instead.
type StaticOracle struct {
	hints  map[string]PriceHint
	maxAge time.Duration
	now    func() time.Time
}

// NewStaticOracle builds an oracle over the given hints. Hints older than
// maxAge at lookup time are treated as absent.
func NewStaticOracle(hints []PriceHint, maxAge time.Duration) *StaticOracle {
	m := make(map[string]PriceHint, len(hints))
	for _, h := range hints {
		m[h.Pair.Key()] = h
	}
	return &StaticOracle{hints: m, maxAge: maxAge, now: time.Now}
}

// Price returns the stored hint for the pair if it is still fresh.
func (o *StaticOracle) Price(ctx context.Context, pair domain.TokenPair) (PriceHint, bool) {
	if err := ctx.Err(); err != nil {
		return PriceHint{}, false
	}
	h, ok := o.hints[pair.Key()]
	if !ok {
		return PriceHint{}, false
	}
	if o.maxAge > 0 && o.now().Sub(h.ObservedAt) > o.maxAge {
		return PriceHint{}, false
	}
	if h.Price.LessThanOrEqual(decimal.Zero) {
		return PriceHint{}, false
	}
	return h, true
}

// WithClock overrides time lookup; tests use it to age hints deterministically.
func (o *StaticOracle) WithClock(now func() time.Time) *StaticOracle {
	o.now = now
	return o
}

// Nop is an oracle that never returns a price.
type Nop struct{}

func (Nop) Price(context.Context, domain.TokenPair) (PriceHint, bool) {
	return PriceHint{}, false
}
