package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchKind distinguishes how a set of orders offsets itself.
type MatchKind string

const (
	MatchDirect MatchKind = "DIRECT"
	MatchRing   MatchKind = "RING"
	MatchBatch  MatchKind = "BATCH"
)

// OrderMatch is a coincidence-of-wants candidate: a set of orders whose needs
// offset each other without external liquidity. Orders are referenced by id,
// never owned.
type OrderMatch struct {
	OrderIDs         []uuid.UUID     `json:"order_ids"`
	Kind             MatchKind       `json:"kind"`
	Quality          decimal.Decimal `json:"quality"`
	EstimatedSurplus decimal.Decimal `json:"estimated_surplus"`
}

// Route is an execution path through liquidity pools for a single order's
// unmatched volume. Pools are referenced by id.
type Route struct {
	OrderID uuid.UUID   `json:"order_id"`
	PoolIDs []uuid.UUID `json:"pool_ids"`
	Path    []Token     `json:"path"`
	// HopAmounts holds the amount held at each node of Path, starting with
	// AmountIn and ending with AmountOut.
	HopAmounts  []decimal.Decimal `json:"hop_amounts"`
	AmountIn    decimal.Decimal   `json:"amount_in"`
	AmountOut   decimal.Decimal   `json:"amount_out"`
	GasEstimate uint64            `json:"gas_estimate"`
	PriceImpact decimal.Decimal   `json:"price_impact"`
	Score       decimal.Decimal   `json:"score"`
}

// Hops returns the number of pool hops in the route.
func (r *Route) Hops() int {
	return len(r.PoolIDs)
}

// EffectiveRate returns the realized exchange rate AmountOut / AmountIn.
func (r *Route) EffectiveRate() decimal.Decimal {
	if r.AmountIn.IsZero() {
		return decimal.Zero
	}
	return r.AmountOut.Div(r.AmountIn)
}

// ClearingPrice is the single uniform price applied to every order settled on a
// token pair within one solution. Price is quoted in quote token per base token
// of the canonical pair.
type ClearingPrice struct {
	Pair       TokenPair       `json:"pair"`
	Price      decimal.Decimal `json:"price"`
	Confidence decimal.Decimal `json:"confidence"`
}

// Solution is the complete outcome of one solve call. It references orders and
// pools by id and is handed to the caller, which owns it thereafter.
type Solution struct {
	Matches      []OrderMatch             `json:"matches"`
	Routes       []Route                  `json:"routes"`
	Prices       map[string]ClearingPrice `json:"prices"`
	TotalSurplus decimal.Decimal          `json:"total_surplus"`
	TotalFees    decimal.Decimal          `json:"total_fees"`
	GasCost      uint64                   `json:"gas_cost"`
	Score        decimal.Decimal          `json:"score"`
	Settlement   SettlementPlan           `json:"settlement"`
}

// OrderIDs returns every order referenced by the solution, matches first.
func (s *Solution) OrderIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Routes)+2*len(s.Matches))
	for _, m := range s.Matches {
		ids = append(ids, m.OrderIDs...)
	}
	for _, r := range s.Routes {
		ids = append(ids, r.OrderID)
	}
	return ids
}
