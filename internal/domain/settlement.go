package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gas accounting constants for settlement plans.
const (
	settlementBaseGas = 21000
	gasPerTrade       = 50000
	gasPerInteraction = 100000
)

// Trade records the executed amounts of one order inside a settlement.
type Trade struct {
	OrderID            uuid.UUID       `json:"order_id"`
	ExecutedSellAmount decimal.Decimal `json:"executed_sell_amount"`
	ExecutedBuyAmount  decimal.Decimal `json:"executed_buy_amount"`
	Fee                decimal.Decimal `json:"fee"`
}

// Interaction is an abstract pool swap the settlement executes. Translating it
// into calldata is the settlement builder collaborator's job, not the core's.
type Interaction struct {
	PoolID       uuid.UUID       `json:"pool_id"`
	TokenIn      Token           `json:"token_in"`
	TokenOut     Token           `json:"token_out"`
	AmountIn     decimal.Decimal `json:"amount_in"`
	MinAmountOut decimal.Decimal `json:"min_amount_out"`
}

// SettlementPlan is the abstract description of everything one solution
// executes: trades, pool interactions and the clearing prices they settle at.
type SettlementPlan struct {
	Trades         []Trade                  `json:"trades"`
	Interactions   []Interaction            `json:"interactions"`
	ClearingPrices map[string]ClearingPrice `json:"clearing_prices"`
}

// NewSettlementPlan returns an empty plan.
func NewSettlementPlan() SettlementPlan {
	return SettlementPlan{ClearingPrices: make(map[string]ClearingPrice)}
}

// AddTrade appends a trade to the plan.
func (s *SettlementPlan) AddTrade(t Trade) {
	s.Trades = append(s.Trades, t)
}

// AddInteraction appends a pool interaction to the plan.
func (s *SettlementPlan) AddInteraction(i Interaction) {
	s.Interactions = append(s.Interactions, i)
}

// SetClearingPrice records the uniform price for a pair.
func (s *SettlementPlan) SetClearingPrice(p ClearingPrice) {
	if s.ClearingPrices == nil {
		s.ClearingPrices = make(map[string]ClearingPrice)
	}
	s.ClearingPrices[p.Pair.Key()] = p
}

// EstimateGas returns the estimated total gas of executing the plan.
func (s *SettlementPlan) EstimateGas() uint64 {
	return uint64(settlementBaseGas + len(s.Trades)*gasPerTrade + len(s.Interactions)*gasPerInteraction)
}

// Validate checks that the plan is internally consistent: it contains at least
// one trade and every trade's pair carries a clearing price.
func (s *SettlementPlan) Validate(orders map[uuid.UUID]*Order) error {
	if len(s.Trades) == 0 {
		return fmt.Errorf("settlement must contain at least one trade")
	}
	for _, t := range s.Trades {
		order, ok := orders[t.OrderID]
		if !ok {
			return fmt.Errorf("trade references unknown order %s", t.OrderID)
		}
		if _, ok := s.ClearingPrices[order.Pair().Key()]; !ok {
			return fmt.Errorf("missing clearing price for pair %s", order.Pair())
		}
	}
	return nil
}
