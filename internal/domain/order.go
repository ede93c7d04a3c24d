package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusExpired   OrderStatus = "EXPIRED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is a limit sell order: the trader gives up SellAmount of SellToken and
// requires at least MinBuyAmount of BuyToken in return. Orders are immutable
// snapshot values; the solver never mutates them.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	Trader            common.Address  `json:"trader"`
	SellToken         Token           `json:"sell_token"`
	BuyToken          Token           `json:"buy_token"`
	SellAmount        decimal.Decimal `json:"sell_amount"`
	MinBuyAmount      decimal.Decimal `json:"min_buy_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
	Status            OrderStatus     `json:"status"`
	PartiallyFillable bool            `json:"partially_fillable"`
}

// LimitPrice returns the minimum acceptable exchange rate in buy token per sell
// token (MinBuyAmount / SellAmount).
func (o *Order) LimitPrice() decimal.Decimal {
	if o.SellAmount.IsZero() {
		return decimal.Zero
	}
	return o.MinBuyAmount.Div(o.SellAmount)
}

// Pair returns the canonical token pair the order trades on.
func (o *Order) Pair() TokenPair {
	return NewTokenPair(o.SellToken, o.BuyToken)
}

// IsExpired reports whether the order has expired at the given time.
func (o *Order) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// Validate checks the order's structural invariants.
func (o *Order) Validate() error {
	if o.ID == uuid.Nil {
		return fmt.Errorf("order id is required")
	}
	if o.SellAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("sell amount must be positive, got %s", o.SellAmount)
	}
	if o.MinBuyAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("min buy amount must be positive, got %s", o.MinBuyAmount)
	}
	if o.SellToken.Equal(o.BuyToken) {
		return fmt.Errorf("sell and buy tokens must differ")
	}
	if o.ExpiresAt.IsZero() {
		return fmt.Errorf("expiry must be set")
	}
	return nil
}
