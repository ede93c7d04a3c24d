package solver

import (
	"time"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

// Snapshot is the immutable input of one solve call: the open orders of the
// batch and the liquidity pools available to route against. The solver never
// mutates it. Timestamp anchors expiry checks; a zero Timestamp means "now".
type Snapshot struct {
	Orders    []domain.Order         `json:"orders"`
	Pools     []domain.LiquidityPool `json:"pools"`
	Timestamp time.Time              `json:"timestamp"`
}

// Status classifies how a solve call ended.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusTimedOut Status = "timed_out"
)

// Reason explains a non-accepted outcome.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoValidOrders   Reason = "no_valid_orders"
	ReasonNoCandidates    Reason = "no_candidates"
	ReasonPriceInfeasible Reason = "price_infeasible"
	ReasonUnprofitable    Reason = "unprofitable"
	ReasonTimeout         Reason = "timeout"
)

// Outcome is the complete result of one solve call. Solution is non-nil only
// when Status is StatusAccepted.
type Outcome struct {
	Status   Status           `json:"status"`
	Reason   Reason           `json:"reason,omitempty"`
	Solution *domain.Solution `json:"solution,omitempty"`
	Elapsed  time.Duration    `json:"elapsed"`
}

// Err maps a non-accepted outcome onto the solver error taxonomy. Accepted
// outcomes and clean business rejections (unprofitable) return nil.
func (o *Outcome) Err() error {
	switch o.Reason {
	case ReasonNoValidOrders:
		return NewSolverError(CodeInvalidOrder, "no orders passed validation")
	case ReasonNoCandidates:
		return NewSolverError(CodeNoLiquidity, "no matches found and no orders routable")
	case ReasonPriceInfeasible:
		return NewSolverError(CodePriceInfeasible, "no viable clearing prices for the batch")
	case ReasonTimeout:
		return NewSolverError(CodeTimeout, "time budget exhausted")
	}
	return nil
}
