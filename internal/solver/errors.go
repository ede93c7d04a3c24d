package solver

import "fmt"

// Error codes surfaced by the solver. Per-order conditions (invalid order, no
// liquidity) are logged and skipped during a solve; batch-level conditions end
// the solve call.
const (
	CodeInvalidOrder    = "INVALID_ORDER"
	CodeNoLiquidity     = "NO_LIQUIDITY"
	CodePriceInfeasible = "PRICE_INFEASIBLE"
	CodeTimeout         = "TIMEOUT"
	CodeConfigError     = "CONFIG_ERROR"
)

// SolverError is a typed error with a stable machine-readable code.
type SolverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSolverError creates a solver error with the given code and message.
func NewSolverError(code, message string) *SolverError {
	return &SolverError{Code: code, Message: message}
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
