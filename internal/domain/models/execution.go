package models

import "fmt"

// ExecutionStatus tags the closed ExecutionResult variant set.
type ExecutionStatus string

const (
	ExecSuccess     ExecutionStatus = "success"
	ExecPartialFill ExecutionStatus = "partial_fill"
	ExecRejected    ExecutionStatus = "rejected"
	ExecError       ExecutionStatus = "error"
)

// ExecutionResult is the executor's terminal outcome for one order. The
// engine propagates it verbatim and never retries.
type ExecutionResult struct {
	Status       ExecutionStatus
	OrderID      string
	FilledQty    float64
	AvgFillPrice float64
	Fee          float64
	Reason       string // rejected
	Err          error  // error
}

// NewExecSuccess builds a fully filled result.
func NewExecSuccess(orderID string, qty, price, fee float64) *ExecutionResult {
	return &ExecutionResult{Status: ExecSuccess, OrderID: orderID, FilledQty: qty, AvgFillPrice: price, Fee: fee}
}

// NewExecPartial builds a partial-fill result.
func NewExecPartial(orderID string, qty, price, fee float64) *ExecutionResult {
	return &ExecutionResult{Status: ExecPartialFill, OrderID: orderID, FilledQty: qty, AvgFillPrice: price, Fee: fee}
}

// NewExecRejected builds a rejection with a named reason.
func NewExecRejected(reason string) *ExecutionResult {
	return &ExecutionResult{Status: ExecRejected, Reason: reason}
}

// NewExecError wraps a transport or exchange failure.
func NewExecError(msg string, cause error) *ExecutionResult {
	return &ExecutionResult{Status: ExecError, Reason: msg, Err: fmt.Errorf("%s: %w", msg, cause)}
}

// IsFill reports whether any quantity was filled.
func (r *ExecutionResult) IsFill() bool {
	return r.Status == ExecSuccess || r.Status == ExecPartialFill
}
