package model

import (
	"errors"
	"fmt"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeStockUnitNotFound = "STOCK_UNIT_NOT_FOUND"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeConcurrency       = "CONCURRENCY_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// ValidationError reports caller input rejected before any transaction or
// lock is taken. Line is the offending item index, or -1 for request-level
// problems.
type ValidationError struct {
	Line    int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("%s (item index %d)", e.Message, e.Line)
	}
	return e.Message
}

// NewValidationError creates a request-level validation error.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Line: -1, Message: message}
}

// OrderNotFoundError reports an update or read against an order that does
// not exist.
type OrderNotFoundError struct {
	OrderID int64
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %d not found", e.OrderID)
}

// StockUnitNotFoundError reports a requested stock unit that does not exist.
// Line identifies the offending item in the submitted request.
type StockUnitNotFoundError struct {
	StockUnitID int64
	Line        int
}

func (e *StockUnitNotFoundError) Error() string {
	return fmt.Sprintf("stock unit %d not found (item index %d)", e.StockUnitID, e.Line)
}

// InsufficientStockError reports a reservation exceeding the stock on hand
// at lock time. It aborts the whole transaction; nothing is applied.
type InsufficientStockError struct {
	StockUnitID   int64
	ProductName   string
	VariationName string
	Available     int
	Requested     int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s / %s: available %d, requested %d",
		e.ProductName, e.VariationName, e.Available, e.Requested)
}

// ConcurrencyError wraps a serialization failure, deadlock or lock-wait
// timeout from storage. The transaction rolled back without side effects, so
// the caller may safely retry the identical request.
type ConcurrencyError struct {
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("transaction aborted by concurrent access: %v", e.Err)
}

func (e *ConcurrencyError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a ConcurrencyError anywhere in its
// chain.
func IsRetryable(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}
