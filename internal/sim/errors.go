package sim

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes domain errors returned by the engine facade.
type ErrorCode string

const (
	// ErrCodeInsufficientStock indicates raw material stock cannot cover a reservation.
	ErrCodeInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"

	// ErrCodeInsufficientFunds indicates a strict debit would overdraw the cash balance.
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeNoMachineAvailable indicates no idle machine could be allocated.
	ErrCodeNoMachineAvailable ErrorCode = "NO_MACHINE_AVAILABLE"

	// ErrCodeInvalidArgument indicates a caller-supplied value failed validation
	// before any state was touched.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodePersistenceFailure indicates the store write/read failed. A mutating
	// call that hits this rolls back its in-memory change.
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
)

// Error is a structured domain error. All reachable failures are returned as
// values carrying one of the codes above - never panics, never silent drops.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// JobID identifies the affected job, when one is involved.
	JobID JobID

	// Err is the underlying cause (persistence failures).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.JobID != 0 {
		return fmt.Sprintf("%s: %s (job=%d)", e.Code, e.Message, e.JobID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns "" if the error is not a sim.Error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsInsufficientStock reports whether err is an INSUFFICIENT_STOCK error.
func IsInsufficientStock(err error) bool {
	return CodeOf(err) == ErrCodeInsufficientStock
}

// IsInsufficientFunds reports whether err is an INSUFFICIENT_FUNDS error.
func IsInsufficientFunds(err error) bool {
	return CodeOf(err) == ErrCodeInsufficientFunds
}

// IsNoMachineAvailable reports whether err is a NO_MACHINE_AVAILABLE error.
func IsNoMachineAvailable(err error) bool {
	return CodeOf(err) == ErrCodeNoMachineAvailable
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool {
	return CodeOf(err) == ErrCodeInvalidArgument
}

// IsPersistenceFailure reports whether err is a PERSISTENCE_FAILURE error.
func IsPersistenceFailure(err error) bool {
	return CodeOf(err) == ErrCodePersistenceFailure
}

// NewInsufficientStock creates an INSUFFICIENT_STOCK error.
func NewInsufficientStock(want, have int) *Error {
	return &Error{
		Code:    ErrCodeInsufficientStock,
		Message: fmt.Sprintf("need %d raw material units, have %d", want, have),
	}
}

// NewInsufficientFunds creates an INSUFFICIENT_FUNDS error.
func NewInsufficientFunds(amount, balance float64) *Error {
	return &Error{
		Code:    ErrCodeInsufficientFunds,
		Message: fmt.Sprintf("debit of %.2f exceeds balance %.2f", amount, balance),
	}
}

// NewNoMachineAvailable creates a NO_MACHINE_AVAILABLE error.
func NewNoMachineAvailable() *Error {
	return &Error{
		Code:    ErrCodeNoMachineAvailable,
		Message: "no idle machine",
	}
}

// NewInvalidArgument creates an INVALID_ARGUMENT error.
func NewInvalidArgument(msg string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: msg}
}

// NewPersistenceFailure wraps a store error.
func NewPersistenceFailure(msg string, err error) *Error {
	return &Error{Code: ErrCodePersistenceFailure, Message: msg, Err: err}
}
