// Package businessflow contains the core business logic for the number-hold and ledger engine
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserBanned   = errors.New("user is banned")

	// Ledger errors
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Allocation errors
	ErrInvalidBatchSize      = errors.New("batch size must be between 1 and the configured maximum")
	ErrInsufficientBalance   = errors.New("balance does not cover the range price")
	ErrInsufficientInventory = errors.New("not enough available numbers in the range")
	// ErrAllocationConflict means two allocations raced for the same number;
	// the loser may retry immediately, the re-read sees fresh availability.
	ErrAllocationConflict = errors.New("allocation conflict, retry")

	// Hold lifecycle errors
	ErrHoldNotFound = errors.New("hold not found")

	// Catalog errors
	ErrRangeNotFound           = errors.New("range not found")
	ErrRangeNameRequired       = errors.New("range name is required")
	ErrNoNumbersProvided       = errors.New("no phone numbers provided")
	ErrNumberAssignedElsewhere = errors.New("phone number already assigned to a different range")
	ErrRangeHasTemporaryHolds  = errors.New("range has outstanding temporary holds")

	// Pricing errors
	ErrNonPositivePrice = errors.New("price must be positive")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predicates for the handler layer. Each user-facing failure maps to a
// distinct message because the corrective action differs: top up, pick
// another range, or just retry.

func IsUserNotFound(err error) bool          { return errors.Is(err, ErrUserNotFound) }
func IsUserBanned(err error) bool            { return errors.Is(err, ErrUserBanned) }
func IsNonPositiveAmount(err error) bool     { return errors.Is(err, ErrNonPositiveAmount) }
func IsInsufficientFunds(err error) bool     { return errors.Is(err, ErrInsufficientFunds) }
func IsInvalidBatchSize(err error) bool      { return errors.Is(err, ErrInvalidBatchSize) }
func IsInsufficientBalance(err error) bool   { return errors.Is(err, ErrInsufficientBalance) }
func IsInsufficientInventory(err error) bool { return errors.Is(err, ErrInsufficientInventory) }
func IsAllocationConflict(err error) bool    { return errors.Is(err, ErrAllocationConflict) }
func IsHoldNotFound(err error) bool          { return errors.Is(err, ErrHoldNotFound) }
func IsRangeNotFound(err error) bool         { return errors.Is(err, ErrRangeNotFound) }
func IsNumberAssignedElsewhere(err error) bool {
	return errors.Is(err, ErrNumberAssignedElsewhere)
}
func IsRangeHasTemporaryHolds(err error) bool { return errors.Is(err, ErrRangeHasTemporaryHolds) }
