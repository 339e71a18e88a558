package vesting

import (
	"errors"
	"fmt"

	"github.com/xraph/vesting/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Command errors
	ErrUnauthorized     = errors.New("vesting: unauthorized")
	ErrNeedFunds        = errors.New("vesting: no funds attached")
	ErrNotSupportToken  = errors.New("vesting: currency not supported")
	ErrNoPendingTokens  = errors.New("vesting: no pending tokens")
	ErrNotEnoughBalance = errors.New("vesting: treasury balance too low")
	ErrNotFound         = errors.New("vesting: not found")
	ErrInvalidAddress   = errors.New("vesting: invalid address")
	ErrInvalidCurve     = errors.New("vesting: invalid vesting curve")
	ErrInvalidInput     = errors.New("vesting: invalid input")
	ErrOverflow         = types.ErrOverflow

	// Lifecycle errors
	ErrNotInitialized     = errors.New("vesting: not initialized")
	ErrAlreadyInitialized = errors.New("vesting: already initialized")

	// Store errors
	ErrStoreClosed       = errors.New("vesting: store is closed")
	ErrTransactionFailed = errors.New("vesting: transaction failed")
	ErrMigrationFailed   = errors.New("vesting: migration failed")

	// ErrReconciliationRequired means a committed release could be neither
	// disbursed nor reverted. The entry and the token ledger disagree until an
	// operator settles it; resubmitting does not help.
	ErrReconciliationRequired = errors.New("vesting: reconciliation required")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("vesting: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel the failure belongs to.
func (e ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError returns true if the caller was rejected by authorization.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRetryable returns true if the error is temporary and the command can be
// resubmitted unchanged. A failed commit never follows an issued instruction,
// so ErrTransactionFailed is always safe to resubmit.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
