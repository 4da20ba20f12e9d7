package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Account errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrGoalNotFound       = errors.New("goal not found")

	// Transaction errors
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")

	// Sync errors
	ErrSyncInProgress         = errors.New("sync already running for credential")
	ErrCredentialInconsistent = errors.New("credential has no linked accounts")
	ErrUnmatchedAccount       = errors.New("provider account is not linked")
	ErrProviderUnavailable    = errors.New("provider unavailable")
	ErrProviderRateLimited    = errors.New("provider rate limit exceeded")

	// Categorization errors
	ErrQuotaExceeded           = errors.New("classification quota exceeded")
	ErrCategorizationAborted   = errors.New("categorization aborted")
	ErrCategorizationRunning   = errors.New("categorization already running")
	ErrMalformedClassification = errors.New("malformed classification result")
)

// QuotaError reports quota exhaustion together with the wait the service asked for.
type QuotaError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: retry after %s", ErrQuotaExceeded, e.RetryAfter)
	}
	return ErrQuotaExceeded.Error()
}

// Is lets errors.Is(err, ErrQuotaExceeded) match any QuotaError.
func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

func (e *QuotaError) Unwrap() error {
	return e.Err
}
