package config

import "errors"

// Sentinel errors for the marketplace core. Operations wrap these with
// fmt.Errorf("%w: ...") so callers can match with errors.Is while still
// surfacing a specific message.
var (
	ErrInvalidConfig = errors.New("invalid configuration")

	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("invalid state")
	ErrPaymentRequired     = errors.New("payment required")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrEmptyQueue          = errors.New("no approved bids in queue")
	ErrVerificationFailed  = errors.New("payment verification failed")
	ErrConflict            = errors.New("concurrent modification conflict")
	ErrInvalidInput        = errors.New("invalid input")
)
