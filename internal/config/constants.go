package config

import "time"

// Settlement Token — USDC
const (
	USDCPolygonContract = "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359" // native USDC on Polygon
	USDCAmoyContract    = "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582" // USDC on Amoy testnet
	USDCDecimals        = 6
	Currency            = "USDC"
)

// Payment Verification
const (
	// Absolute tolerance when comparing on-chain amounts against the
	// expected amount, in USDC.
	AmountTolerance = "0.000001"

	VerifyTimeout    = 30 * time.Second
	MinConfirmations = 3
)

// Allocation
const (
	DefaultFeePercentage = 5
	MaxDurationMinutes   = 7 * 24 * 60
)

// Withdrawal
const (
	DefaultMinWithdrawal = 10 // USDC
)

// Pagination
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Rate Limiting (requests per second)
const (
	RateLimitPerIP      = 5
	RateLimitBurst      = 10
	RateLimitIdleExpiry = 10 * time.Minute
)

// Server
const (
	ServerReadTimeout    = 30 * time.Second
	ServerWriteTimeout   = 60 * time.Second
	ServerIdleTimeout    = 120 * time.Second
	ServerMaxHeaderBytes = 1 << 20
	ShutdownTimeout      = 30 * time.Second
)

// Logging
const (
	LogFilePattern = "ad402-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)

// API error codes
const (
	ErrorInvalidInput        = "INVALID_INPUT"
	ErrorNotFound            = "NOT_FOUND"
	ErrorForbidden           = "FORBIDDEN"
	ErrorInvalidState        = "INVALID_STATE"
	ErrorPaymentRequired     = "PAYMENT_REQUIRED"
	ErrorInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrorEmptyQueue          = "EMPTY_QUEUE"
	ErrorVerificationFailed  = "VERIFICATION_FAILED"
	ErrorConflict            = "CONFLICT"
	ErrorRateLimited         = "RATE_LIMITED"
	ErrorDatabase            = "DATABASE_ERROR"
	ErrorInternal            = "INTERNAL_ERROR"
)
