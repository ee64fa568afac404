package types

import "errors"

// All user-facing validation failures surface as recoverable sentinel errors;
// callers match them with errors.Is. State is never mutated on the error path.
var (
	ErrNotInitialized     = errors.New("dustvault: not initialized")
	ErrAlreadyInitialized = errors.New("dustvault: already initialized")
	ErrUnauthorized       = errors.New("dustvault: unauthorized")
	ErrPaused             = errors.New("dustvault: contract paused")
	ErrEmergencyMode      = errors.New("dustvault: emergency mode")

	ErrInvalidAmount       = errors.New("dustvault: invalid amount")
	ErrInsufficientBalance = errors.New("dustvault: insufficient balance")
	ErrLengthMismatch      = errors.New("dustvault: tokens and amounts length mismatch")
	ErrEmptyBatch          = errors.New("dustvault: empty batch")
	ErrInvalidSlippage     = errors.New("dustvault: slippage tolerance exceeds 10000 bps")
	ErrZeroAddress         = errors.New("dustvault: zero address")

	ErrInvalidPool            = errors.New("dustvault: invalid lending pool")
	ErrInvalidFeeRate         = errors.New("dustvault: fee rate exceeds 10000 bps")
	ErrPoolFrozen             = errors.New("dustvault: pool frozen")
	ErrPoolFrozenOrOnIce      = errors.New("dustvault: pool frozen or on ice")
	ErrInsufficientCollateral = errors.New("dustvault: withdrawal exceeds supplied collateral")
	ErrExceedsDebt            = errors.New("dustvault: repayment exceeds tracked debt")

	ErrInvalidSwapPath      = errors.New("dustvault: invalid swap path")
	ErrProfitBelowThreshold = errors.New("dustvault: profit below threshold")
	ErrHealthFactorTooLow   = errors.New("dustvault: health factor too low")
	ErrStaleOracle          = errors.New("dustvault: stale oracle data")
)
