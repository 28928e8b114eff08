package domain

import "errors"

// Engine failure taxonomy. Every instruction failure maps onto exactly one of
// these sentinels; callers match with errors.Is to decide between retrying
// with refreshed state (races) and abandoning (authorization/logic errors).
var (
	ErrAlreadyInitialized         = errors.New("already initialized")
	ErrInvalidArgument            = errors.New("invalid argument")
	ErrInvalidStatusTransition    = errors.New("invalid status transition")
	ErrInvalidTimeWindow          = errors.New("invalid time window")
	ErrMarketNotActive            = errors.New("market not active")
	ErrMarketNotResolved          = errors.New("market not resolved")
	ErrProtocolPaused             = errors.New("protocol paused")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrNotFound                   = errors.New("not found")
	ErrInsufficientBalance        = errors.New("insufficient balance")
	ErrInsufficientUnfilledAmount = errors.New("insufficient unfilled amount")
	ErrDuplicateOutcome           = errors.New("duplicate outcome")
	ErrPriceConstraintViolated    = errors.New("price constraint violated")
	ErrOrderNotCancellable        = errors.New("order not cancellable")
	ErrNothingToClaim             = errors.New("nothing to claim")
	ErrTooEarly                   = errors.New("too early")
	ErrChallengeWindowOpen        = errors.New("challenge window open")
	ErrChallengeWindowClosed      = errors.New("challenge window closed")
	ErrProposalPending            = errors.New("proposal already pending")
	ErrDisputePending             = errors.New("dispute pending external resolution")
)

// Infrastructure errors shared by stores and caches.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrLockHeld    = errors.New("lock held by another party")
	ErrContextDone = errors.New("context cancelled")
)
