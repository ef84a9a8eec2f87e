package model

import "errors"

// Common errors used across the application
var (
	// Input errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrTierUnknown   = errors.New("tier unknown")
	ErrBetOutOfRange = errors.New("bet out of range")

	// Auth errors
	ErrAuthRejected   = errors.New("identity envelope rejected")
	ErrEnvelopeStale  = errors.New("identity envelope is stale")
	ErrInvalidSession = errors.New("invalid or expired session")

	// Entity errors
	ErrUnknownPlayer = errors.New("unknown player")
	ErrRoomNotFound  = errors.New("room not found")

	// State conflicts
	ErrRoomNotOpen     = errors.New("room is not open")
	ErrAlreadySeated   = errors.New("player already holds a seat")
	ErrTierAlreadyOpen = errors.New("tier already has an open room")
	ErrStateMismatch   = errors.New("room status mismatch")

	// Balance errors
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTimeout           = errors.New("backing store deadline exceeded")

	// Transient errors, safe to retry
	ErrRoomJustFilled = errors.New("room just filled")
	ErrNoOpenRoom     = errors.New("no open room for tier")

	// Fatal errors
	ErrEmptyDraw          = errors.New("draw requires at least one entry")
	ErrInvalidBet         = errors.New("draw entry has non-positive bet")
	ErrInvariantViolation = errors.New("invariant violated")

	// Archive errors
	ErrArchiveDisabled = errors.New("archive disabled")
)
