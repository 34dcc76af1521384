package brackets

import "errors"

var (
	ErrCourtSpecInvalid   = errors.New("court spec must contain either a positive count or a list of names")
	ErrCourtNameInvalid   = errors.New("court names must be non-empty and unique")
	ErrCourtNotFound      = errors.New("court not found in bracket")
	ErrCourtNotIdle       = errors.New("court is not idle")
	ErrMatchNotFound      = errors.New("match not found in bracket")
	ErrInvalidTransition  = errors.New("invalid match status transition")
	ErrParticipantBusy    = errors.New("participant is already playing on another court")
	ErrInvariantViolation = errors.New("scheduler invariant violated")
)
