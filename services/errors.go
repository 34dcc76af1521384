package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/court-scheduler/brackets"
	"github.com/Dosada05/court-scheduler/repositories"
)

// Категории ошибок. Конкретные ошибки оборачивают одну из них, handlers
// маппят по errors.Is.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict with current state")
	ErrTransient        = errors.New("temporary failure, retry later")
	ErrArchiveDisabled  = errors.New("snapshot archive is not configured")
)

var (
	ErrBracketKeyInvalid = fmt.Errorf("%w: tournament and bracket ids must be positive", ErrValidationFailed)
	ErrCourtIDInvalid    = fmt.Errorf("%w: court id must be positive", ErrValidationFailed)
	ErrMatchIDInvalid    = fmt.Errorf("%w: match id must be positive", ErrValidationFailed)
	ErrBracketNotFound   = fmt.Errorf("%w: bracket", ErrNotFound)
)

// Коды для realtime-канала
const (
	CodeValidation = "validation"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeTransient  = "transient"
	CodeInternal   = "internal"
)

// classify attaches a category to errors coming from the scheduler core and
// the repositories. Errors that already carry a category pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidationFailed),
		errors.Is(err, ErrConflict), errors.Is(err, ErrTransient):
		return err

	case errors.Is(err, repositories.ErrBracketNotFound):
		return ErrBracketNotFound
	case errors.Is(err, brackets.ErrCourtNotFound),
		errors.Is(err, brackets.ErrMatchNotFound),
		errors.Is(err, repositories.ErrMatchNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)

	case errors.Is(err, brackets.ErrCourtSpecInvalid),
		errors.Is(err, brackets.ErrCourtNameInvalid):
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)

	case errors.Is(err, brackets.ErrCourtNotIdle),
		errors.Is(err, brackets.ErrInvalidTransition),
		errors.Is(err, brackets.ErrParticipantBusy):
		return fmt.Errorf("%w: %w", ErrConflict, err)

	case errors.Is(err, repositories.ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

// ErrorCode maps an error to the stable code used on the realtime channel.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidationFailed):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrTransient):
		return CodeTransient
	default:
		return CodeInternal
	}
}
