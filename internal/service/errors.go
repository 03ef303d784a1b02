package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds returned by the marketplace services. Match them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrValidation   = errors.New("validation error")
)

// Error carries an error kind together with a human readable detail.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Detail: fmt.Sprintf(format, args...)}
}

func invalidState(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Detail: fmt.Sprintf(format, args...)}
}

func unavailable(format string, args ...any) error {
	return &Error{Kind: ErrUnavailable, Detail: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Detail: fmt.Sprintf(format, args...)}
}

// lookup translates a missing record into ErrNotFound and wraps anything else.
func lookup(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("%s %d not found", entity, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}
