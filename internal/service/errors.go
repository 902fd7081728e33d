package service

import (
	"errors"
	"fmt"

	"go-digital-inventory/internal/repository"
	"go-digital-inventory/pkg/validator"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrPersistence        = errors.New("persistence failure")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// validationError carries a caller-facing message and classifies as
// ErrValidation.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...interface{}) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// validate runs the struct rules and reports the first failure.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return &validationError{msg: validator.Message(errs)}
	}
	return nil
}

func notFound(what string, id uint) error {
	return fmt.Errorf("%s %d %w", what, id, ErrNotFound)
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// lookupErr maps a repository lookup failure onto the service taxonomy.
func lookupErr(what string, id uint, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(what, id)
	}
	return persistence("loading "+what, err)
}
