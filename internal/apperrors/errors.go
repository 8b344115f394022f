package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrForbidden indicates that the actor lacks authorization for the operation.
var ErrForbidden = errors.New("operation not permitted")

// ErrConflict indicates that the operation conflicts with the current state of a resource.
var ErrConflict = errors.New("operation conflicts with current state")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrBusinessRule indicates a balanced-but-rule-breaking condition
// (negative balance, inactive account, out-of-period date, etc.).
var ErrBusinessRule = errors.New("business rule violation")

// ErrInternal indicates an unexpected infrastructure or programming failure.
var ErrInternal = errors.New("internal error")

// AppError carries a status-like code and a human message alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a wrapped AppError with the given code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that satisfies errors.Is(err, ErrNotFound).
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}
