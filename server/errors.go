package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aqua777/docquery/ingestion"
)

// Common sentinel errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// AppError represents an application-specific error with an HTTP status code.
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

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapError maps an error to an AppError. Anything unrecognised is a 500
// whose message carries the cause.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ingestion.ErrNoFiles) {
		return NewAppError(http.StatusUnprocessableEntity, err.Error(), err)
	}
	if errors.Is(err, ErrNotFound) {
		return NewAppError(http.StatusNotFound, err.Error(), err)
	}

	return NewAppError(http.StatusInternalServerError, "Server error: "+err.Error(), err)
}
