package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrStorageFailure     = errors.New("storage backend failure")
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	ErrInternal           = errors.New("internal error")
)

// AppError carries one of the sentinel kinds above, a message safe to show
// to clients, and the underlying cause (if any) for logs.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func NewError(kind error, msg string, cause error) *AppError {
	return &AppError{Kind: kind, Message: msg, Err: cause}
}

func BadRequest(msg string) *AppError   { return NewError(ErrBadRequest, msg, nil) }
func Unauthorized(msg string) *AppError { return NewError(ErrUnauthorized, msg, nil) }
func Forbidden(msg string) *AppError    { return NewError(ErrForbidden, msg, nil) }
func NotFound(msg string) *AppError     { return NewError(ErrNotFound, msg, nil) }

func Internal(msg string, cause error) *AppError { return NewError(ErrInternal, msg, cause) }

// StatusFor maps an error to the HTTP status it should be reported with.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be sent back to the client.
// Server-side failures never leak their cause.
func PublicMessage(err error) string {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	var ae *AppError
	if errors.As(err, &ae) && StatusFor(err) < fiber.StatusInternalServerError {
		return ae.Message
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return "storage temporarily unavailable"
	}
	return "internal error"
}
