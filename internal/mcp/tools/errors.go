package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/replay"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeSessionError = "SESSION_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeDetached     = "DETACHED"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapSessionError converts a browser, capture API or observer error to a coded error.
func WrapSessionError(err error) error {
	if err == nil {
		return nil
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return err
	}

	var apiErr *replay.APIError
	var netErr net.Error
	switch {
	case errors.Is(err, observer.ErrDetached):
		coded = &CodedError{
			Code:    ErrCodeDetached,
			Message: "observer is no longer recording",
			Cause:   err,
		}
	case errors.As(err, &apiErr) && apiErr.StatusCode == 404:
		coded = &CodedError{
			Code:    ErrCodeNotFound,
			Message: apiErr.Message,
			Cause:   err,
		}
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		coded = &CodedError{
			Code:    ErrCodeTimeout,
			Message: "operation timed out",
			Cause:   err,
		}
	default:
		coded = &CodedError{
			Code:    ErrCodeSessionError,
			Message: err.Error(),
			Cause:   err,
		}
	}

	slog.Warn("session error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
