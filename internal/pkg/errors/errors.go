// Package errors provides custom error types and error handling utilities.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes.
const (
	// Caller errors, never retried.
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Upstream errors.
	CodeTimeout           = "TIMEOUT"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
	CodeRateLimited       = "RATE_LIMITED"
	CodeUpstreamTransient = "UPSTREAM_TRANSIENT"
	CodeUpstreamPermanent = "UPSTREAM_PERMANENT"

	// Server errors.
	CodeInternal = "INTERNAL_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a caller may retry the failed operation.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeTimeout, CodeUnavailable, CodeRateLimited, CodeUpstreamTransient:
		return true
	default:
		return false
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// TransientError marks an upstream failure that may succeed on retry.
func TransientError(operation string, err error) *AppError {
	return Wrap(CodeUpstreamTransient, fmt.Sprintf("%s failed", operation), err)
}

// PermanentError marks an upstream failure that will not succeed on retry.
func PermanentError(operation string, err error) *AppError {
	return Wrap(CodeUpstreamPermanent, fmt.Sprintf("%s failed", operation), err)
}

// TimeoutError creates a timeout error for a specific operation.
func TimeoutError(operation string) *AppError {
	message := "operation timed out"
	if operation != "" {
		message = fmt.Sprintf("%s timed out", operation)
	}
	return New(CodeTimeout, message)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// FromGRPC classifies an error returned by a gRPC upstream such as Qdrant.
func FromGRPC(operation string, err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeTimeout, fmt.Sprintf("%s timed out", operation), err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return TransientError(operation, err)
	}

	switch st.Code() {
	case codes.DeadlineExceeded:
		return Wrap(CodeTimeout, fmt.Sprintf("%s timed out", operation), err)
	case codes.Unavailable, codes.Aborted, codes.Canceled:
		return TransientError(operation, err)
	case codes.ResourceExhausted:
		return Wrap(CodeRateLimited, fmt.Sprintf("%s rate limited", operation), err)
	case codes.NotFound:
		return Wrap(CodeNotFound, fmt.Sprintf("%s: resource not found", operation), err)
	case codes.PermissionDenied:
		return Wrap(CodeForbidden, fmt.Sprintf("%s: permission denied", operation), err)
	case codes.Unauthenticated:
		return Wrap(CodeUnauthorized, fmt.Sprintf("%s: bad credentials", operation), err)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return Wrap(CodeValidation, fmt.Sprintf("%s: invalid request", operation), err)
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return TransientError(operation, err)
	default:
		return PermanentError(operation, err)
	}
}

// FromHTTPStatus classifies an error returned by an HTTP upstream.
func FromHTTPStatus(operation string, statusCode int, err error) *AppError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return Wrap(CodeRateLimited, fmt.Sprintf("%s rate limited", operation), err)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return Wrap(CodeTimeout, fmt.Sprintf("%s timed out", operation), err)
	case statusCode == http.StatusUnauthorized:
		return Wrap(CodeUnauthorized, fmt.Sprintf("%s: bad credentials", operation), err)
	case statusCode == http.StatusForbidden:
		return Wrap(CodeForbidden, fmt.Sprintf("%s: permission denied", operation), err)
	case statusCode == http.StatusNotFound:
		return Wrap(CodeNotFound, fmt.Sprintf("%s: resource not found", operation), err)
	case statusCode >= 500:
		return TransientError(operation, err)
	case statusCode >= 400:
		return PermanentError(operation, err)
	default:
		return TransientError(operation, err)
	}
}

// As extracts an *AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in the chain, or CodeInternal.
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// IsRetryable reports whether err is worth retrying.
// Context deadlines count as timeouts; cancellation does not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := As(err); ok {
		return appErr.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}
