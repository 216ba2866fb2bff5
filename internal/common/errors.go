package common

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeCSRFFailed         ErrorCode = "CSRF_VALIDATION_FAILED"
	CodeSessionExpired     ErrorCode = "SESSION_EXPIRED"
	CodeDuplicateEmail     ErrorCode = "DUPLICATE_EMAIL"
	CodeEmailNotVerified   ErrorCode = "EMAIL_NOT_VERIFIED"
	CodeAlreadyRegistered  ErrorCode = "ALREADY_REGISTERED"
	CodeOTPNotFound        ErrorCode = "OTP_NOT_FOUND"
	CodeOTPExpired         ErrorCode = "OTP_EXPIRED"
	CodeInvalidOTP         ErrorCode = "INVALID_OTP"
	CodeTooManyAttempts    ErrorCode = "TOO_MANY_ATTEMPTS"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError is an error with a stable code and a message that is safe to show
// to API clients. Two AppErrors match under errors.Is when their codes match.
type AppError struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.cause }

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func NewError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and client message to an underlying error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, cause: err}
}

var (
	ErrNotFound           = NewError(CodeNotFound, "requested resource not found")
	ErrUnauthorized       = NewError(CodeUnauthorized, "authentication required")
	ErrForbidden          = NewError(CodeForbidden, "insufficient permissions")
	ErrValidation         = NewError(CodeValidation, "validation failed")
	ErrConflict           = NewError(CodeConflict, "resource conflict")
	ErrInternalServer     = NewError(CodeInternal, "internal server error")
	ErrSessionExpired     = NewError(CodeSessionExpired, "session expired, please sign in again")
	ErrServiceUnavailable = NewError(CodeServiceUnavailable, "service unavailable")
	ErrInvalidCredentials = NewError(CodeUnauthorized, "Invalid email or password")
	ErrRateLimited        = NewError(CodeRateLimitExceeded, "Too many requests, please try again later")
)

// ErrDuplicate is returned by repositories when a unique constraint rejects a
// write. It is deliberately not an AppError: services decide which client
// facing code it becomes.
var ErrDuplicate = errors.New("duplicate key")

// DuplicateKeyError names the constraint behind an ErrDuplicate.
type DuplicateKeyError struct {
	Constraint string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key violates %q", e.Constraint)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicate }

// RateLimitError reports a rejected request together with the window state,
// which the API layer turns into Retry-After and X-RateLimit-* headers.
type RateLimitError struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d exceeded, resets at %s", e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == CodeRateLimitExceeded
}

// Validationf builds a VALIDATION_ERROR with a formatted message.
func Validationf(format string, args ...interface{}) *AppError {
	return NewError(CodeValidation, fmt.Sprintf(format, args...))
}

// CodeFromError returns the client-facing code for err.
func CodeFromError(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return CodeRateLimitExceeded
	}
	if errors.Is(err, ErrDuplicate) {
		return CodeConflict
	}
	return CodeInternal
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch CodeFromError(err) {
	case CodeValidation, CodeOTPNotFound, CodeOTPExpired, CodeInvalidOTP:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeSessionExpired:
		return http.StatusUnauthorized
	case CodeForbidden, CodeCSRFFailed, CodeEmailNotVerified:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateEmail, CodeAlreadyRegistered:
		return http.StatusConflict
	case CodeRateLimitExceeded, CodeTooManyAttempts:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
