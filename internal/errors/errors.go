package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeNotAuthorized ErrorCode = "NOT_AUTHORIZED"
	ErrCodeInvalidToken  ErrorCode = "INVALID_TOKEN"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Delegated authority
	ErrCodeInvalidState         ErrorCode = "INVALID_STATE"
	ErrCodeExternalAuth         ErrorCode = "EXTERNAL_AUTH_ERROR"
	ErrCodeNoCredential         ErrorCode = "NO_CREDENTIAL"
	ErrCodeIncompleteCredential ErrorCode = "INCOMPLETE_CREDENTIAL"
	ErrCodeRefreshFailed        ErrorCode = "REFRESH_FAILED"
	ErrCodeProviderDisabled     ErrorCode = "PROVIDER_NOT_CONFIGURED"

	// Relay
	ErrCodeFetchFailed      ErrorCode = "FETCH_FAILED"
	ErrCodeUploadFailed     ErrorCode = "UPLOAD_FAILED"
	ErrCodeTransientNetwork ErrorCode = "TRANSIENT_NETWORK_ERROR"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches another AppError by code, so errors.Is(err, NoCredential())
// works regardless of message or cause.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func NotAuthorized(message string) *AppError {
	return New(ErrCodeNotAuthorized, message)
}

func InvalidToken(message string) *AppError {
	return New(ErrCodeInvalidToken, message)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func InvalidState(reason string) *AppError {
	return New(ErrCodeInvalidState, fmt.Sprintf("Invalid authorization state: %s", reason))
}

// ExternalAuth carries the provider's reason (e.g. invalid_grant) in the
// message so the callback page and notifications can show it.
func ExternalAuth(reason string, cause error) *AppError {
	return Wrap(ErrCodeExternalAuth, withReason("Authorization provider rejected the request", reason), cause)
}

func NoCredential() *AppError {
	return New(ErrCodeNoCredential, "No publishing authorization on file; authorize the account first")
}

func IncompleteCredential() *AppError {
	return New(ErrCodeIncompleteCredential, "Stored publishing authorization is incomplete; authorize the account again")
}

func RefreshFailed(reason string, cause error) *AppError {
	return Wrap(ErrCodeRefreshFailed, withReason("Could not refresh publishing authorization", reason)+"; authorize the account again", cause)
}

func withReason(message, reason string) string {
	if reason == "" {
		return message
	}
	return message + ": " + reason
}

func ProviderDisabled() *AppError {
	return New(ErrCodeProviderDisabled, "Publishing provider is not configured")
}

func FetchFailed(reason string, cause error) *AppError {
	return Wrap(ErrCodeFetchFailed, fmt.Sprintf("Failed to fetch asset: %s", reason), cause)
}

func UploadFailed(reason string, cause error) *AppError {
	return Wrap(ErrCodeUploadFailed, fmt.Sprintf("Failed to upload asset: %s", reason), cause)
}

func TransientNetwork(operation string, cause error) *AppError {
	return Wrap(ErrCodeTransientNetwork, fmt.Sprintf("Network timeout during %s; retry later", operation), cause)
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return GetCode(err) == ErrCodeTransientNetwork
}
