package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		// Wrap unknown errors as internal errors
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	WriteJSON(w, StatusFromCode(appErr.Code), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// StatusFromCode maps ErrorCode to HTTP status code
func StatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired,
		apperrors.ErrCodeInvalidState:
		return http.StatusBadRequest

	// 401 Unauthorized
	case apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeInvalidToken:
		return http.StatusUnauthorized

	// 403 Forbidden
	case apperrors.ErrCodeNotAuthorized:
		return http.StatusForbidden

	// 404 Not Found
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound

	// 409 Conflict: the account must re-run the authorization flow
	case apperrors.ErrCodeAlreadyExists,
		apperrors.ErrCodeNoCredential,
		apperrors.ErrCodeIncompleteCredential,
		apperrors.ErrCodeRefreshFailed:
		return http.StatusConflict

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 501 Not Implemented
	case apperrors.ErrCodeProviderDisabled:
		return http.StatusNotImplemented

	// 502 Bad Gateway
	case apperrors.ErrCodeExternalAuth,
		apperrors.ErrCodeFetchFailed,
		apperrors.ErrCodeUploadFailed:
		return http.StatusBadGateway

	// 504 Gateway Timeout
	case apperrors.ErrCodeTransientNetwork:
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
