package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.ValidationError("Invalid JSON body").WithCause(err)
	}
	return nil
}

func writePublishError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	writeJSON(w, httputil.StatusFromCode(appErr.Code), publishResponse{
		Success:   false,
		Error:     appErr.Message,
		Code:      string(appErr.Code),
		Retryable: apperrors.IsRetryable(appErr),
	})
}
