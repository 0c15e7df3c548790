package provider

import (
	"context"
	"errors"
	"net"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// IsTransient reports whether err is a timeout or transport failure rather
// than a rejection by the provider.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsRejection(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// IsRejection reports whether the provider answered and refused the request.
func IsRejection(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr)
}

// RejectionReason extracts the provider's error code or message for display.
func RejectionReason(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorDescription != "" {
			return retrieveErr.ErrorCode + ": " + retrieveErr.ErrorDescription
		}
		if retrieveErr.ErrorCode != "" {
			return retrieveErr.ErrorCode
		}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
