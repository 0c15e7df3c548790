package service

import (
	"context"
	"io"

	"golang.org/x/oauth2"

	"github.com/cliprelay/relay-server-go/internal/model"
)

// AuthorizationProvider is the delegated-authority endpoint (Google OAuth).
type AuthorizationProvider interface {
	Enabled() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Uploader publishes media to the external platform and returns its id there.
type Uploader interface {
	Upload(ctx context.Context, accessToken string, media io.Reader, meta model.VideoMetadata) (string, error)
}

// Notifier delivers a completion signal to the client that started a flow.
type Notifier interface {
	Notify(ctx context.Context, accountID string, n model.Notification) error
}

// LocationChecker decides whether the relay may read from a storage location.
type LocationChecker interface {
	Check(location string) error
}
