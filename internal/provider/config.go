package provider

import (
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"github.com/cliprelay/relay-server-go/internal/config"
)

// Config is everything needed to talk to the delegated-publish provider.
// It is built once at startup and passed to the clients; tests point the
// URLs at httptest servers.
type Config struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	AuthURL       string
	TokenURL      string
	UploadBaseURL string
	Scopes        []string
	TokenTimeout  time.Duration
	UploadTimeout time.Duration
}

const defaultTokenTimeout = 15 * time.Second

func ConfigFromEnv(cfg *config.Config) Config {
	return Config{
		ClientID:      cfg.GoogleClientID,
		ClientSecret:  cfg.GoogleClientSecret,
		RedirectURL:   cfg.GoogleRedirectURL,
		AuthURL:       cfg.GoogleAuthURL,
		TokenURL:      cfg.GoogleTokenURL,
		UploadBaseURL: cfg.YouTubeEndpoint,
		Scopes:        []string{youtube.YoutubeUploadScope},
		TokenTimeout:  defaultTokenTimeout,
		UploadTimeout: cfg.UploadTimeout(),
	}
}

// Enabled reports whether client credentials are configured.
func (c Config) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c Config) oauth2Config() *oauth2.Config {
	endpoint := google.Endpoint
	if c.AuthURL != "" {
		endpoint.AuthURL = c.AuthURL
	}
	if c.TokenURL != "" {
		endpoint.TokenURL = c.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
		Endpoint:     endpoint,
	}
}
