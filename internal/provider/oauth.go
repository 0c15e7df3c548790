package provider

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// OAuthClient drives the authorization code grant against Google.
type OAuthClient struct {
	cfg    Config
	oauth  *oauth2.Config
	client *http.Client
}

func NewOAuthClient(cfg Config) *OAuthClient {
	timeout := cfg.TokenTimeout
	if timeout <= 0 {
		timeout = defaultTokenTimeout
	}
	return &OAuthClient{
		cfg:    cfg,
		oauth:  cfg.oauth2Config(),
		client: &http.Client{Timeout: timeout},
	}
}

func (c *OAuthClient) Enabled() bool {
	return c.cfg.Enabled()
}

// AuthCodeURL asks for offline access and forces the consent screen so a
// refresh token is issued even when the user granted access before.
func (c *OAuthClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (c *OAuthClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.oauth.Exchange(c.withClient(ctx), code)
}

// Refresh trades a refresh token for a new access token. The returned token
// carries a new refresh token only when the provider rotated it.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	return src.Token()
}

func (c *OAuthClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.client)
}
