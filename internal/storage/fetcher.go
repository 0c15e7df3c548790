package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
)

// Fetcher opens a streaming reader over the bytes stored at location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// Router dispatches to a Fetcher by URL scheme. Every location is checked
// against the policy first, since stored rows can predate the current one.
type Router struct {
	policy   *LocationPolicy
	fetchers map[string]Fetcher
}

func NewRouter(policy *LocationPolicy) *Router {
	return &Router{policy: policy, fetchers: make(map[string]Fetcher)}
}

func (r *Router) Handle(scheme string, f Fetcher) *Router {
	r.fetchers[scheme] = f
	return r
}

func (r *Router) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, apperrors.FetchFailed("invalid storage location", err)
	}
	if err := r.policy.Check(location); err != nil {
		return nil, apperrors.FetchFailed(err.Error(), err)
	}
	f, ok := r.fetchers[u.Scheme]
	if !ok {
		return nil, apperrors.FetchFailed(fmt.Sprintf("unsupported storage scheme %q", u.Scheme), nil)
	}
	return f.Fetch(ctx, location)
}

type HTTPFetcher struct {
	client *http.Client
}

const maxRedirects = 5

// NewHTTPFetcher follows redirects only to locations the policy allows.
func NewHTTPFetcher(timeout time.Duration, policy *LocationPolicy) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return policy.Check(req.URL.String())
		},
	}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, apperrors.FetchFailed("invalid storage location", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyFetchError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, apperrors.FetchFailed(fmt.Sprintf("storage returned status %d", resp.StatusCode), nil)
	}

	return resp.Body, nil
}

// classifyFetchError separates timeouts, which a caller may retry, from
// every other transport failure.
func classifyFetchError(err error) error {
	if errors.Is(err, ErrLocationNotAllowed) {
		return apperrors.FetchFailed("redirected to a location that is not allowed", err)
	}
	if isTimeout(err) {
		return apperrors.TransientNetwork("fetch", err)
	}
	return apperrors.FetchFailed(err.Error(), err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
