package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cliprelay/relay-server-go/internal/config"
	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	redisclient "github.com/cliprelay/relay-server-go/internal/redis"
	"github.com/cliprelay/relay-server-go/internal/service"
)

// LimitChecker is satisfied by service.RateLimiter.
type LimitChecker interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) service.LimitDecision
}

type RateLimitMiddleware struct {
	limiter LimitChecker
	limit   int
	window  time.Duration
	keyFunc func(r *http.Request) string
}

// NewAccountRateLimitMiddleware throttles authenticated callers per account.
// Requests without an identity pass through untouched.
func NewAccountRateLimitMiddleware(limiter LimitChecker, limit int) *RateLimitMiddleware {
	if limit <= 0 {
		limit = config.DefaultRateLimitPerMin
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  time.Minute,
		keyFunc: func(r *http.Request) string {
			identity := GetIdentity(r.Context())
			if identity == nil {
				return ""
			}
			return redisclient.RateLimitKey("account", identity.AccountID)
		},
	}
}

// NewIPRateLimitMiddleware throttles unauthenticated routes per client
// address. Mount it after chi's RealIP so RemoteAddr is the client.
func NewIPRateLimitMiddleware(limiter LimitChecker, limit int, window time.Duration, scope string) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		keyFunc: func(r *http.Request) string {
			return redisclient.RateLimitKey("ip:"+scope, r.RemoteAddr)
		},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.keyFunc(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		d := m.limiter.Allow(r.Context(), key, m.limit, m.window)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			log.Warn().Str("key", key).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(d.ResetAt)))
			writeError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RetryAfterSeconds is the Retry-After value for a limit that resets at resetAt.
func RetryAfterSeconds(resetAt time.Time) int {
	secs := int(time.Until(resetAt).Seconds()) + 1
	if secs < 1 {
		return 1
	}
	return secs
}
