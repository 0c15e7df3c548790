package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/model"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// GetIdentity returns the authenticated caller, or nil on public routes.
func GetIdentity(ctx context.Context) *model.Identity {
	if identity, ok := ctx.Value(IdentityContextKey).(*model.Identity); ok {
		return identity
	}
	return nil
}

func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

type Authenticator interface {
	Authenticate(token string) (*model.Identity, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		identity, err := m.auth.Authenticate(token)
		if err != nil {
			log.Warn().Str("path", r.URL.Path).Msg("auth middleware: invalid token attempt")
			if appErr, ok := apperrors.AsAppError(err); ok {
				writeError(w, appErr)
				return
			}
			writeError(w, apperrors.InvalidToken("Invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireRole rejects callers whose role differs from role.
func RequireRole(role model.AccountRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				writeError(w, apperrors.Unauthorized("Authentication required"))
				return
			}
			if identity.Role != role {
				writeError(w, apperrors.NotAuthorized("This action requires the "+string(role)+" role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads a bearer token. The query fallback exists for
// EventSource clients, which cannot set headers.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	return ""
}
