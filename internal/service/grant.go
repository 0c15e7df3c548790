package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cliprelay/relay-server-go/internal/config"
	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/util"
)

// GrantService starts the delegated-authority flow and completes it when the
// provider redirects back.
type GrantService struct {
	provider    AuthorizationProvider
	assets      *AssetService
	tokens      *TokenService
	notifier    Notifier
	stateSecret string
	stateTTL    time.Duration
	now         func() time.Time
}

func NewGrantService(
	provider AuthorizationProvider,
	assets *AssetService,
	tokens *TokenService,
	notifier Notifier,
	stateSecret string,
	stateTTL time.Duration,
) *GrantService {
	if stateTTL <= 0 {
		stateTTL = config.DefaultGrantStateTTL
	}
	return &GrantService{
		provider:    provider,
		assets:      assets,
		tokens:      tokens,
		notifier:    notifier,
		stateSecret: stateSecret,
		stateTTL:    stateTTL,
		now:         time.Now,
	}
}

// BuildAuthorizationURL returns the provider URL the client should open. It
// performs no redirect itself. The returned nonce binds the flow to the
// browser that started it.
func (s *GrantService) BuildAuthorizationURL(ctx context.Context, identity model.Identity, assetID string) (*model.AuthorizationRequest, error) {
	if !s.provider.Enabled() {
		return nil, apperrors.ProviderDisabled()
	}
	if _, err := s.assets.ResolvePublishable(ctx, identity, assetID); err != nil {
		return nil, err
	}

	nonce, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("failed to generate state nonce").WithCause(err)
	}

	expiresAt := s.now().Add(s.stateTTL)
	state, err := s.EncodeState(model.GrantState{
		AccountID: identity.AccountID,
		AssetID:   assetID,
		Nonce:     nonce,
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("accountId", identity.AccountID).Str("assetId", assetID).Msg("authorization flow started")
	return &model.AuthorizationRequest{
		URL:       s.provider.AuthCodeURL(state),
		Nonce:     nonce,
		ExpiresAt: expiresAt,
	}, nil
}

// CompleteGrant handles the provider's redirect. browserNonce is the value
// the starting browser was given; a callback finished in any other browser
// is refused. The outcome is pushed to the account that started the flow and
// also returned so the callback page can relay it to its opener.
func (s *GrantService) CompleteGrant(ctx context.Context, code, rawState, providerError, browserNonce string) model.Notification {
	state, err := s.DecodeState(rawState)
	if err != nil {
		log.Warn().Err(err).Msg("grant callback with invalid state")
		return model.Notification{Kind: model.NotificationGrantFailed, Error: errorMessage(err)}
	}

	n := model.Notification{Kind: model.NotificationGrantCompleted, AssetID: state.AssetID}
	switch {
	case browserNonce == "" || !util.ConstantTimeEqual(browserNonce, state.Nonce):
		log.Warn().Str("accountId", state.AccountID).Msg("grant callback from a browser that did not start the flow")
		n.Kind = model.NotificationGrantFailed
		n.Error = errorMessage(apperrors.InvalidState("authorization was not started from this browser"))
	case providerError != "":
		n.Kind = model.NotificationGrantFailed
		n.Error = "Authorization was not granted: " + providerError
	default:
		if _, err := s.tokens.ExchangeCode(ctx, state.AccountID, code); err != nil {
			n.Kind = model.NotificationGrantFailed
			n.Error = errorMessage(err)
			n.Retryable = apperrors.IsRetryable(err)
		}
	}

	if err := s.notifier.Notify(ctx, state.AccountID, n); err != nil {
		log.Warn().Err(err).Str("accountId", state.AccountID).Msg("failed to deliver grant notification")
	}
	return n
}

// EncodeState serializes st as base64url(json) "." hex(hmac).
func (s *GrantService) EncodeState(st model.GrantState) (string, error) {
	payload, err := json.Marshal(st)
	if err != nil {
		return "", apperrors.Internal("failed to encode state").WithCause(err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + util.HmacSHA256(s.stateSecret, encoded), nil
}

// DecodeState verifies and parses a state value echoed back by the provider.
func (s *GrantService) DecodeState(raw string) (*model.GrantState, error) {
	encoded, sig, ok := strings.Cut(raw, ".")
	if !ok || encoded == "" || sig == "" {
		return nil, apperrors.InvalidState("malformed")
	}
	if !util.ConstantTimeEqual(sig, util.HmacSHA256(s.stateSecret, encoded)) {
		return nil, apperrors.InvalidState("signature mismatch")
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.InvalidState("malformed")
	}
	var st model.GrantState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, apperrors.InvalidState("malformed")
	}

	if s.now().Unix() > st.ExpiresAt {
		return nil, apperrors.InvalidState("expired")
	}
	if !util.IsValidUUID(st.AccountID) || !util.IsValidUUID(st.AssetID) {
		return nil, apperrors.InvalidState("unknown account or asset")
	}
	return &st, nil
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
