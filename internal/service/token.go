package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/metrics"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/provider"
	"github.com/cliprelay/relay-server-go/internal/repository"
)

// TokenService owns the credential lifecycle: code exchange, storage and
// transparent refresh before use.
type TokenService struct {
	provider AuthorizationProvider
	credRepo repository.CredentialRepository
	now      func() time.Time
}

func NewTokenService(provider AuthorizationProvider, credRepo repository.CredentialRepository) *TokenService {
	return &TokenService{
		provider: provider,
		credRepo: credRepo,
		now:      time.Now,
	}
}

// ExchangeCode trades a one-shot authorization code for tokens and stores
// them for accountID. A rejected code leaves any stored credential as is.
func (s *TokenService) ExchangeCode(ctx context.Context, accountID, code string) (*model.Credential, error) {
	if !s.provider.Enabled() {
		return nil, apperrors.ProviderDisabled()
	}
	if code == "" {
		return nil, apperrors.MissingRequired("code")
	}

	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		if provider.IsTransient(err) {
			return nil, apperrors.TransientNetwork("code exchange", err)
		}
		reason := provider.RejectionReason(err)
		log.Warn().Str("accountId", accountID).Str("reason", reason).Msg("authorization code rejected")
		return nil, apperrors.ExternalAuth(reason, err)
	}
	if tok.AccessToken == "" {
		return nil, apperrors.ExternalAuth("provider returned no access token", nil)
	}

	cred, err := s.credRepo.Upsert(ctx, credentialParams(accountID, tok))
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("accountId", accountID).
		Bool("refreshTokenIssued", tok.RefreshToken != "").
		Msg("delegated credential stored")
	return cred, nil
}

// GetValidCredential returns a credential whose access token is usable now,
// refreshing it at most once. A failed refresh keeps the stale record.
func (s *TokenService) GetValidCredential(ctx context.Context, accountID string) (*model.Credential, error) {
	cred, err := s.credRepo.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if cred == nil {
		return nil, apperrors.NoCredential()
	}
	if !cred.IsComplete() {
		return nil, apperrors.IncompleteCredential()
	}
	if !cred.IsExpired(s.now()) {
		return cred, nil
	}

	if !s.provider.Enabled() {
		return nil, apperrors.ProviderDisabled()
	}

	tok, err := s.provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Warn().Err(err).Str("accountId", accountID).Msg("token refresh failed")
		if provider.IsTransient(err) {
			return nil, apperrors.TransientNetwork("token refresh", err)
		}
		return nil, apperrors.RefreshFailed(provider.RejectionReason(err), err)
	}
	if tok.AccessToken == "" {
		metrics.TokenRefreshTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, apperrors.RefreshFailed("provider returned no access token", nil)
	}
	metrics.TokenRefreshTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	refreshed, err := s.credRepo.Upsert(ctx, credentialParams(accountID, tok))
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("accountId", accountID).
		Bool("refreshTokenRotated", tok.RefreshToken != "" && tok.RefreshToken != cred.RefreshToken).
		Msg("access token refreshed")
	return refreshed, nil
}

// credentialParams leaves RefreshToken empty when the provider did not send
// one; the repository then keeps the stored value.
func credentialParams(accountID string, tok *oauth2.Token) model.UpsertCredentialParams {
	params := model.UpsertCredentialParams{
		AccountID:    accountID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		params.ExpiresAt = &expiry
	}
	return params
}
