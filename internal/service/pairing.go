package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/metrics"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/repository"
	"github.com/cliprelay/relay-server-go/internal/util"
)

const (
	secretGroups      = 3
	secretGroupLen    = 4
	maxSecretAttempts = 10
)

type PairingService struct {
	accountRepo repository.AccountRepository
}

func NewPairingService(accountRepo repository.AccountRepository) *PairingService {
	return &PairingService{accountRepo: accountRepo}
}

// IssuePairingSecret replaces the owner's secret with a fresh one. The
// previous secret stops matching immediately.
func (s *PairingService) IssuePairingSecret(ctx context.Context, ownerID string) (string, error) {
	if _, err := s.loadOwner(ctx, ownerID); err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxSecretAttempts; attempt++ {
		secret, err := util.GenerateSecret(secretGroups, secretGroupLen)
		if err != nil {
			return "", apperrors.Internal("failed to generate pairing secret").WithCause(err)
		}

		account, err := s.accountRepo.UpdatePairingSecret(ctx, ownerID, secret)
		if repository.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", apperrors.Database(err)
		}
		if account == nil {
			return "", apperrors.NotFound("account")
		}

		log.Info().
			Str("accountId", ownerID).
			Str("secret", util.MaskCode(secret)).
			Msg("pairing secret issued")
		return secret, nil
	}

	return "", apperrors.Internal("could not generate a unique pairing secret")
}

func (s *PairingService) FetchPairingSecret(ctx context.Context, ownerID string) (string, error) {
	owner, err := s.loadOwner(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if owner.PairingSecret == nil || *owner.PairingSecret == "" {
		return "", apperrors.NotFound("pairing secret")
	}
	return *owner.PairingSecret, nil
}

// ValidatePairing links a collaborator to the owner identified by
// {ownerEmail, secret}. Each side is only written while still unset, so an
// established link is never replaced.
func (s *PairingService) ValidatePairing(ctx context.Context, collaboratorID, ownerEmail, secret string) (*model.PublicIdentity, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if ownerEmail == "" {
		return nil, apperrors.MissingRequired("ownerEmail")
	}
	if secret == "" {
		return nil, apperrors.MissingRequired("secret")
	}

	collaborator, err := s.accountRepo.FindByID(ctx, collaboratorID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if collaborator == nil {
		return nil, apperrors.NotFound("account")
	}
	if collaborator.Role != model.AccountRoleCollaborator {
		metrics.PairingTotal.WithLabelValues("not_authorized").Inc()
		return nil, apperrors.NotAuthorized("Only collaborator accounts can pair with an owner")
	}

	owner, err := s.accountRepo.FindOwnerByEmailAndSecret(ctx, ownerEmail, secret)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if owner == nil {
		metrics.PairingTotal.WithLabelValues("not_found").Inc()
		log.Warn().Str("accountId", collaboratorID).Msg("pairing validation failed: no matching owner")
		return nil, apperrors.NotFound("owner account")
	}

	collaboratorLinked, err := s.accountRepo.SetPairedIfUnset(ctx, collaborator.ID, owner.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	ownerLinked, err := s.accountRepo.SetPairedIfUnset(ctx, owner.ID, collaborator.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	outcome := "linked"
	if !collaboratorLinked && !ownerLinked {
		outcome = "already_linked"
	}
	metrics.PairingTotal.WithLabelValues(outcome).Inc()

	log.Info().
		Str("accountId", collaborator.ID).
		Str("ownerId", owner.ID).
		Bool("collaboratorLinked", collaboratorLinked).
		Bool("ownerLinked", ownerLinked).
		Msg("pairing validated")

	identity := owner.PublicIdentity()
	return &identity, nil
}

func (s *PairingService) loadOwner(ctx context.Context, ownerID string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("account")
	}
	if !account.IsOwner() {
		return nil, apperrors.NotAuthorized("Only owner accounts hold a pairing secret")
	}
	return account, nil
}
