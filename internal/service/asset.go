package service

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/repository"
	"github.com/cliprelay/relay-server-go/internal/util"
)

type AssetService struct {
	assetRepo   repository.AssetRepository
	accountRepo repository.AccountRepository
	locations   LocationChecker
}

func NewAssetService(assetRepo repository.AssetRepository, accountRepo repository.AccountRepository, locations LocationChecker) *AssetService {
	return &AssetService{
		assetRepo:   assetRepo,
		accountRepo: accountRepo,
		locations:   locations,
	}
}

// Create records an asset whose bytes were already uploaded to storage.
func (s *AssetService) Create(ctx context.Context, identity model.Identity, filename, location string) (*model.Asset, error) {
	filename = strings.TrimSpace(filename)
	location = strings.TrimSpace(location)
	if filename == "" {
		return nil, apperrors.MissingRequired("filename")
	}
	if location == "" {
		return nil, apperrors.MissingRequired("location")
	}
	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		return nil, apperrors.InvalidInput("location", "must be an absolute URL")
	}
	switch u.Scheme {
	case "http", "https", "s3":
	default:
		return nil, apperrors.InvalidInput("location", "scheme must be http, https or s3")
	}
	if err := s.locations.Check(location); err != nil {
		log.Warn().Str("accountId", identity.AccountID).Str("host", u.Host).Msg("asset location refused")
		return nil, apperrors.InvalidInput("location", "not an allowed storage location").WithCause(err)
	}

	asset, err := s.assetRepo.Create(ctx, model.CreateAssetParams{
		Filename: filename,
		OwnerID:  identity.AccountID,
		Location: location,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("accountId", identity.AccountID).Str("assetId", asset.ID).Msg("asset recorded")
	return asset, nil
}

// List returns the caller's assets and those of its paired counterpart,
// newest first. scope restricts the listing to one side.
func (s *AssetService) List(ctx context.Context, identity model.Identity, scope model.AssetScope, limit, offset int) ([]model.Asset, error) {
	if !scope.Valid() {
		return nil, apperrors.InvalidInput("owner", "must be self or counterpart")
	}

	account, err := s.loadAccount(ctx, identity.AccountID)
	if err != nil {
		return nil, err
	}

	var owners []string
	if scope != model.AssetScopeCounterpart {
		owners = append(owners, account.ID)
	}
	if scope != model.AssetScopeSelf && account.IsPaired() {
		owners = append(owners, *account.PairedAccountID)
	}

	var all []model.Asset
	for _, ownerID := range owners {
		assets, err := s.assetRepo.FindByOwnerID(ctx, ownerID, limit+offset, 0)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		all = append(all, assets...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []model.Asset{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ResolvePublishable loads an asset the caller may publish: the caller must
// be an owner and the asset must belong to it or to its paired collaborator.
func (s *AssetService) ResolvePublishable(ctx context.Context, identity model.Identity, assetID string) (*model.Asset, error) {
	if !util.IsValidUUID(assetID) {
		return nil, apperrors.NotFound("asset")
	}

	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if asset == nil {
		return nil, apperrors.NotFound("asset")
	}

	if identity.Role != model.AccountRoleOwner {
		return nil, apperrors.NotAuthorized("Only owner accounts can publish")
	}
	if asset.OwnerID == identity.AccountID {
		return asset, nil
	}

	account, err := s.loadAccount(ctx, identity.AccountID)
	if err != nil {
		return nil, err
	}
	if account.IsPaired() && *account.PairedAccountID == asset.OwnerID {
		return asset, nil
	}
	return nil, apperrors.NotAuthorized("Asset does not belong to this account or its collaborator")
}

func (s *AssetService) loadAccount(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("account")
	}
	return account, nil
}
