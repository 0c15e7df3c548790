package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cliprelay/relay-server-go/internal/config"
	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/metrics"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/provider"
	"github.com/cliprelay/relay-server-go/internal/storage"
)

const maxTitleLength = 100

type PublishOptions struct {
	FetchTimeout      time.Duration
	UploadTimeout     time.Duration
	DefaultVisibility model.Visibility
}

// PublishService relays a stored asset to the external platform:
// resolve, authorize, fetch, stage, upload, clean up, notify.
type PublishService struct {
	assets   *AssetService
	tokens   *TokenService
	fetcher  storage.Fetcher
	stager   *storage.Stager
	uploader Uploader
	notifier Notifier
	opts     PublishOptions
}

func NewPublishService(
	assets *AssetService,
	tokens *TokenService,
	fetcher storage.Fetcher,
	stager *storage.Stager,
	uploader Uploader,
	notifier Notifier,
	opts PublishOptions,
) *PublishService {
	if opts.DefaultVisibility == "" {
		opts.DefaultVisibility = model.VisibilityPrivate
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = config.DefaultFetchTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = config.DefaultUploadTimeout
	}
	return &PublishService{
		assets:   assets,
		tokens:   tokens,
		fetcher:  fetcher,
		stager:   stager,
		uploader: uploader,
		notifier: notifier,
		opts:     opts,
	}
}

// Publish resolves the credential before touching storage, so an account
// without authorization never triggers a fetch.
func (s *PublishService) Publish(ctx context.Context, identity model.Identity, assetID string, req model.PublishRequest) (*model.PublishResult, error) {
	if req.Visibility != "" && !req.Visibility.Valid() {
		return nil, apperrors.InvalidInput("visibility", "must be private, unlisted or public")
	}

	asset, err := s.assets.ResolvePublishable(ctx, identity, assetID)
	if err != nil {
		return nil, s.fail(ctx, identity.AccountID, assetID, err)
	}

	cred, err := s.tokens.GetValidCredential(ctx, identity.AccountID)
	if err != nil {
		return nil, s.fail(ctx, identity.AccountID, assetID, err)
	}

	remoteID, err := s.relay(ctx, asset, cred.AccessToken, s.metadata(asset, req))
	if err != nil {
		return nil, s.fail(ctx, identity.AccountID, assetID, err)
	}

	metrics.PublishTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Info().
		Str("accountId", identity.AccountID).
		Str("assetId", asset.ID).
		Str("remoteAssetId", remoteID).
		Msg("asset published")

	s.notify(ctx, identity.AccountID, model.Notification{
		Kind:          model.NotificationPublishCompleted,
		AssetID:       asset.ID,
		RemoteAssetID: remoteID,
	})

	return &model.PublishResult{AssetID: asset.ID, RemoteAssetID: remoteID}, nil
}

func (s *PublishService) relay(ctx context.Context, asset *model.Asset, accessToken string, meta model.VideoMetadata) (string, error) {
	staged, err := s.fetchAndStage(ctx, asset)
	if err != nil {
		return "", err
	}
	defer s.stager.Remove(staged.Path)

	f, err := os.Open(staged.Path)
	if err != nil {
		return "", apperrors.Internal("failed to open staged file").WithCause(err)
	}
	defer f.Close()

	uploadCtx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	defer cancel()

	remoteID, err := s.uploader.Upload(uploadCtx, accessToken, f, meta)
	if err != nil {
		return "", classifyUploadError(err)
	}
	return remoteID, nil
}

func (s *PublishService) fetchAndStage(ctx context.Context, asset *model.Asset) (*storage.StagedFile, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	body, err := s.fetcher.Fetch(fetchCtx, asset.Location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return s.stager.Stage(fetchCtx, asset.ID, body)
}

func (s *PublishService) metadata(asset *model.Asset, req model.PublishRequest) model.VideoMetadata {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = asset.Filename
	}
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = s.opts.DefaultVisibility
	}

	return model.VideoMetadata{
		Title:       title,
		Description: req.Description,
		Tags:        req.Tags,
		Visibility:  visibility,
	}
}

func (s *PublishService) fail(ctx context.Context, accountID, assetID string, err error) error {
	metrics.PublishTotal.WithLabelValues(string(apperrors.GetCode(err))).Inc()
	log.Warn().Err(err).Str("accountId", accountID).Str("assetId", assetID).Msg("publish failed")

	s.notify(ctx, accountID, model.Notification{
		Kind:      model.NotificationPublishFailed,
		AssetID:   assetID,
		Error:     errorMessage(err),
		Retryable: apperrors.IsRetryable(err),
	})
	return err
}

func (s *PublishService) notify(ctx context.Context, accountID string, n model.Notification) {
	if err := s.notifier.Notify(ctx, accountID, n); err != nil {
		log.Warn().Err(err).Str("accountId", accountID).Msg("failed to deliver publish notification")
	}
}

func classifyUploadError(err error) error {
	if provider.IsRejection(err) {
		return apperrors.UploadFailed(provider.RejectionReason(err), err)
	}
	if errors.Is(err, context.DeadlineExceeded) || provider.IsTransient(err) {
		return apperrors.TransientNetwork("upload", err)
	}
	return apperrors.UploadFailed(err.Error(), err)
}
