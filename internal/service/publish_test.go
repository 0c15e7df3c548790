package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/storage"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	body  string
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type publishFixture struct {
	dir      string
	accounts *mockAccountRepo
	assets   *mockAssetRepo
	creds    *mockCredentialRepo
	provider *mockProvider
	fetcher  *fakeFetcher
	uploader *mockUploader
	notifier *recordingNotifier
	svc      *PublishService
}

func newPublishFixture(t *testing.T) *publishFixture {
	t.Helper()

	dir := t.TempDir()
	stager, err := storage.NewStager(dir)
	require.NoError(t, err)

	f := &publishFixture{
		dir:      dir,
		accounts: new(mockAccountRepo),
		assets:   new(mockAssetRepo),
		creds:    new(mockCredentialRepo),
		provider: new(mockProvider),
		fetcher:  &fakeFetcher{body: "video-bytes"},
		uploader: new(mockUploader),
		notifier: newRecordingNotifier(),
	}
	f.svc = NewPublishService(
		NewAssetService(f.assets, f.accounts, testLocations()),
		newTestTokenService(f.provider, f.creds),
		f.fetcher,
		stager,
		f.uploader,
		f.notifier,
		PublishOptions{FetchTimeout: time.Second, UploadTimeout: time.Second},
	)
	return f
}

func (f *publishFixture) withAsset() {
	f.assets.On("FindByID", mock.Anything, assetID).Return(&model.Asset{
		ID:       assetID,
		Filename: "final-cut.mp4",
		OwnerID:  ownerID,
		Location: "https://storage.example/final-cut.mp4",
	}, nil)
}

func (f *publishFixture) withCredential() {
	f.creds.On("FindByAccountID", mock.Anything, ownerID).Return(&model.Credential{
		AccountID:    ownerID,
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    timePtr(fixedNow.Add(time.Hour)),
	}, nil)
}

func (f *publishFixture) stagedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestPublishService_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads staged bytes and cleans up", func(t *testing.T) {
		f := newPublishFixture(t)
		f.withAsset()
		f.withCredential()

		var stagedDuringUpload []string
		f.uploader.On("Upload", mock.Anything, "at", model.VideoMetadata{
			Title:      "final-cut.mp4",
			Visibility: model.VisibilityPrivate,
		}).Run(func(mock.Arguments) {
			stagedDuringUpload = f.stagedFiles(t)
		}).Return("remote-1", nil)

		result, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{})
		require.NoError(t, err)
		assert.Equal(t, "remote-1", result.RemoteAssetID)
		assert.Equal(t, "video-bytes", string(f.uploader.received))

		assert.Len(t, stagedDuringUpload, 1)
		assert.Empty(t, f.stagedFiles(t))

		n := f.notifier.last(ownerID)
		assert.Equal(t, model.NotificationPublishCompleted, n.Kind)
		assert.Equal(t, "remote-1", n.RemoteAssetID)
	})

	t.Run("passes caller metadata", func(t *testing.T) {
		f := newPublishFixture(t)
		f.withAsset()
		f.withCredential()
		f.uploader.On("Upload", mock.Anything, "at", model.VideoMetadata{
			Title:       "Launch trailer",
			Description: "v2",
			Tags:        []string{"launch"},
			Visibility:  model.VisibilityUnlisted,
		}).Return("remote-2", nil)

		_, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{
			Title:       "Launch trailer",
			Description: "v2",
			Tags:        []string{"launch"},
			Visibility:  model.VisibilityUnlisted,
		})
		require.NoError(t, err)
	})

	t.Run("no credential fails before any fetch", func(t *testing.T) {
		f := newPublishFixture(t)
		f.withAsset()
		f.creds.On("FindByAccountID", mock.Anything, ownerID).Return(nil, nil)

		_, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{})
		assert.True(t, errors.Is(err, apperrors.NoCredential()))
		assert.Equal(t, 0, f.fetcher.calls)
		f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)

		n := f.notifier.last(ownerID)
		assert.Equal(t, model.NotificationPublishFailed, n.Kind)
		assert.NotEmpty(t, n.Error)
	})

	t.Run("fetch failure leaves nothing staged", func(t *testing.T) {
		f := newPublishFixture(t)
		f.withAsset()
		f.withCredential()
		f.fetcher.err = apperrors.FetchFailed("storage returned status 404", nil)

		_, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{})
		assert.Equal(t, apperrors.ErrCodeFetchFailed, apperrors.GetCode(err))
		assert.Empty(t, f.stagedFiles(t))
		f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("upload rejection leaves nothing staged", func(t *testing.T) {
		f := newPublishFixture(t)
		f.withAsset()
		f.withCredential()
		f.uploader.On("Upload", mock.Anything, "at", mock.Anything).
			Return("", &googleapi.Error{Code: 403, Message: "quotaExceeded"})

		_, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{})
		assert.Equal(t, apperrors.ErrCodeUploadFailed, apperrors.GetCode(err))
		assert.Contains(t, err.Error(), "quotaExceeded")
		assert.Empty(t, f.stagedFiles(t))

		assert.Equal(t, model.NotificationPublishFailed, f.notifier.last(ownerID).Kind)
		assert.False(t, f.notifier.last(ownerID).Retryable)
	})

	t.Run("zero timeouts fall back to defaults", func(t *testing.T) {
		f := newPublishFixture(t)
		stager, err := storage.NewStager(f.dir)
		require.NoError(t, err)
		f.svc = NewPublishService(
			NewAssetService(f.assets, f.accounts, testLocations()),
			newTestTokenService(f.provider, f.creds),
			f.fetcher, stager, f.uploader, f.notifier,
			PublishOptions{},
		)
		f.withAsset()
		f.withCredential()
		f.uploader.On("Upload", mock.Anything, "at", mock.Anything).Return("remote-1", nil)

		result, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{})
		require.NoError(t, err)
		assert.Equal(t, "remote-1", result.RemoteAssetID)
	})

	t.Run("upload timeout is TransientNetwork", func(t *testing.T) {
		f := newPublishFixture(t)
		f.withAsset()
		f.withCredential()
		f.uploader.On("Upload", mock.Anything, "at", mock.Anything).Return("", context.DeadlineExceeded)

		_, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{})
		assert.Equal(t, apperrors.ErrCodeTransientNetwork, apperrors.GetCode(err))
		assert.Empty(t, f.stagedFiles(t))
		assert.True(t, f.notifier.last(ownerID).Retryable)
	})

	t.Run("unknown asset is NotFound", func(t *testing.T) {
		f := newPublishFixture(t)
		f.assets.On("FindByID", mock.Anything, assetID).Return(nil, nil)

		_, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{})
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
		f.creds.AssertNotCalled(t, "FindByAccountID", mock.Anything, mock.Anything)
	})

	t.Run("invalid visibility is rejected up front", func(t *testing.T) {
		f := newPublishFixture(t)

		_, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{Visibility: "friends"})
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
		assert.Empty(t, f.notifier.sent)
	})

	t.Run("concurrent publishes stage separately", func(t *testing.T) {
		f := newPublishFixture(t)
		f.withAsset()
		f.withCredential()
		f.uploader.On("Upload", mock.Anything, "at", mock.Anything).Return("remote", nil)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Publish(ctx, ownerIdentity(), assetID, model.PublishRequest{})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Empty(t, f.stagedFiles(t))
		f.uploader.AssertNumberOfCalls(t, "Upload", 4)
	})
}
