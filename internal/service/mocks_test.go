package service

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/storage"
)

func testLocations() *storage.LocationPolicy {
	return storage.NewLocationPolicy([]string{"storage.example"}, []string{"media"})
}

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) FindOwnerByEmailAndSecret(ctx context.Context, email, secret string) (*model.Account, error) {
	args := m.Called(ctx, email, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) UpdatePairingSecret(ctx context.Context, id, secret string) (*model.Account, error) {
	args := m.Called(ctx, id, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) SetPairedIfUnset(ctx context.Context, id, pairedID string) (bool, error) {
	args := m.Called(ctx, id, pairedID)
	return args.Bool(0), args.Error(1)
}

type mockCredentialRepo struct {
	mock.Mock
}

func (m *mockCredentialRepo) FindByAccountID(ctx context.Context, accountID string) (*model.Credential, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *mockCredentialRepo) Upsert(ctx context.Context, params model.UpsertCredentialParams) (*model.Credential, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

type mockAssetRepo struct {
	mock.Mock
}

func (m *mockAssetRepo) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Asset), args.Error(1)
}

func (m *mockAssetRepo) FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Asset, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Asset), args.Error(1)
}

func (m *mockAssetRepo) Create(ctx context.Context, params model.CreateAssetParams) (*model.Asset, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Asset), args.Error(1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Enabled() bool {
	return true
}

func (m *mockProvider) AuthCodeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *mockProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *mockProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

type mockUploader struct {
	mock.Mock
	mu       sync.Mutex
	received []byte
}

func (m *mockUploader) Upload(ctx context.Context, accessToken string, media io.Reader, meta model.VideoMetadata) (string, error) {
	data, _ := io.ReadAll(media)
	m.mu.Lock()
	m.received = data
	m.mu.Unlock()
	args := m.Called(ctx, accessToken, meta)
	return args.String(0), args.Error(1)
}

// recordingNotifier keeps every notification for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]model.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(map[string][]model.Notification)}
}

func (r *recordingNotifier) Notify(ctx context.Context, accountID string, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[accountID] = append(r.sent[accountID], n)
	return nil
}

func (r *recordingNotifier) last(accountID string) model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sent[accountID]
	if len(list) == 0 {
		return model.Notification{}
	}
	return list[len(list)-1]
}
