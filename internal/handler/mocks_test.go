package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cliprelay/relay-server-go/internal/middleware"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/service"
)

type mockAccountAPI struct{ mock.Mock }

func (m *mockAccountAPI) Register(ctx context.Context, input service.RegisterInput) (*model.Account, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountAPI) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	args := m.Called(ctx, email, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*model.Account), args.Error(2)
}

func (m *mockAccountAPI) Me(ctx context.Context, identity model.Identity) (*service.AccountView, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccountView), args.Error(1)
}

type mockPairingAPI struct{ mock.Mock }

func (m *mockPairingAPI) IssuePairingSecret(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

func (m *mockPairingAPI) FetchPairingSecret(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

func (m *mockPairingAPI) ValidatePairing(ctx context.Context, collaboratorID, ownerEmail, secret string) (*model.PublicIdentity, error) {
	args := m.Called(ctx, collaboratorID, ownerEmail, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublicIdentity), args.Error(1)
}

type stubPairingLimiter struct {
	allowed bool
}

func (s stubPairingLimiter) CheckPairingLimit(ctx context.Context, accountID string) service.LimitDecision {
	return service.LimitDecision{Allowed: s.allowed, ResetAt: time.Now().Add(time.Minute)}
}

type mockGrantAPI struct{ mock.Mock }

func (m *mockGrantAPI) BuildAuthorizationURL(ctx context.Context, identity model.Identity, assetID string) (*model.AuthorizationRequest, error) {
	args := m.Called(ctx, identity, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthorizationRequest), args.Error(1)
}

func (m *mockGrantAPI) CompleteGrant(ctx context.Context, code, rawState, providerError, browserNonce string) model.Notification {
	args := m.Called(ctx, code, rawState, providerError, browserNonce)
	return args.Get(0).(model.Notification)
}

type mockAssetAPI struct{ mock.Mock }

func (m *mockAssetAPI) Create(ctx context.Context, identity model.Identity, filename, location string) (*model.Asset, error) {
	args := m.Called(ctx, identity, filename, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Asset), args.Error(1)
}

func (m *mockAssetAPI) List(ctx context.Context, identity model.Identity, scope model.AssetScope, limit, offset int) ([]model.Asset, error) {
	args := m.Called(ctx, identity, scope, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Asset), args.Error(1)
}

type mockPublishAPI struct{ mock.Mock }

func (m *mockPublishAPI) Publish(ctx context.Context, identity model.Identity, assetID string, req model.PublishRequest) (*model.PublishResult, error) {
	args := m.Called(ctx, identity, assetID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

var (
	ownerIdentity        = model.Identity{AccountID: "owner-1", Email: "owner@example.com", Role: model.AccountRoleOwner}
	collaboratorIdentity = model.Identity{AccountID: "collab-1", Email: "editor@example.com", Role: model.AccountRoleCollaborator}
)

// newRequest builds a request carrying identity, as the auth middleware would.
func newRequest(method, target string, body any, identity *model.Identity) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity != nil {
		id := *identity
		req = req.WithContext(middleware.WithIdentity(req.Context(), &id))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// streamRecorder is a ResponseWriter safe to read while a stream is writing.
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	buf    bytes.Buffer
	code   int
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (s *streamRecorder) Header() http.Header { return s.header }

func (s *streamRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == 0 {
		s.code = http.StatusOK
	}
	return s.buf.Write(p)
}

func (s *streamRecorder) WriteHeader(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
}

func (s *streamRecorder) Flush() {}

func (s *streamRecorder) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
