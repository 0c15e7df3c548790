package handler

import (
	"context"

	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/service"
	"github.com/cliprelay/relay-server-go/internal/sse"
)

// The interfaces below are implemented by the services in internal/service.

type AccountAPI interface {
	Register(ctx context.Context, input service.RegisterInput) (*model.Account, error)
	Login(ctx context.Context, email, password string) (string, *model.Account, error)
	Me(ctx context.Context, identity model.Identity) (*service.AccountView, error)
}

type PairingAPI interface {
	IssuePairingSecret(ctx context.Context, ownerID string) (string, error)
	FetchPairingSecret(ctx context.Context, ownerID string) (string, error)
	ValidatePairing(ctx context.Context, collaboratorID, ownerEmail, secret string) (*model.PublicIdentity, error)
}

type PairingLimiter interface {
	CheckPairingLimit(ctx context.Context, accountID string) service.LimitDecision
}

type GrantAPI interface {
	BuildAuthorizationURL(ctx context.Context, identity model.Identity, assetID string) (*model.AuthorizationRequest, error)
	CompleteGrant(ctx context.Context, code, rawState, providerError, browserNonce string) model.Notification
}

type AssetAPI interface {
	Create(ctx context.Context, identity model.Identity, filename, location string) (*model.Asset, error)
	List(ctx context.Context, identity model.Identity, scope model.AssetScope, limit, offset int) ([]model.Asset, error)
}

type PublishAPI interface {
	Publish(ctx context.Context, identity model.Identity, assetID string, req model.PublishRequest) (*model.PublishResult, error)
}

type EventSource interface {
	Subscribe(accountID string) *sse.Client
	Unsubscribe(client *sse.Client)
}
