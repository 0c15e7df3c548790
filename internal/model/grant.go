package model

import "time"

// GrantState travels through the provider's redirect inside the OAuth state
// parameter. It is echoed back by a third party and must be verified before use.
type GrantState struct {
	AccountID string `json:"a"`
	AssetID   string `json:"v"`
	Nonce     string `json:"n"`
	ExpiresAt int64  `json:"e"`
}

// AuthorizationRequest is a started grant. Nonce is handed to the starting
// browser and must come back with the provider's redirect.
type AuthorizationRequest struct {
	URL       string
	Nonce     string
	ExpiresAt time.Time
}
