package model

import (
	"time"
)

// Credential is the delegated-authority token pair stored for one account.
type Credential struct {
	AccountID    string     `db:"account_id" json:"accountId"`
	AccessToken  string     `db:"access_token" json:"-"`
	RefreshToken string     `db:"refresh_token" json:"-"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsComplete reports whether both tokens are present.
func (c *Credential) IsComplete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// IsExpired treats a missing or zero expiry as already expired.
func (c *Credential) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil || c.ExpiresAt.IsZero() {
		return true
	}
	return !c.ExpiresAt.After(now)
}

type UpsertCredentialParams struct {
	AccountID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}
