package model

import (
	"time"
)

type Account struct {
	ID              string      `db:"id" json:"id"`
	Email           string      `db:"email" json:"email"`
	DisplayName     string      `db:"display_name" json:"displayName"`
	PasswordHash    string      `db:"password_hash" json:"-"`
	Role            AccountRole `db:"role" json:"role"`
	PairingSecret   *string     `db:"pairing_secret" json:"-"`
	PairedAccountID *string     `db:"paired_account_id" json:"pairedAccountId,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"`
}

func (a *Account) IsOwner() bool {
	return a.Role == AccountRoleOwner
}

func (a *Account) IsPaired() bool {
	return a.PairedAccountID != nil && *a.PairedAccountID != ""
}

func (a *Account) PublicIdentity() PublicIdentity {
	return PublicIdentity{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Email:       a.Email,
	}
}

// PublicIdentity is the part of an account that may be shown to its counterpart.
type PublicIdentity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type CreateAccountParams struct {
	Email         string
	DisplayName   string
	PasswordHash  string
	Role          AccountRole
	PairingSecret *string
}

// Identity is the authenticated caller, threaded explicitly into every
// operation that needs to know who is acting.
type Identity struct {
	AccountID string
	Email     string
	Role      AccountRole
}
