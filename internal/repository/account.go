package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/cliprelay/relay-server-go/internal/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindOwnerByEmailAndSecret(ctx context.Context, email, secret string) (*model.Account, error)
	Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error)
	UpdatePairingSecret(ctx context.Context, id, secret string) (*model.Account, error)
	// SetPairedIfUnset links id to pairedID only when id has no link yet.
	// It reports whether the row was changed.
	SetPairedIfUnset(ctx context.Context, id, pairedID string) (bool, error)
}

type accountRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE id = $1
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE lower(email) = lower($1)
	`, email)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindOwnerByEmailAndSecret(ctx context.Context, email, secret string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts
		WHERE lower(email) = lower($1) AND pairing_secret = $2 AND role = $3
	`, email, secret, model.AccountRoleOwner)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO accounts (email, display_name, password_hash, role, pairing_secret)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.Email, params.DisplayName, params.PasswordHash, params.Role, params.PairingSecret)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) UpdatePairingSecret(ctx context.Context, id, secret string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE accounts SET
			pairing_secret = $2,
			updated_at = NOW()
		WHERE id = $1 AND role = $3
		RETURNING *
	`, id, secret, model.AccountRoleOwner)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) SetPairedIfUnset(ctx context.Context, id, pairedID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			paired_account_id = $2,
			updated_at = NOW()
		WHERE id = $1 AND paired_account_id IS NULL
	`, id, pairedID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
