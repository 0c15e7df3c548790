package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/util"
)

type CredentialRepository interface {
	FindByAccountID(ctx context.Context, accountID string) (*model.Credential, error)
	// Upsert replaces the stored credential. An empty RefreshToken keeps the
	// one already on file.
	Upsert(ctx context.Context, params model.UpsertCredentialParams) (*model.Credential, error)
}

type credentialRepo struct {
	db     sqlxDB
	cipher *util.TokenCipher
}

// NewCredentialRepository seals tokens with cipher when it is non-nil and
// stores them in plain text otherwise.
func NewCredentialRepository(db *sqlx.DB, cipher *util.TokenCipher) CredentialRepository {
	return &credentialRepo{db: db, cipher: cipher}
}

func (r *credentialRepo) FindByAccountID(ctx context.Context, accountID string) (*model.Credential, error) {
	var cred model.Credential
	err := r.db.GetContext(ctx, &cred, `
		SELECT * FROM credentials WHERE account_id = $1
	`, accountID)
	found, err := HandleNotFound(&cred, err)
	if err != nil || found == nil {
		return nil, err
	}
	if err := r.open(found); err != nil {
		return nil, err
	}
	return found, nil
}

func (r *credentialRepo) Upsert(ctx context.Context, params model.UpsertCredentialParams) (*model.Credential, error) {
	access, err := r.seal(params.AccountID, params.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := r.seal(params.AccountID, params.RefreshToken)
	if err != nil {
		return nil, err
	}

	var cred model.Credential
	err = r.db.GetContext(ctx, &cred, `
		INSERT INTO credentials (account_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), credentials.refresh_token),
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING *
	`, params.AccountID, access, refresh, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := r.open(&cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepo) seal(accountID, token string) (string, error) {
	if r.cipher == nil || token == "" {
		return token, nil
	}
	sealed, err := r.cipher.Seal(accountID, token)
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}
	return sealed, nil
}

// open decrypts in place. Values written before a key was configured are
// still plain text and pass through.
func (r *credentialRepo) open(cred *model.Credential) error {
	if r.cipher == nil {
		return nil
	}
	for _, field := range []*string{&cred.AccessToken, &cred.RefreshToken} {
		if *field == "" {
			continue
		}
		plain, err := r.cipher.Open(cred.AccountID, *field)
		if errors.Is(err, util.ErrNotSealed) {
			continue
		}
		if err != nil {
			return fmt.Errorf("decrypt token: %w", err)
		}
		*field = plain
	}
	return nil
}
