package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/cliprelay/relay-server-go/internal/database/migrations"
	"github.com/cliprelay/relay-server-go/internal/model"
)

// setupTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// every table. Tests are skipped when the variable is unset.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(context.Background(), db.DB, "."))

	_, err = db.Exec(`TRUNCATE assets, credentials, accounts CASCADE`)
	require.NoError(t, err)

	return db
}

func createTestAccount(t *testing.T, repo AccountRepository, email string, role model.AccountRole, secret *string) *model.Account {
	t.Helper()

	account, err := repo.Create(context.Background(), model.CreateAccountParams{
		Email:         email,
		DisplayName:   email,
		PasswordHash:  "hash",
		Role:          role,
		PairingSecret: secret,
	})
	require.NoError(t, err)
	return account
}

func strPtr(s string) *string {
	return &s
}
