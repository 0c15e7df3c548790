package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
	"github.com/cliprelay/relay-server-go/internal/model"
	"github.com/cliprelay/relay-server-go/internal/repository"
	"github.com/cliprelay/relay-server-go/internal/util"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        model.AccountRole
}

// AccountView is an account together with its counterpart's public identity.
type AccountView struct {
	*model.Account
	Counterpart *model.PublicIdentity `json:"counterpart,omitempty"`
}

type AccountService struct {
	accountRepo repository.AccountRepository
	pairing     *PairingService
	jwtSecret   []byte
	sessionTTL  time.Duration
}

func NewAccountService(
	accountRepo repository.AccountRepository,
	pairing *PairingService,
	jwtSecret string,
	sessionTTL time.Duration,
) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		pairing:     pairing,
		jwtSecret:   []byte(jwtSecret),
		sessionTTL:  sessionTTL,
	}
}

// Register creates an account. Owners are issued their first pairing secret.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.Account, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.DisplayName = strings.TrimSpace(input.DisplayName)

	if !util.IsValidEmail(input.Email) {
		return nil, apperrors.InvalidInput("email", "must be a valid address")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.InvalidInput("password", "must be at least 8 characters")
	}
	if !input.Role.Valid() {
		return nil, apperrors.InvalidInput("role", "must be owner or collaborator")
	}
	if input.DisplayName == "" {
		input.DisplayName = input.Email
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password").WithCause(err)
	}

	account, err := s.accountRepo.Create(ctx, model.CreateAccountParams{
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		PasswordHash: hash,
		Role:         input.Role,
	})
	if repository.IsUniqueViolation(err) {
		return nil, apperrors.AlreadyExists("account")
	}
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if account.IsOwner() {
		secret, err := s.pairing.IssuePairingSecret(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		account.PairingSecret = &secret
	}

	log.Info().Str("accountId", account.ID).Str("role", string(account.Role)).Msg("account registered")
	return account, nil
}

// Login verifies the password and issues a session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	account, err := s.accountRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", nil, apperrors.Database(err)
	}
	if account == nil || !util.CheckPasswordHash(password, account.PasswordHash) {
		return "", nil, apperrors.Unauthorized("Invalid email or password")
	}

	token, err := util.GenerateSessionToken(util.SessionClaims{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      string(account.Role),
	}, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return "", nil, apperrors.Internal("failed to issue session").WithCause(err)
	}

	log.Info().Str("accountId", account.ID).Msg("account logged in")
	return token, account, nil
}

// Authenticate turns a session token into the caller identity.
func (s *AccountService) Authenticate(token string) (*model.Identity, error) {
	claims, err := util.ParseSessionToken(token, s.jwtSecret)
	if err != nil {
		return nil, apperrors.InvalidToken("Invalid or expired session")
	}
	role := model.AccountRole(claims.Role)
	if !role.Valid() {
		return nil, apperrors.InvalidToken("Invalid or expired session")
	}
	return &model.Identity{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Role:      role,
	}, nil
}

func (s *AccountService) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("account")
	}
	return account, nil
}

// Me returns the caller's account and its paired counterpart, if any.
func (s *AccountService) Me(ctx context.Context, identity model.Identity) (*AccountView, error) {
	account, err := s.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, err
	}

	view := &AccountView{Account: account}
	if account.IsPaired() {
		counterpart, err := s.accountRepo.FindByID(ctx, *account.PairedAccountID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if counterpart != nil {
			pub := counterpart.PublicIdentity()
			view.Counterpart = &pub
		}
	}
	return view, nil
}
