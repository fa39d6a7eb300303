package services

import (
	"context"
	"errors"
	"time"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/store"
	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

// ErrInvalidCredentials covers unknown users, wrong passwords and inactive
// accounts alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyPassword is hashed once at startup so that lookups of unknown users
// cost the same as a failed verification.
const dummyPassword = "dummy-password-for-timing"

// CredentialStore looks up users by login name.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) bool
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(username string, userID int64, role string, lifetime time.Duration) (string, error)
}

// Authenticator checks username/password pairs against the credential store.
type Authenticator struct {
	users     CredentialStore
	passwords PasswordHasher
	dummyHash string
}

func NewAuthenticator(users CredentialStore, passwords PasswordHasher) (*Authenticator, error) {
	dummyHash, err := passwords.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		users:     users,
		passwords: passwords,
		dummyHash: dummyHash,
	}, nil
}

// Authenticate returns the user owning username when password matches and
// the account is active. Storage failures are returned unchanged.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.passwords.Verify(password, a.dummyHash)
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if !a.passwords.Verify(password, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// AuthService turns verified credentials into access tokens.
type AuthService struct {
	authenticator *Authenticator
	tokens        TokenIssuer
	tokenTTL      time.Duration
}

func NewAuthService(authenticator *Authenticator, tokens TokenIssuer, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		tokens:        tokens,
		tokenTTL:      tokenTTL,
	}
}

// Login authenticates the caller and issues a token carrying their identity.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(user.Username, user.ID, user.Role, s.tokenTTL)
}
