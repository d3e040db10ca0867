// Package auth handles account registration, login, and the opaque bearer
// tokens that authenticate every subsequent request. Tokens are plain
// random strings checked against store.TokenStore on every call, so
// revoking one takes effect immediately — the registry never carries a
// JWT-style token that must be trusted until it expires.
package auth

import (
	"time"

	"github.com/npmregistry/registryd/internal/apierr"
	"github.com/npmregistry/registryd/internal/models"
	"github.com/npmregistry/registryd/internal/store"
)

type Service struct {
	Users    *store.UserStore
	Tokens   *store.TokenStore
	TokenTTL time.Duration
}

func NewService(users *store.UserStore, tokens *store.TokenStore, tokenTTL time.Duration) *Service {
	return &Service{Users: users, Tokens: tokens, TokenTTL: tokenTTL}
}

// Register creates a new account. Duplicate usernames are rejected as a
// conflict rather than surfacing the raw UNIQUE constraint error.
func (s *Service) Register(username, email, password string) (*models.User, error) {
	if _, err := s.Users.GetByUsername(username); err == nil {
		return nil, apierr.Conflict("username already registered")
	} else if err != store.ErrNotFound {
		return nil, apierr.Storage("check existing user", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, apierr.Storage("hash password", err)
	}

	user, err := s.Users.Create(username, email, hash)
	if err != nil {
		return nil, apierr.Storage("create user", err)
	}
	return user, nil
}

// Login validates credentials and mints a fresh opaque auth token.
func (s *Service) Login(username, password string) (*models.Token, *models.User, error) {
	user, err := s.Users.GetByUsername(username)
	if err == store.ErrNotFound {
		return nil, nil, apierr.Unauthorized("invalid username or password")
	}
	if err != nil {
		return nil, nil, apierr.Storage("look up user", err)
	}
	if !user.IsActive {
		return nil, nil, apierr.Unauthorized("account is disabled")
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, nil, apierr.Unauthorized("invalid username or password")
	}

	raw, err := generateOpaqueToken()
	if err != nil {
		return nil, nil, apierr.Storage("generate token", err)
	}
	var expiresAt *time.Time
	if s.TokenTTL > 0 {
		t := time.Now().Add(s.TokenTTL)
		expiresAt = &t
	}
	token, err := s.Tokens.Create(user.ID, raw, models.TokenTypeAuth, expiresAt)
	if err != nil {
		return nil, nil, apierr.Storage("persist token", err)
	}
	return token, user, nil
}

// WhoAmI resolves a bearer token to its owning, still-active user.
func (s *Service) WhoAmI(rawToken string) (*models.User, error) {
	token, err := s.Tokens.GetActive(rawToken, time.Now())
	if err == store.ErrNotFound {
		return nil, apierr.Unauthorized("invalid or expired token")
	}
	if err != nil {
		return nil, apierr.Storage("look up token", err)
	}
	user, err := s.Users.GetByID(token.UserID)
	if err != nil {
		return nil, apierr.Storage("look up user", err)
	}
	if !user.IsActive {
		return nil, apierr.Unauthorized("account is disabled")
	}
	return user, nil
}

// Logout revokes a token. Revoking an already-inactive or unknown token is
// not an error: logout is idempotent from the caller's perspective.
func (s *Service) Logout(rawToken string) error {
	if err := s.Tokens.Revoke(rawToken); err != nil {
		return apierr.Storage("revoke token", err)
	}
	return nil
}

// IssuePublishToken mints a publish-type token for `npm login`/CI use,
// with its own ttl, distinct from the auth-type token Login returns (whose
// lifetime is the service's TokenTTL).
func (s *Service) IssuePublishToken(userID int64, ttl time.Duration) (*models.Token, error) {
	raw, err := generateOpaqueToken()
	if err != nil {
		return nil, apierr.Storage("generate token", err)
	}
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	token, err := s.Tokens.Create(userID, raw, models.TokenTypePublish, expiresAt)
	if err != nil {
		return nil, apierr.Storage("persist token", err)
	}
	return token, nil
}
