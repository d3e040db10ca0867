package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

type TokenStore struct{ db *sqlx.DB }

func NewTokenStore(db *sqlx.DB) *TokenStore { return &TokenStore{db: db} }

func (s *TokenStore) Create(userID int64, token string, tokenType models.TokenType, expiresAt *time.Time) (*models.Token, error) {
	res, err := s.db.Exec(
		`INSERT INTO user_tokens (user_id, token, token_type, expires_at, is_active) VALUES (?, ?, ?, ?, 1)`,
		userID, token, tokenType, expiresAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	var t models.Token
	if err := s.db.Get(&t, `SELECT id, user_id, token, token_type, expires_at, is_active, created_at FROM user_tokens WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetActive looks up a token and validates is_active/expires_at, so a
// revoked or expired token is indistinguishable from one that never
// existed.
func (s *TokenStore) GetActive(token string, now time.Time) (*models.Token, error) {
	var t models.Token
	err := s.db.Get(&t, `SELECT id, user_id, token, token_type, expires_at, is_active, created_at FROM user_tokens WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrNotFound
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *TokenStore) Revoke(token string) error {
	_, err := s.db.Exec(`UPDATE user_tokens SET is_active = 0 WHERE token = ?`, token)
	return err
}
