package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

// ErrNotFound is returned by repository lookups that found no row; callers
// translate it into apierr.NotFound at the boundary that has enough context
// to phrase the message.
var ErrNotFound = errors.New("not found")

type UserStore struct{ db *sqlx.DB }

func NewUserStore(db *sqlx.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) Create(username, email, passwordHash string) (*models.User, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, is_active) VALUES (?, ?, ?, 1)`,
		username, email, passwordHash,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*models.User, error) {
	var u models.User
	err := s.db.Get(&u, `SELECT id, username, email, password_hash, is_active, created_at FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) GetByUsername(username string) (*models.User, error) {
	var u models.User
	err := s.db.Get(&u, `SELECT id, username, email, password_hash, is_active, created_at FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
