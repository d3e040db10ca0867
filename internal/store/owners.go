package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

type OwnerStore struct{ db *sqlx.DB }

func NewOwnerStore(db *sqlx.DB) *OwnerStore { return &OwnerStore{db: db} }

func (s *OwnerStore) Get(packageName string, userID int64) (*models.PackageOwner, error) {
	var o models.PackageOwner
	err := s.db.Get(&o,
		`SELECT id, package_name, user_id, permission_level, created_at FROM package_owners WHERE package_name = ? AND user_id = ?`,
		packageName, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *OwnerStore) HasAny(packageName string) (bool, error) {
	var exists int
	err := s.db.Get(&exists, `SELECT 1 FROM package_owners WHERE package_name = ? LIMIT 1`, packageName)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (s *OwnerStore) Grant(packageName string, userID int64, level models.PermissionLevel) error {
	_, err := s.db.Exec(
		`INSERT INTO package_owners (package_name, user_id, permission_level) VALUES (?, ?, ?)
		ON CONFLICT(package_name, user_id) DO UPDATE SET permission_level = excluded.permission_level`,
		packageName, userID, level,
	)
	return err
}

// CanWrite reports whether the owner row grants write or admin access,
// the gate required before publishing a new version.
func CanWrite(o *models.PackageOwner) bool {
	return o.PermissionLevel == models.PermissionWrite || o.PermissionLevel == models.PermissionAdmin
}
