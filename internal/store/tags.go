package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

// TagStore manages dist-tags beyond "latest". "latest" itself is computed
// by the merge engine from semver, never stored here.
type TagStore struct{ db *sqlx.DB }

func NewTagStore(db *sqlx.DB) *TagStore { return &TagStore{db: db} }

func (s *TagStore) ListByPackage(packageName string) ([]models.PackageTag, error) {
	var tags []models.PackageTag
	err := s.db.Select(&tags,
		`SELECT id, package_name, tag_name, version, created_at, updated_at FROM package_tags WHERE package_name = ?`,
		packageName,
	)
	return tags, err
}

func (s *TagStore) Set(packageName, tagName, version string) error {
	_, err := s.db.Exec(
		`INSERT INTO package_tags (package_name, tag_name, version) VALUES (?, ?, ?)
		ON CONFLICT(package_name, tag_name) DO UPDATE SET version = excluded.version, updated_at = CURRENT_TIMESTAMP`,
		packageName, tagName, version,
	)
	return err
}

func (s *TagStore) Get(packageName, tagName string) (*models.PackageTag, error) {
	var t models.PackageTag
	err := s.db.Get(&t,
		`SELECT id, package_name, tag_name, version, created_at, updated_at FROM package_tags WHERE package_name = ? AND tag_name = ?`,
		packageName, tagName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}
