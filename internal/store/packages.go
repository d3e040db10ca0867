package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

type PackageStore struct{ db *sqlx.DB }

func NewPackageStore(db *sqlx.DB) *PackageStore { return &PackageStore{db: db} }

func (s *PackageStore) GetByName(name string) (*models.Package, error) {
	var p models.Package
	err := s.db.Get(&p, packageColumns+` WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const packageColumns = `SELECT id, name, description, author_id, homepage, repository_url,
	license, keywords, organization_id, is_private, created_at, updated_at FROM packages`

// CreateOrGet returns the existing Package row for name, or creates one
// with no author — a proxied package observed for the first time.
func (s *PackageStore) CreateOrGet(name string, description *string) (*models.Package, error) {
	p, err := s.GetByName(name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO packages (name, description, is_private) VALUES (?, ?, 0)`,
		name, description,
	)
	if err != nil {
		return nil, err
	}
	return s.GetByName(name)
}

// CreatePublished creates a Package row for a local publish: authored by
// userID, optionally scoped to an organization.
func (s *PackageStore) CreatePublished(name string, description *string, authorID int64, organizationID *int64) (*models.Package, error) {
	_, err := s.db.Exec(
		`INSERT INTO packages (name, description, author_id, organization_id, is_private) VALUES (?, ?, ?, ?, 0)`,
		name, description, authorID, organizationID,
	)
	if err != nil {
		return nil, err
	}
	return s.GetByName(name)
}

func (s *PackageStore) UpdateMetadata(id int64, homepage, repositoryURL, license, keywords *string) error {
	_, err := s.db.Exec(
		`UPDATE packages SET
			homepage = COALESCE(?, homepage),
			repository_url = COALESCE(?, repository_url),
			license = COALESCE(?, license),
			keywords = COALESCE(?, keywords),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		homepage, repositoryURL, license, keywords, id,
	)
	return err
}

func (s *PackageStore) TouchUpdatedAt(id int64) error {
	_, err := s.db.Exec(`UPDATE packages SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

func (s *PackageStore) Count() (int64, error) {
	var n int64
	err := s.db.Get(&n, `SELECT COUNT(*) FROM packages`)
	return n, err
}

func (s *PackageStore) Search(q string, limit, offset int) ([]models.Package, error) {
	var pkgs []models.Package
	var err error
	if q == "" {
		err = s.db.Select(&pkgs, packageColumns+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	} else {
		like := "%" + q + "%"
		err = s.db.Select(&pkgs, packageColumns+` WHERE name LIKE ? OR description LIKE ? ORDER BY created_at DESC LIMIT ? OFFSET ?`, like, like, limit, offset)
	}
	return pkgs, err
}

func (s *PackageStore) Recent(limit int) ([]models.Package, error) {
	var pkgs []models.Package
	err := s.db.Select(&pkgs, packageColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	return pkgs, err
}
