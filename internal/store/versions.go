package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

type VersionStore struct{ db *sqlx.DB }

func NewVersionStore(db *sqlx.DB) *VersionStore { return &VersionStore{db: db} }

const versionColumns = `SELECT id, package_id, version, description, main_file, scripts,
	dependencies, dev_dependencies, peer_dependencies, engines, shasum, readme,
	created_at, updated_at FROM package_versions`

func (s *VersionStore) ListByPackage(packageID int64) ([]models.PackageVersion, error) {
	var versions []models.PackageVersion
	err := s.db.Select(&versions, versionColumns+` WHERE package_id = ? ORDER BY created_at ASC`, packageID)
	return versions, err
}

func (s *VersionStore) Get(packageID int64, version string) (*models.PackageVersion, error) {
	var v models.PackageVersion
	err := s.db.Get(&v, versionColumns+` WHERE package_id = ? AND version = ?`, packageID, version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VersionStore) Exists(packageID int64, version string) (bool, error) {
	var exists int
	err := s.db.Get(&exists, `SELECT 1 FROM package_versions WHERE package_id = ? AND version = ? LIMIT 1`, packageID, version)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

// NewVersion is the write shape used by both the proxy ingest path and the
// publish pipeline.
type NewVersion struct {
	PackageID        int64
	Version          string
	Description      *string
	MainFile         *string
	Scripts          *string
	Dependencies     *string
	DevDependencies  *string
	PeerDependencies *string
	Engines          *string
	Shasum           *string
	Readme           *string
}

func (s *VersionStore) Create(v NewVersion) (*models.PackageVersion, error) {
	_, err := s.db.Exec(
		`INSERT INTO package_versions (package_id, version, description, main_file, scripts,
			dependencies, dev_dependencies, peer_dependencies, engines, shasum, readme)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.PackageID, v.Version, v.Description, v.MainFile, v.Scripts,
		v.Dependencies, v.DevDependencies, v.PeerDependencies, v.Engines, v.Shasum, v.Readme,
	)
	if err != nil {
		return nil, err
	}
	return s.Get(v.PackageID, v.Version)
}

// CreateOrGet upserts a version observed by the proxy when it fetches that
// version's tarball from upstream; existing local rows are never
// overwritten by proxy ingest (local wins).
func (s *VersionStore) CreateOrGet(v NewVersion) (*models.PackageVersion, error) {
	exists, err := s.Exists(v.PackageID, v.Version)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.Get(v.PackageID, v.Version)
	}
	return s.Create(v)
}

// Delete removes a version row; used to undo a PackageVersion insert when
// the tarball write that must accompany it fails.
func (s *VersionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM package_versions WHERE id = ?`, id)
	return err
}

func (s *VersionStore) CountDistinctPackages() (int64, error) {
	var n int64
	err := s.db.Get(&n, `SELECT COUNT(DISTINCT package_id) FROM package_versions`)
	return n, err
}
