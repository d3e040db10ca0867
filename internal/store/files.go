package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

type FileStore struct{ db *sqlx.DB }

func NewFileStore(db *sqlx.DB) *FileStore { return &FileStore{db: db} }

const fileColumns = `SELECT id, package_version_id, filename, size_bytes, content_type, etag,
	upstream_url, file_path, quarantined, created_at, last_accessed, access_count FROM package_files`

func (s *FileStore) Get(packageVersionID int64, filename string) (*models.PackageFile, error) {
	var f models.PackageFile
	err := s.db.Get(&f, fileColumns+` WHERE package_version_id = ? AND filename = ? AND quarantined = 0`, packageVersionID, filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create records a newly-stored blob. access_count starts at 1: the write
// that populates the cache counts as its first access.
func (s *FileStore) Create(packageVersionID int64, filename string, sizeBytes int64, contentType, etag *string, upstreamURL, filePath string) (*models.PackageFile, error) {
	_, err := s.db.Exec(
		`INSERT INTO package_files (package_version_id, filename, size_bytes, content_type, etag, upstream_url, file_path, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		packageVersionID, filename, sizeBytes, contentType, etag, upstreamURL, filePath,
	)
	if err != nil {
		return nil, err
	}
	return s.Get(packageVersionID, filename)
}

// TouchAccess bumps last_accessed/access_count on a hit. Callers fire this
// best-effort; TarballCache.Lookup discards its error.
func (s *FileStore) TouchAccess(id int64) error {
	_, err := s.db.Exec(`UPDATE package_files SET last_accessed = CURRENT_TIMESTAMP, access_count = access_count + 1 WHERE id = ?`, id)
	return err
}

// Quarantine marks a row whose blob is missing on disk. A quarantined row
// is excluded from Get and treated as a miss.
func (s *FileStore) Quarantine(id int64) error {
	_, err := s.db.Exec(`UPDATE package_files SET quarantined = 1 WHERE id = ?`, id)
	return err
}

func (s *FileStore) ClearAll() error {
	_, err := s.db.Exec(`DELETE FROM package_files`)
	return err
}

func (s *FileStore) TotalSizeBytes() (int64, error) {
	var n sql.NullInt64
	if err := s.db.Get(&n, `SELECT SUM(size_bytes) FROM package_files WHERE quarantined = 0`); err != nil {
		return 0, err
	}
	return n.Int64, nil
}

// TopByAccessCount supports the "most popular" analytics aggregate,
// grouped back up to the owning package.
type PopularPackage struct {
	PackageName string `db:"package_name"`
	AccessCount int64  `db:"access_count"`
}

func (s *FileStore) TopByAccessCount(limit int) ([]PopularPackage, error) {
	var rows []PopularPackage
	err := s.db.Select(&rows, `
		SELECT p.name AS package_name, SUM(pf.access_count) AS access_count
		FROM package_files pf
		JOIN package_versions pv ON pf.package_version_id = pv.id
		JOIN packages p ON pv.package_id = p.id
		WHERE pf.quarantined = 0
		GROUP BY p.name
		ORDER BY access_count DESC
		LIMIT ?`, limit)
	return rows, err
}
