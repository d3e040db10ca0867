package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

type MetadataCacheStore struct{ db *sqlx.DB }

func NewMetadataCacheStore(db *sqlx.DB) *MetadataCacheStore { return &MetadataCacheStore{db: db} }

func (s *MetadataCacheStore) Get(packageName string) (*models.MetadataCache, error) {
	var m models.MetadataCache
	err := s.db.Get(&m,
		`SELECT id, package_name, size_bytes, file_path, etag, created_at, updated_at, last_accessed, access_count
		FROM metadata_cache WHERE package_name = ?`, packageName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MetadataCacheStore) Upsert(packageName string, sizeBytes int64, filePath string, etag *string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata_cache (package_name, size_bytes, file_path, etag) VALUES (?, ?, ?, ?)
		ON CONFLICT(package_name) DO UPDATE SET
			size_bytes = excluded.size_bytes,
			file_path = excluded.file_path,
			etag = excluded.etag,
			updated_at = CURRENT_TIMESTAMP,
			last_accessed = CURRENT_TIMESTAMP`,
		packageName, sizeBytes, filePath, etag,
	)
	return err
}

// TouchFresh refreshes updated_at/last_accessed on a 304 revalidation or a
// fresh-cache hit.
func (s *MetadataCacheStore) TouchFresh(packageName string) error {
	_, err := s.db.Exec(
		`UPDATE metadata_cache SET updated_at = CURRENT_TIMESTAMP, last_accessed = CURRENT_TIMESTAMP, access_count = access_count + 1 WHERE package_name = ?`,
		packageName,
	)
	return err
}

func (s *MetadataCacheStore) TouchAccess(packageName string) error {
	_, err := s.db.Exec(
		`UPDATE metadata_cache SET last_accessed = CURRENT_TIMESTAMP, access_count = access_count + 1 WHERE package_name = ?`,
		packageName,
	)
	return err
}

func (s *MetadataCacheStore) Invalidate(packageName string) error {
	_, err := s.db.Exec(`DELETE FROM metadata_cache WHERE package_name = ?`, packageName)
	return err
}

func (s *MetadataCacheStore) ClearAll() error {
	_, err := s.db.Exec(`DELETE FROM metadata_cache`)
	return err
}

func (s *MetadataCacheStore) Count() (int64, error) {
	var n int64
	err := s.db.Get(&n, `SELECT COUNT(*) FROM metadata_cache`)
	return n, err
}
