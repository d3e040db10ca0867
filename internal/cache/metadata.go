package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/npmregistry/registryd/internal/models"
	"github.com/npmregistry/registryd/internal/store"
)

// MetadataCache is the document store: one JSON file per package name,
// TTL-based freshness, etag-based revalidation.
type MetadataCache struct {
	baseDir string
	rows    *store.MetadataCacheStore
	locks   *lockTable
	ttl     time.Duration
}

func NewMetadataCache(cacheDir string, rows *store.MetadataCacheStore, ttl time.Duration) *MetadataCache {
	return &MetadataCache{
		baseDir: filepath.Join(cacheDir, "metadata"),
		rows:    rows,
		locks:   newLockTable(),
		ttl:     ttl,
	}
}

func (c *MetadataCache) Path(name string) string {
	return filepath.Join(c.baseDir, filepath.FromSlash(name)+".json")
}

// Entry bundles the cached row with its parsed freshness state.
type Entry struct {
	Row   *models.MetadataCache
	Bytes []byte
	Fresh bool
}

// Get returns the cached document for name, or store.ErrNotFound if there
// is no cache row at all.
func (c *MetadataCache) Get(name string) (*Entry, error) {
	row, err := c.rows.Get(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(row.FilePath)
	if err != nil {
		return nil, err
	}
	fresh := time.Since(row.UpdatedAt) < c.ttl
	return &Entry{Row: row, Bytes: data, Fresh: fresh}, nil
}

// Put atomically rewrites the cache file (write to temp, then rename) and
// upserts the row.
func (c *MetadataCache) Put(name string, body []byte, etag *string) error {
	path := c.Path(name)
	written, err := atomicWrite(path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return c.rows.Upsert(name, written, path, etag)
}

// TouchFresh refreshes timestamps on a 304 revalidation without rewriting
// the file.
func (c *MetadataCache) TouchFresh(name string) error {
	return c.rows.TouchFresh(name)
}

func (c *MetadataCache) Invalidate(name string) error {
	if err := c.rows.Invalidate(name); err != nil {
		return err
	}
	return os.Remove(c.Path(name))
}

func (c *MetadataCache) ClearAll() error {
	if err := os.RemoveAll(c.baseDir); err != nil {
		return err
	}
	return c.rows.ClearAll()
}

// Lock serializes concurrent upstream refetches for the same package name.
func (c *MetadataCache) Lock(name string) (release func()) {
	return c.locks.Acquire(name)
}
