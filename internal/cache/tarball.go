package cache

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/npmregistry/registryd/internal/models"
	"github.com/npmregistry/registryd/internal/store"
)

// TarballCache is the permanent, content-addressed blob store: disk layout
// {cache_dir}/packages/{name}/{filename}, bookkeeping in PackageFile rows,
// hit/miss counters flushed to CacheStats.
type TarballCache struct {
	baseDir string
	files   *store.FileStore
	stats   *store.CacheStatsStore
	locks   *lockTable

	hitCount  atomic.Int64
	missCount atomic.Int64
}

func NewTarballCache(cacheDir string, files *store.FileStore, stats *store.CacheStatsStore) *TarballCache {
	return &TarballCache{
		baseDir: filepath.Join(cacheDir, "packages"),
		files:   files,
		stats:   stats,
		locks:   newLockTable(),
	}
}

// Path returns the on-disk location for a package's tarball. name may
// contain a literal "/" for scoped packages (@scope/pkg), which becomes a
// real subdirectory.
func (c *TarballCache) Path(name, filename string) string {
	return filepath.Join(c.baseDir, filepath.FromSlash(name), filename)
}

func lockKey(name, filename string) string { return name + "\x00" + filename }

// Lookup serves a tarball from disk if a non-quarantined PackageFile row
// exists and its blob is present. A row without a blob is quarantined
// in-place and treated as a miss.
func (c *TarballCache) Lookup(packageVersionID int64, name, filename string) (io.ReadSeekCloser, *models.PackageFile, error) {
	pf, err := c.files.Get(packageVersionID, filename)
	if err != nil {
		if err == store.ErrNotFound {
			c.missCount.Add(1)
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}

	f, openErr := os.Open(pf.FilePath)
	if openErr != nil {
		if os.IsNotExist(openErr) {
			_ = c.files.Quarantine(pf.ID)
			c.missCount.Add(1)
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, openErr
	}

	c.hitCount.Add(1)
	go func() { _ = c.files.TouchAccess(pf.ID) }()
	return f, pf, nil
}

// Store writes body to disk atomically and records the PackageFile row.
// Callers must hold the lock returned by Lock for (name, filename).
func (c *TarballCache) Store(packageVersionID int64, name, filename string, body io.Reader, upstreamURL string, contentType, etag *string) (*models.PackageFile, error) {
	path := c.Path(name, filename)
	written, err := atomicWrite(path, body)
	if err != nil {
		return nil, err
	}
	pf, err := c.files.Create(packageVersionID, filename, written, contentType, etag, upstreamURL, path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return pf, nil
}

// Lock serializes concurrent fetches for the same (name, filename) so at
// most one upstream fetch for it is ever in flight.
func (c *TarballCache) Lock(name, filename string) (release func()) {
	return c.locks.Acquire(lockKey(name, filename))
}

// RecordMiss counts a lookup that never reached Lookup because no local
// Package or PackageVersion row existed yet to look up against.
func (c *TarballCache) RecordMiss() {
	c.missCount.Add(1)
}

// ClearAll deletes every PackageFile row and its blob. Package,
// PackageVersion, MetadataCache, and ownership rows are untouched.
func (c *TarballCache) ClearAll() error {
	if err := os.RemoveAll(c.baseDir); err != nil {
		return err
	}
	return c.files.ClearAll()
}

// Stats returns the in-memory counters accumulated since process start,
// NOT the durable total (callers combine with store.CacheStatsStore.Get).
func (c *TarballCache) Stats() (hit, miss int64) {
	return c.hitCount.Load(), c.missCount.Load()
}

// FlushStats persists and resets the in-memory deltas; called periodically
// by cmd/registryd on a ticker.
func (c *TarballCache) FlushStats() error {
	hit := c.hitCount.Swap(0)
	miss := c.missCount.Swap(0)
	return c.stats.Flush(hit, miss)
}
