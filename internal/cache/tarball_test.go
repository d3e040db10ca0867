package cache

import (
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/npmregistry/registryd/internal/store"
)

func newTestTarballCache(t *testing.T) (*TarballCache, *store.FileStore, *sqlx.DB) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	files := store.NewFileStore(db)
	stats := store.NewCacheStatsStore(db)
	return NewTarballCache(t.TempDir(), files, stats), files, db
}

func setupPackageVersion(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	pkgs := store.NewPackageStore(db)
	pkg, err := pkgs.CreateOrGet("example", nil)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	versions := store.NewVersionStore(db)
	v, err := versions.Create(store.NewVersion{PackageID: pkg.ID, Version: "1.0.0"})
	if err != nil {
		t.Fatalf("Create version: %v", err)
	}
	return v.ID
}

func TestTarballCacheStoreThenLookupHits(t *testing.T) {
	tc, _, db := newTestTarballCache(t)
	versionID := setupPackageVersion(t, db)

	release := tc.Lock("example", "example-1.0.0.tgz")
	pf, err := tc.Store(versionID, "example", "example-1.0.0.tgz", strings.NewReader("tarball bytes"), "", nil, nil)
	release()
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if pf.SizeBytes != int64(len("tarball bytes")) {
		t.Fatalf("SizeBytes = %d", pf.SizeBytes)
	}

	rc, gotPf, err := tc.Lookup(versionID, "example", "example-1.0.0.tgz")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	defer rc.Close()
	if gotPf.ID != pf.ID {
		t.Fatalf("Lookup returned a different row: %d vs %d", gotPf.ID, pf.ID)
	}

	hit, miss := tc.Stats()
	if hit != 1 || miss != 0 {
		t.Fatalf("Stats() = (%d, %d), want (1, 0)", hit, miss)
	}
}

func TestTarballCacheLookupMissWhenNoRow(t *testing.T) {
	tc, _, _ := newTestTarballCache(t)

	if _, _, err := tc.Lookup(1, "example", "missing.tgz"); err != store.ErrNotFound {
		t.Fatalf("Lookup error = %v, want ErrNotFound", err)
	}
	hit, miss := tc.Stats()
	if hit != 0 || miss != 1 {
		t.Fatalf("Stats() = (%d, %d), want (0, 1)", hit, miss)
	}
}

func TestTarballCacheQuarantinesMissingBlob(t *testing.T) {
	tc, files, db := newTestTarballCache(t)
	versionID := setupPackageVersion(t, db)

	release := tc.Lock("example", "example-1.0.0.tgz")
	pf, err := tc.Store(versionID, "example", "example-1.0.0.tgz", strings.NewReader("bytes"), "", nil, nil)
	release()
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	if err := os.Remove(pf.FilePath); err != nil {
		t.Fatalf("remove blob: %v", err)
	}

	if _, _, err := tc.Lookup(versionID, "example", "example-1.0.0.tgz"); err != store.ErrNotFound {
		t.Fatalf("Lookup error = %v, want ErrNotFound for a quarantined row", err)
	}

	quarantined, err := files.Get(versionID, "example-1.0.0.tgz")
	if quarantined != nil || err != store.ErrNotFound {
		t.Fatal("quarantined row should no longer be returned by Get")
	}
}
