package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/npmregistry/registryd/internal/cache"
	"github.com/npmregistry/registryd/internal/store"
	"github.com/npmregistry/registryd/internal/upstream"
)

func newTestEngine(t *testing.T, upstreamURL string) *Engine {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	metaRows := store.NewMetadataCacheStore(db)
	metaCache := cache.NewMetadataCache(t.TempDir(), metaRows, time.Hour)
	upstreamClient := upstream.New(upstreamURL, time.Second, 5*time.Second, 5*time.Second, 1, nil)

	return &Engine{
		Packages:      store.NewPackageStore(db),
		Versions:      store.NewVersionStore(db),
		Files:         store.NewFileStore(db),
		Tags:          store.NewTagStore(db),
		MetadataCache: metaCache,
		Upstream:      upstreamClient,
		UpstreamBase:  upstreamURL,
	}
}

func TestGetPackageDocumentFetchesFromUpstream(t *testing.T) {
	calls := 0
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"name": "example",
			"dist-tags": {"latest": "1.0.0"},
			"versions": {
				"1.0.0": {"name": "example", "version": "1.0.0", "dist": {"tarball": "https://registry.npmjs.org/example/-/example-1.0.0.tgz"}}
			},
			"time": {"1.0.0": "2024-01-01T00:00:00.000Z"}
		}`))
	}))
	defer up.Close()

	e := newTestEngine(t, up.URL)

	doc, err := e.GetPackageDocument(context.Background(), "example", "registry.internal", "https")
	if err != nil {
		t.Fatalf("GetPackageDocument: %v", err)
	}
	if doc["name"] != "example" {
		t.Fatalf("name = %v, want example", doc["name"])
	}
	versions := doc["versions"].(map[string]interface{})
	manifest := versions["1.0.0"].(map[string]interface{})
	dist := manifest["dist"].(map[string]interface{})
	want := "https://registry.internal/registry/example/-/example-1.0.0.tgz"
	if dist["tarball"] != want {
		t.Fatalf("tarball = %v, want %v", dist["tarball"], want)
	}
	if calls != 1 {
		t.Fatalf("upstream called %d times, want 1", calls)
	}

	// A second call within the TTL window should be served from cache
	// without hitting upstream again.
	if _, err := e.GetPackageDocument(context.Background(), "example", "registry.internal", "https"); err != nil {
		t.Fatalf("GetPackageDocument (cached): %v", err)
	}
	if calls != 1 {
		t.Fatalf("upstream called %d times after a cached lookup, want 1", calls)
	}
}

func TestGetPackageDocumentNotFoundUpstreamAndLocal(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer up.Close()

	e := newTestEngine(t, up.URL)

	if _, err := e.GetPackageDocument(context.Background(), "does-not-exist", "registry.internal", "https"); err == nil {
		t.Fatal("expected an error for a package missing both locally and upstream")
	}
}

func TestGetPackageDocumentDegradesToStaleCacheOnUpstreamFailure(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"name": "example", "dist-tags": {}, "versions": {}, "time": {}}`))
	}))

	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	metaRows := store.NewMetadataCacheStore(db)
	// A near-zero TTL means the entry written by the first call is
	// already stale by the time the second call checks freshness, so
	// that call is forced down the upstream-refetch path.
	metaCache := cache.NewMetadataCache(t.TempDir(), metaRows, time.Microsecond)
	upstreamClient := upstream.New(up.URL, time.Second, 5*time.Second, 5*time.Second, 0, nil)

	e := &Engine{
		Packages:      store.NewPackageStore(db),
		Versions:      store.NewVersionStore(db),
		Files:         store.NewFileStore(db),
		Tags:          store.NewTagStore(db),
		MetadataCache: metaCache,
		Upstream:      upstreamClient,
		UpstreamBase:  up.URL,
	}

	if _, err := e.GetPackageDocument(context.Background(), "example", "registry.internal", "https"); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}

	time.Sleep(time.Millisecond)
	up.Close()

	doc, err := e.GetPackageDocument(context.Background(), "example", "registry.internal", "https")
	if err != nil {
		t.Fatalf("expected degraded-mode success serving the stale cache, got error: %v", err)
	}
	if doc["name"] != "example" {
		t.Fatalf("name = %v, want example", doc["name"])
	}
}

func TestGetVersionManifestUnknownVersion(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"name": "example", "dist-tags": {}, "versions": {"1.0.0": {"name":"example","version":"1.0.0","dist":{}}}, "time": {}}`))
	}))
	defer up.Close()
	e := newTestEngine(t, up.URL)

	if _, err := e.GetVersionManifest(context.Background(), "example", "9.9.9", "registry.internal", "https"); err == nil {
		t.Fatal("expected an error for a version that doesn't exist")
	}
}
