package publish

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/npmregistry/registryd/internal/cache"
	"github.com/npmregistry/registryd/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.UserStore) {
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
	cacheStats := store.NewCacheStatsStore(db)
	metaRows := store.NewMetadataCacheStore(db)

	svc := &Service{
		Packages:      store.NewPackageStore(db),
		Versions:      store.NewVersionStore(db),
		Owners:        store.NewOwnerStore(db),
		Orgs:          store.NewOrganizationStore(db),
		Tags:          store.NewTagStore(db),
		TarballCache:  cache.NewTarballCache(t.TempDir(), files, cacheStats),
		MetadataCache: cache.NewMetadataCache(t.TempDir(), metaRows, time.Hour),
	}
	return svc, store.NewUserStore(db)
}

func envelopeBody(name, version, tarball string) []byte {
	data := base64.StdEncoding.EncodeToString([]byte(tarball))
	return []byte(`{
		"name": "` + name + `",
		"versions": {
			"` + version + `": {
				"name": "` + name + `",
				"version": "` + version + `",
				"description": "a test package"
			}
		},
		"_attachments": {
			"` + name + `-` + version + `.tgz": {
				"content_type": "application/octet-stream",
				"data": "` + data + `",
				"length": ` + itoaLen(tarball) + `
			}
		}
	}`)
}

func itoaLen(s string) string {
	n := len(s)
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestPublishFirstVersionGrantsOwnership(t *testing.T) {
	svc, users := newTestService(t)
	user, err := users.Create("alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	result, err := svc.Publish(envelopeBody("example-pkg", "1.0.0", "fake-tarball-bytes"), user.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !result.OK || result.ID != "example-pkg" {
		t.Fatalf("result = %+v", result)
	}

	owner, err := svc.Owners.Get("example-pkg", user.ID)
	if err != nil {
		t.Fatalf("Owners.Get: %v", err)
	}
	if !store.CanWrite(owner) {
		t.Fatal("first publisher should be granted write access")
	}

	pkg, err := svc.Packages.GetByName("example-pkg")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	exists, err := svc.Versions.Exists(pkg.ID, "1.0.0")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("published version should exist")
	}
}

func TestPublishDuplicateVersionConflicts(t *testing.T) {
	svc, users := newTestService(t)
	user, err := users.Create("alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	if _, err := svc.Publish(envelopeBody("example-pkg", "1.0.0", "v1"), user.ID); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if _, err := svc.Publish(envelopeBody("example-pkg", "1.0.0", "v1-again"), user.ID); err == nil {
		t.Fatal("expected a conflict for republishing the same version")
	}
}

func TestPublishByNonOwnerForbidden(t *testing.T) {
	svc, users := newTestService(t)
	owner, err := users.Create("alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("Create owner: %v", err)
	}
	other, err := users.Create("mallory", "mallory@example.com", "hash")
	if err != nil {
		t.Fatalf("Create other user: %v", err)
	}

	if _, err := svc.Publish(envelopeBody("example-pkg", "1.0.0", "v1"), owner.ID); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if _, err := svc.Publish(envelopeBody("example-pkg", "2.0.0", "v2"), other.ID); err == nil {
		t.Fatal("expected a forbidden error for a non-owner publishing a second version")
	}
}

func TestPublishScopedPackageAutoProvisionsOrganization(t *testing.T) {
	svc, users := newTestService(t)
	user, err := users.Create("alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	if _, err := svc.Publish(envelopeBody("@myorg/pkg", "1.0.0", "v1"), user.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	org, err := svc.Orgs.GetByName("myorg")
	if err != nil {
		t.Fatalf("GetByName org: %v", err)
	}
	isMember, err := svc.Orgs.IsMember(org.ID, user.ID)
	if err != nil {
		t.Fatalf("IsMember: %v", err)
	}
	if !isMember {
		t.Fatal("the first scoped publisher should become an organization member")
	}
}

func TestPublishScopedPackageByNonMemberForbidden(t *testing.T) {
	svc, users := newTestService(t)
	owner, err := users.Create("alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("Create owner: %v", err)
	}
	outsider, err := users.Create("mallory", "mallory@example.com", "hash")
	if err != nil {
		t.Fatalf("Create outsider: %v", err)
	}

	if _, err := svc.Publish(envelopeBody("@myorg/pkg", "1.0.0", "v1"), owner.ID); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if _, err := svc.Publish(envelopeBody("@myorg/other", "1.0.0", "v1"), outsider.ID); err == nil {
		t.Fatal("expected a forbidden error for a non-member publishing under an existing scope")
	}

	if _, err := svc.Packages.GetByName("@myorg/other"); err != store.ErrNotFound {
		t.Fatal("the rejected package should not have been created")
	}
}

func TestPublishScopedTarballStoredUnderUnscopedFilename(t *testing.T) {
	svc, users := newTestService(t)
	user, err := users.Create("alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	if _, err := svc.Publish(envelopeBody("@myorg/util", "1.0.0", "tarball bytes"), user.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	pkg, err := svc.Packages.GetByName("@myorg/util")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	v, err := svc.Versions.Get(pkg.ID, "1.0.0")
	if err != nil {
		t.Fatalf("Versions.Get: %v", err)
	}

	rc, _, err := svc.TarballCache.Lookup(v.ID, "@myorg/util", "util-1.0.0.tgz")
	if err != nil {
		t.Fatalf("Lookup under scope-stripped filename: %v", err)
	}
	rc.Close()
}
