package store

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/npmregistry/registryd/internal/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate call failed: %v", err)
	}
}

func TestPackageCreateOrGetCreatesOnce(t *testing.T) {
	db := newTestDB(t)
	ps := NewPackageStore(db)

	first, err := ps.CreateOrGet("lodash", nil)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	second, err := ps.CreateOrGet("lodash", nil)
	if err != nil {
		t.Fatalf("CreateOrGet (repeat): %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("CreateOrGet should return the same row on repeat calls, got %d and %d", first.ID, second.ID)
	}

	count, err := ps.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("Count = %d, want 1", count)
	}
}

func TestPackageGetByNameNotFound(t *testing.T) {
	db := newTestDB(t)
	ps := NewPackageStore(db)
	if _, err := ps.GetByName("does-not-exist"); err != ErrNotFound {
		t.Fatalf("GetByName error = %v, want ErrNotFound", err)
	}
}

func TestOwnerGrantAndCanWrite(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	packages := NewPackageStore(db)
	owners := NewOwnerStore(db)

	user, err := users.Create("alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	if _, err := packages.CreateOrGet("example", nil); err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}

	has, err := owners.HasAny("example")
	if err != nil {
		t.Fatalf("HasAny: %v", err)
	}
	if has {
		t.Fatal("HasAny should be false before any owner is granted")
	}

	if err := owners.Grant("example", user.ID, models.PermissionAdmin); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	owner, err := owners.Get("example", user.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !CanWrite(owner) {
		t.Fatal("admin permission level should grant write access")
	}
}

func TestOwnerReadOnlyCannotWrite(t *testing.T) {
	owner := &models.PackageOwner{PermissionLevel: models.PermissionRead}
	if CanWrite(owner) {
		t.Fatal("read-only permission level should not grant write access")
	}
}

func TestFileCreateStartsAccessCountAtOne(t *testing.T) {
	db := newTestDB(t)
	packages := NewPackageStore(db)
	versions := NewVersionStore(db)
	files := NewFileStore(db)

	pkg, err := packages.CreateOrGet("example", nil)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	v, err := versions.Create(NewVersion{PackageID: pkg.ID, Version: "1.0.0"})
	if err != nil {
		t.Fatalf("Create version: %v", err)
	}

	pf, err := files.Create(v.ID, "example-1.0.0.tgz", 5, nil, nil, "https://upstream/example-1.0.0.tgz", "/tmp/example-1.0.0.tgz")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pf.AccessCount != 1 {
		t.Fatalf("AccessCount = %d, want 1 (the store itself counts as the first access)", pf.AccessCount)
	}

	if err := files.TouchAccess(pf.ID); err != nil {
		t.Fatalf("TouchAccess: %v", err)
	}
	got, err := files.Get(v.ID, "example-1.0.0.tgz")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AccessCount != 2 {
		t.Fatalf("AccessCount after one touch = %d, want 2", got.AccessCount)
	}
}

func TestOrganizationCreateWithOwnerAddsMember(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStore(db)
	orgs := NewOrganizationStore(db)

	user, err := users.Create("bob", "bob@example.com", "hash")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	org, err := orgs.CreateWithOwner("myorg", user.ID)
	if err != nil {
		t.Fatalf("CreateWithOwner: %v", err)
	}

	isMember, err := orgs.IsMember(org.ID, user.ID)
	if err != nil {
		t.Fatalf("IsMember: %v", err)
	}
	if !isMember {
		t.Fatal("the creating user should be a member of the new organization")
	}
}
