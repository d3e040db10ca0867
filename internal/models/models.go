// Package models holds the relational shapes shared by internal/store and
// the handlers in internal/api. Struct tags follow the sqlx convention used
// throughout internal/store: db for columns, json for API responses.
package models

import "time"

// TokenType distinguishes a login session token from a long-lived publish
// token; both rows live in the same table.
type TokenType string

const (
	TokenTypeAuth    TokenType = "auth"
	TokenTypePublish TokenType = "publish"
)

// PermissionLevel is the access a PackageOwner row grants a user.
type PermissionLevel string

const (
	PermissionRead  PermissionLevel = "read"
	PermissionWrite PermissionLevel = "write"
	PermissionAdmin PermissionLevel = "admin"
)

// OrgRole is a user's standing within an Organization.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Token struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	TokenType TokenType  `db:"token_type" json:"token_type"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type Organization struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DisplayName *string   `db:"display_name" json:"display_name,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type OrganizationMember struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	Role           OrgRole   `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type Package struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	AuthorID        *int64    `db:"author_id" json:"author_id,omitempty"`
	Homepage        *string   `db:"homepage" json:"homepage,omitempty"`
	RepositoryURL   *string   `db:"repository_url" json:"repository_url,omitempty"`
	License         *string   `db:"license" json:"license,omitempty"`
	Keywords        *string   `db:"keywords" json:"keywords,omitempty"`
	OrganizationID  *int64    `db:"organization_id" json:"organization_id,omitempty"`
	IsPrivate       bool      `db:"is_private" json:"is_private"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type PackageVersion struct {
	ID               int64     `db:"id" json:"id"`
	PackageID        int64     `db:"package_id" json:"package_id"`
	Version          string    `db:"version" json:"version"`
	Description      *string   `db:"description" json:"description,omitempty"`
	MainFile         *string   `db:"main_file" json:"main_file,omitempty"`
	Scripts          *string   `db:"scripts" json:"scripts,omitempty"`
	Dependencies     *string   `db:"dependencies" json:"dependencies,omitempty"`
	DevDependencies  *string   `db:"dev_dependencies" json:"dev_dependencies,omitempty"`
	PeerDependencies *string   `db:"peer_dependencies" json:"peer_dependencies,omitempty"`
	Engines          *string   `db:"engines" json:"engines,omitempty"`
	Shasum           *string   `db:"shasum" json:"shasum,omitempty"`
	Readme           *string   `db:"readme" json:"readme,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

type PackageFile struct {
	ID               int64     `db:"id" json:"id"`
	PackageVersionID int64     `db:"package_version_id" json:"package_version_id"`
	Filename         string    `db:"filename" json:"filename"`
	SizeBytes        int64     `db:"size_bytes" json:"size_bytes"`
	ContentType      *string   `db:"content_type" json:"content_type,omitempty"`
	Etag             *string   `db:"etag" json:"etag,omitempty"`
	UpstreamURL      string    `db:"upstream_url" json:"upstream_url"`
	FilePath         string    `db:"file_path" json:"file_path"`
	Quarantined      bool      `db:"quarantined" json:"quarantined"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	LastAccessed     time.Time `db:"last_accessed" json:"last_accessed"`
	AccessCount      int64     `db:"access_count" json:"access_count"`
}

type PackageOwner struct {
	ID              int64           `db:"id" json:"id"`
	PackageName     string          `db:"package_name" json:"package_name"`
	UserID          int64           `db:"user_id" json:"user_id"`
	PermissionLevel PermissionLevel `db:"permission_level" json:"permission_level"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

type PackageTag struct {
	ID          int64     `db:"id" json:"id"`
	PackageName string    `db:"package_name" json:"package_name"`
	TagName     string    `db:"tag_name" json:"tag_name"`
	Version     string    `db:"version" json:"version"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type MetadataCache struct {
	ID           int64     `db:"id" json:"id"`
	PackageName  string    `db:"package_name" json:"package_name"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	FilePath     string    `db:"file_path" json:"file_path"`
	Etag         *string   `db:"etag" json:"etag,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
	LastAccessed time.Time `db:"last_accessed" json:"last_accessed"`
	AccessCount  int64     `db:"access_count" json:"access_count"`
}

type CacheStats struct {
	ID        int64 `db:"id" json:"id"`
	HitCount  int64 `db:"hit_count" json:"hit_count"`
	MissCount int64 `db:"miss_count" json:"miss_count"`
}
