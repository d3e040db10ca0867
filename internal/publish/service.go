// Package publish implements the publish pipeline: envelope validation,
// ownership and scope checks, tarball integrity verification, and the
// transactional-as-possible writes that land a new version.
package publish

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/npmregistry/registryd/internal/apierr"
	"github.com/npmregistry/registryd/internal/cache"
	"github.com/npmregistry/registryd/internal/models"
	"github.com/npmregistry/registryd/internal/store"
)

type Service struct {
	Packages      *store.PackageStore
	Versions      *store.VersionStore
	Owners        *store.OwnerStore
	Orgs          *store.OrganizationStore
	Tags          *store.TagStore
	TarballCache  *cache.TarballCache
	MetadataCache *cache.MetadataCache
}

type Result struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// Publish runs the full pipeline for one npm publish request body,
// authenticated as userID.
func (s *Service) Publish(body []byte, userID int64) (*Result, error) {
	env, err := ParseEnvelope(body)
	if err != nil {
		return nil, err
	}
	if err := ValidatePackageName(env.Name); err != nil {
		return nil, err
	}

	version, manifest, err := env.SingleVersion()
	if err != nil {
		return nil, err
	}
	_, attachment, err := env.SingleAttachment()
	if err != nil {
		return nil, err
	}

	raw, shasum, err := decodeAndVerify(attachment, manifest)
	if err != nil {
		return nil, err
	}

	pkg, err := s.resolvePackageForWrite(env.Name, userID)
	if err != nil {
		return nil, err
	}

	exists, err := s.Versions.Exists(pkg.ID, version)
	if err != nil {
		return nil, apierr.Storage("check existing version", err)
	}
	if exists {
		return nil, apierr.Conflict(fmt.Sprintf("version %s of %s already published", version, env.Name))
	}

	var readme *string
	if env.Readme != "" {
		readme = &env.Readme
	}
	v, err := s.createVersionRow(pkg.ID, version, manifest, shasum, readme)
	if err != nil {
		return nil, err
	}

	// _attachments keys carry the scope (e.g. "@acme/util-1.0.0.tgz"), but
	// every read path (tarball GET, dist.tarball lookup) derives the
	// scope-stripped filename, so store under that name, not the envelope's.
	storedFilename := tarballFilename(env.Name, version)

	release := s.TarballCache.Lock(env.Name, storedFilename)
	defer release()

	if _, err := s.TarballCache.Store(v.ID, env.Name, storedFilename, bytes.NewReader(raw), "", attachmentContentType(attachment), nil); err != nil {
		_ = s.Versions.Delete(v.ID)
		return nil, apierr.Storage("write tarball", err)
	}

	for tag, tagVersion := range env.DistTags {
		if tag == "latest" {
			continue
		}
		if err := s.Tags.Set(env.Name, tag, tagVersion); err != nil {
			return nil, apierr.Storage("set dist-tag", err)
		}
	}

	if err := s.MetadataCache.Invalidate(env.Name); err != nil {
		// Non-fatal: the next read just recomputes from upstream/local rows.
	}
	_ = s.Packages.TouchUpdatedAt(pkg.ID)

	return &Result{OK: true, ID: env.Name, Rev: fmt.Sprintf("1-%s", shasum[:8])}, nil
}

// resolvePackageForWrite returns the Package row this publish may write
// to. A scope whose Organization doesn't exist yet is auto-provisioned
// with the publisher as its owner; a scope whose Organization already
// exists requires the publisher to already be a member. Package creation
// and write ownership within the scope follow the same first-publish-wins
// rule as the unscoped case.
func (s *Service) resolvePackageForWrite(name string, userID int64) (*models.Package, error) {
	var organizationID *int64
	if scope := ScopeOf(name); scope != "" {
		org, err := s.Orgs.GetByName(scope)
		switch {
		case err == store.ErrNotFound:
			org, err = s.Orgs.CreateWithOwner(scope, userID)
			if err != nil {
				return nil, apierr.Storage("resolve organization scope", err)
			}
		case err != nil:
			return nil, apierr.Storage("resolve organization scope", err)
		default:
			isMember, merr := s.Orgs.IsMember(org.ID, userID)
			if merr != nil {
				return nil, apierr.Storage("check organization membership", merr)
			}
			if !isMember {
				return nil, apierr.Forbidden(fmt.Sprintf("you are not a member of organization %q", scope))
			}
		}
		organizationID = &org.ID
	}

	pkg, err := s.Packages.GetByName(name)
	if err == store.ErrNotFound {
		pkg, err = s.Packages.CreatePublished(name, nil, userID, organizationID)
		if err != nil {
			return nil, apierr.Storage("create package", err)
		}
		if err := s.Owners.Grant(name, userID, models.PermissionAdmin); err != nil {
			return nil, apierr.Storage("grant package ownership", err)
		}
		return pkg, nil
	}
	if err != nil {
		return nil, apierr.Storage("look up package", err)
	}

	owner, err := s.Owners.Get(name, userID)
	if err == store.ErrNotFound || (err == nil && !store.CanWrite(owner)) {
		return nil, apierr.Forbidden("you do not have write access to this package")
	}
	if err != nil {
		return nil, apierr.Storage("check package ownership", err)
	}
	return pkg, nil
}

// decodeAndVerify base64-decodes the attachment, checks its declared
// length, and only then checks its shasum — a malformed length is a
// cheaper, more specific failure than a shasum mismatch.
func decodeAndVerify(attachment *Attachment, manifest map[string]interface{}) ([]byte, string, error) {
	raw, err := base64.StdEncoding.DecodeString(attachment.Data)
	if err != nil {
		return nil, "", apierr.Validation("attachment data is not valid base64")
	}
	if attachment.Length != 0 && int64(len(raw)) != attachment.Length {
		return nil, "", apierr.Validation("attachment length does not match declared size")
	}

	sum := sha1.Sum(raw)
	computed := hex.EncodeToString(sum[:])
	if declared := manifestShasum(manifest); declared != nil && *declared != computed {
		return nil, "", apierr.Validation("tarball shasum does not match the published manifest")
	}
	return raw, computed, nil
}

func (s *Service) createVersionRow(packageID int64, version string, manifest map[string]interface{}, shasum string, readme *string) (*models.PackageVersion, error) {
	scripts, err := manifestJSONBlob(manifest, "scripts")
	if err != nil {
		return nil, err
	}
	dependencies, err := manifestJSONBlob(manifest, "dependencies")
	if err != nil {
		return nil, err
	}
	devDependencies, err := manifestJSONBlob(manifest, "devDependencies")
	if err != nil {
		return nil, err
	}
	peerDependencies, err := manifestJSONBlob(manifest, "peerDependencies")
	if err != nil {
		return nil, err
	}
	engines, err := manifestJSONBlob(manifest, "engines")
	if err != nil {
		return nil, err
	}

	v, err := s.Versions.Create(store.NewVersion{
		PackageID:        packageID,
		Version:          version,
		Description:      manifestString(manifest, "description"),
		MainFile:         manifestString(manifest, "main"),
		Scripts:          scripts,
		Dependencies:     dependencies,
		DevDependencies:  devDependencies,
		PeerDependencies: peerDependencies,
		Engines:          engines,
		Shasum:           &shasum,
		Readme:           readme,
	})
	if err != nil {
		return nil, apierr.Storage("create package version", err)
	}
	return v, nil
}

func attachmentContentType(a *Attachment) *string {
	if a.ContentType == "" {
		return nil
	}
	ct := a.ContentType
	return &ct
}
