// Package engine fuses locally published PackageVersion rows with the
// cached or freshly-fetched upstream npm document into one canonical
// metadata document, with every tarball URL rewritten to point at this
// server instead of upstream.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"

	"github.com/npmregistry/registryd/internal/apierr"
	"github.com/npmregistry/registryd/internal/cache"
	"github.com/npmregistry/registryd/internal/models"
	"github.com/npmregistry/registryd/internal/store"
	"github.com/npmregistry/registryd/internal/upstream"
)

type Engine struct {
	Packages      *store.PackageStore
	Versions      *store.VersionStore
	Files         *store.FileStore
	Tags          *store.TagStore
	MetadataCache *cache.MetadataCache
	TarballCache  *cache.TarballCache
	Upstream      *upstream.Client
	UpstreamBase  string
	Log           *logrus.Logger
}

// GetPackageDocument builds the merged metadata document for name.
// requestHost and scheme come from the inbound request so tarball URLs are
// rewritten consistently whichever hostname the registry was reached by.
func (e *Engine) GetPackageDocument(ctx context.Context, name, requestHost, scheme string) (map[string]interface{}, error) {
	pkg, err := e.Packages.GetByName(name)
	if err != nil && err != store.ErrNotFound {
		return nil, apierr.Storage("look up package", err)
	}

	if pkg != nil && pkg.IsPrivate {
		return e.localOnlyDocument(pkg, name, requestHost, scheme)
	}

	doc, err := e.upstreamDocument(ctx, name)
	if err != nil {
		if _, ok := apierr.As(err); ok {
			return nil, err
		}
		return nil, apierr.Upstream(err.Error())
	}

	if doc == nil {
		localCount, lerr := e.localVersionCount(pkg)
		if lerr != nil {
			return nil, lerr
		}
		if localCount == 0 {
			return nil, apierr.NotFound(fmt.Sprintf("package %q not found", name))
		}
		doc = emptyDocument(name)
	}

	if err := e.absorbUpstreamPackageMetadata(name, doc); err != nil {
		e.warn("absorb_upstream_metadata", name, err)
	}

	if err := e.mergeLocalVersions(pkg, name, doc); err != nil {
		return nil, err
	}

	e.rewriteTarballURLs(doc, name, requestHost, scheme)
	return doc, nil
}

// GetVersionManifest derives a single version's manifest from the merged
// document; it is never cached separately so that `latest` and dependency
// data can't diverge from the full document.
func (e *Engine) GetVersionManifest(ctx context.Context, name, version, requestHost, scheme string) (map[string]interface{}, error) {
	doc, err := e.GetPackageDocument(ctx, name, requestHost, scheme)
	if err != nil {
		return nil, err
	}
	versions, _ := doc["versions"].(map[string]interface{})
	manifest, ok := versions[version].(map[string]interface{})
	if !ok {
		return nil, apierr.NotFound(fmt.Sprintf("version %q of %q not found", version, name))
	}
	return manifest, nil
}

func emptyDocument(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":      name,
		"dist-tags": map[string]interface{}{},
		"versions":  map[string]interface{}{},
		"time":      map[string]interface{}{},
	}
}

func (e *Engine) localVersionCount(pkg *models.Package) (int, error) {
	if pkg == nil {
		return 0, nil
	}
	versions, err := e.Versions.ListByPackage(pkg.ID)
	if err != nil {
		return 0, apierr.Storage("list local versions", err)
	}
	return len(versions), nil
}

// localOnlyDocument builds a document purely from local rows for a private
// package; upstream is never consulted.
func (e *Engine) localOnlyDocument(pkg *models.Package, name, requestHost, scheme string) (map[string]interface{}, error) {
	doc := emptyDocument(name)
	if pkg.Description != nil {
		doc["description"] = *pkg.Description
	}
	if err := e.mergeLocalVersions(pkg, name, doc); err != nil {
		return nil, err
	}
	e.rewriteTarballURLs(doc, name, requestHost, scheme)
	return doc, nil
}

// upstreamDocument consults the metadata cache, falling back to a
// conditional upstream fetch, and returns nil (not an error) when upstream
// answers 404 for the package, whether or not a copy is cached. On an unreachable
// upstream it degrades to serving whatever is cached, however stale.
func (e *Engine) upstreamDocument(ctx context.Context, name string) (map[string]interface{}, error) {
	if doc, ok := e.tryFreshCache(name); ok {
		return doc, nil
	}

	release := e.MetadataCache.Lock(name)
	defer release()

	// Re-check: another goroutine may have refreshed it while we waited.
	if doc, ok := e.tryFreshCache(name); ok {
		return doc, nil
	}

	entry, cacheErr := e.MetadataCache.Get(name)
	etag := ""
	if cacheErr == nil && entry.Row.Etag != nil {
		etag = *entry.Row.Etag
	}

	resp, err := e.Upstream.GetMetadata(ctx, name, etag)
	if err != nil {
		if cacheErr == nil {
			e.warn("upstream_unreachable_degraded", name, err)
			if doc, perr := parseDocument(entry.Bytes); perr == nil {
				return doc, nil
			}
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.Status {
	case 304:
		_ = e.MetadataCache.TouchFresh(name)
		return parseDocument(entry.Bytes)
	case 404:
		return nil, nil
	case 200:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, apierr.Storage("read upstream body", err)
		}
		var etagPtr *string
		if resp.Etag != "" {
			etagPtr = &resp.Etag
		}
		if err := e.MetadataCache.Put(name, body, etagPtr); err != nil {
			e.warn("metadata_cache_write_failed", name, err)
		}
		return parseDocument(body)
	default:
		if cacheErr == nil {
			e.warn("upstream_error_degraded", name, fmt.Errorf("status %d", resp.Status))
			if doc, perr := parseDocument(entry.Bytes); perr == nil {
				return doc, nil
			}
		}
		return nil, apierr.Upstream(fmt.Sprintf("upstream returned %d", resp.Status))
	}
}

func (e *Engine) tryFreshCache(name string) (map[string]interface{}, bool) {
	entry, err := e.MetadataCache.Get(name)
	if err != nil || !entry.Fresh {
		return nil, false
	}
	_ = e.MetadataCache.TouchFresh(name)
	doc, err := parseDocument(entry.Bytes)
	if err != nil {
		return nil, false
	}
	return doc, true
}

func parseDocument(body []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apierr.Storage("parse metadata document", err)
	}
	return doc, nil
}

// absorbUpstreamPackageMetadata copies package-level fields (homepage,
// repository, license, keywords) from the upstream document onto the
// Package row, creating it if this is the first time this name has been
// observed by the proxy.
func (e *Engine) absorbUpstreamPackageMetadata(name string, doc map[string]interface{}) error {
	var description *string
	if d, ok := doc["description"].(string); ok {
		description = &d
	}
	pkg, err := e.Packages.CreateOrGet(name, description)
	if err != nil {
		return apierr.Storage("create or get package", err)
	}

	homepage := stringField(doc, "homepage")
	repositoryURL := repositoryURLFromField(doc["repository"])
	license := stringField(doc, "license")
	keywords := keywordsFromField(doc["keywords"])

	if homepage == nil && repositoryURL == nil && license == nil && keywords == nil {
		return nil
	}
	return e.Packages.UpdateMetadata(pkg.ID, homepage, repositoryURL, license, keywords)
}

// mergeLocalVersions inserts/overrides entries in doc["versions"] with
// every local PackageVersion, then recomputes dist-tags.latest as the max
// semver across the union, local versions winning ties. Any other tag
// already in doc["dist-tags"] (upstream's) is kept unless a local tag of
// the same name overrides it.
func (e *Engine) mergeLocalVersions(pkg *models.Package, name string, doc map[string]interface{}) error {
	versions, _ := doc["versions"].(map[string]interface{})
	if versions == nil {
		versions = map[string]interface{}{}
		doc["versions"] = versions
	}
	times, _ := doc["time"].(map[string]interface{})
	if times == nil {
		times = map[string]interface{}{}
		doc["time"] = times
	}

	localVersionSet := map[string]bool{}
	if pkg != nil {
		localVersions, err := e.Versions.ListByPackage(pkg.ID)
		if err != nil {
			return apierr.Storage("list local versions", err)
		}
		for i := range localVersions {
			v := &localVersions[i]
			manifest, err := e.versionManifest(name, v)
			if err != nil {
				return err
			}
			versions[v.Version] = manifest
			times[v.Version] = v.CreatedAt.UTC().Format(time.RFC3339)
			localVersionSet[v.Version] = true
		}
	}

	tags := e.computeDistTags(name, versions, localVersionSet)
	if upstreamTags, ok := doc["dist-tags"].(map[string]interface{}); ok {
		for tag, v := range upstreamTags {
			if _, exists := tags[tag]; !exists {
				tags[tag] = v
			}
		}
	}
	doc["dist-tags"] = tags
	return nil
}

// computeDistTags recomputes "latest" as the max semver over every version
// present, local versions winning ties, then merges in explicit local
// PackageTag rows (dist-tags beyond "latest").
func (e *Engine) computeDistTags(name string, versions map[string]interface{}, localVersionSet map[string]bool) map[string]interface{} {
	tags := map[string]interface{}{}

	type candidate struct {
		raw   string
		ver   *semver.Version
		local bool
	}
	var candidates []candidate
	for raw := range versions {
		sv, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{raw: raw, ver: sv, local: localVersionSet[raw]})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if cmp := candidates[i].ver.Compare(candidates[j].ver); cmp != 0 {
			return cmp > 0
		}
		return candidates[i].local && !candidates[j].local
	})
	if len(candidates) > 0 {
		tags["latest"] = candidates[0].raw
	}

	if rows, err := e.Tags.ListByPackage(name); err == nil {
		for _, t := range rows {
			tags[t.TagName] = t.Version
		}
	}
	return tags
}

// versionManifest reconstructs a full package.json-shaped manifest from a
// locally stored PackageVersion row, attaching the tarball it has on disk
// if one was recorded for it.
func (e *Engine) versionManifest(name string, v *models.PackageVersion) (map[string]interface{}, error) {
	m := map[string]interface{}{"name": name, "version": v.Version}
	if v.Description != nil {
		m["description"] = *v.Description
	}
	if v.MainFile != nil {
		m["main"] = *v.MainFile
	}

	fields := []struct {
		key string
		raw *string
	}{
		{"scripts", v.Scripts},
		{"dependencies", v.Dependencies},
		{"devDependencies", v.DevDependencies},
		{"peerDependencies", v.PeerDependencies},
		{"engines", v.Engines},
	}
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		var val interface{}
		if err := json.Unmarshal([]byte(*f.raw), &val); err == nil {
			m[f.key] = val
		}
	}

	dist := map[string]interface{}{}
	if v.Shasum != nil {
		dist["shasum"] = *v.Shasum
	}
	filename := tarballFilename(name, v.Version)
	if file, err := e.Files.Get(v.ID, filename); err == nil {
		dist["tarball"] = localTarballPlaceholder
		dist["_filename"] = file.Filename
	}
	m["dist"] = dist
	return m, nil
}

// localTarballPlaceholder marks a dist.tarball value that rewriteTarballURLs
// must fill in with the request's own host; it never reaches a client.
const localTarballPlaceholder = ""

func tarballFilename(name, version string) string {
	base := name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			base = name[i+1:]
			break
		}
	}
	return fmt.Sprintf("%s-%s.tgz", base, version)
}

func (e *Engine) warn(action, name string, err error) {
	if e.Log == nil {
		return
	}
	e.Log.WithFields(logrus.Fields{"action": action, "package": name}).Warn(err.Error())
}
