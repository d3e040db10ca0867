package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/npmregistry/registryd/internal/apierr"
	"github.com/npmregistry/registryd/internal/models"
	"github.com/npmregistry/registryd/internal/store"
)

// GetTarball serves a tarball blob, preferring the local cache and falling
// back to a locked upstream fetch that populates it for next time.
func (e *Engine) GetTarball(ctx context.Context, name, filename string) (io.ReadSeekCloser, *models.PackageFile, error) {
	version := versionFromFilename(name, filename)

	// The lookup runs under the per-key lock, so a concurrent fetch of this
	// exact (name, filename) has finished (and its rows are visible) before
	// we look, and each call counts exactly one hit or one miss.
	release := e.TarballCache.Lock(name, filename)
	defer release()

	pkg, pkgErr := e.Packages.GetByName(name)
	lookedUp := false
	if pkgErr == nil {
		if v, verr := e.Versions.Get(pkg.ID, version); verr == nil {
			lookedUp = true
			if rc, pf, lerr := e.TarballCache.Lookup(v.ID, name, filename); lerr == nil {
				return rc, pf, nil
			}
		}
	}

	// No Package or PackageVersion row exists yet, so Lookup was never
	// reached; this cold path still counts as a miss.
	if !lookedUp {
		e.TarballCache.RecordMiss()
	}

	resp, err := e.Upstream.GetTarball(ctx, name, filename)
	if err != nil {
		return nil, nil, apierr.Upstream(err.Error())
	}
	defer resp.Body.Close()

	switch resp.Status {
	case 404:
		return nil, nil, apierr.NotFound(fmt.Sprintf("tarball %q not found", filename))
	case 200:
		// fallthrough to store below
	default:
		return nil, nil, apierr.Upstream(fmt.Sprintf("upstream returned %d", resp.Status))
	}

	if pkgErr != nil {
		pkg, err = e.Packages.CreateOrGet(name, nil)
		if err != nil {
			return nil, nil, apierr.Storage("create package", err)
		}
	}
	v, err := e.Versions.CreateOrGet(store.NewVersion{PackageID: pkg.ID, Version: version})
	if err != nil {
		return nil, nil, apierr.Storage("create package version", err)
	}

	var etagPtr *string
	if resp.Etag != "" {
		etag := resp.Etag
		etagPtr = &etag
	}
	upstreamURL := fmt.Sprintf("%s/%s/-/%s", e.UpstreamBase, name, filename)
	pf, err := e.TarballCache.Store(v.ID, name, filename, resp.Body, upstreamURL, nil, etagPtr)
	if err != nil {
		return nil, nil, apierr.Storage("store tarball", err)
	}
	f, err := os.Open(pf.FilePath)
	if err != nil {
		return nil, nil, apierr.Storage("open cached tarball", err)
	}
	return f, pf, nil
}

// versionFromFilename inverts tarballFilename: "pkg-1.2.3.tgz" -> "1.2.3".
func versionFromFilename(name, filename string) string {
	base := name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			base = name[i+1:]
			break
		}
	}
	trimmed := strings.TrimSuffix(filename, ".tgz")
	prefix := base + "-"
	if strings.HasPrefix(trimmed, prefix) {
		return trimmed[len(prefix):]
	}
	return trimmed
}
