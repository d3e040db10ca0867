package api

import (
	"strings"

	"github.com/npmregistry/registryd/internal/apierr"
)

// parsePkgPath splits the wildcard tail of a /registry/* route into a
// package name plus, optionally, a version or a tarball filename. Scoped
// names (@scope/name) carry a literal slash, so this can't be done with a
// plain :param — this is the same shape npm's own registry URLs use.
func parsePkgPath(raw string) (name, version, filename string, err error) {
	raw = strings.TrimPrefix(raw, "/")
	if raw == "" {
		return "", "", "", apierr.Validation("missing package name")
	}

	if idx := strings.Index(raw, "/-/"); idx >= 0 {
		return raw[:idx], "", raw[idx+3:], nil
	}

	segments := strings.Split(raw, "/")
	if strings.HasPrefix(segments[0], "@") {
		if len(segments) < 2 || segments[1] == "" {
			return "", "", "", apierr.Validation("scoped package name requires a name segment")
		}
		name = segments[0] + "/" + segments[1]
		if len(segments) >= 3 {
			version = segments[2]
		}
		return name, version, "", nil
	}

	name = segments[0]
	if len(segments) >= 2 {
		version = segments[1]
	}
	return name, version, "", nil
}
