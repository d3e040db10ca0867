package publish

import (
	"regexp"
	"strings"

	"github.com/npmregistry/registryd/internal/apierr"
)

var nameSegmentRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidatePackageName enforces npm's package-name rules: optional
// @scope/name form, all-lowercase, URL-safe characters, and a 214
// character ceiling across the whole name including the scope.
func ValidatePackageName(name string) error {
	if name == "" {
		return apierr.Validation("package name is required")
	}
	if len(name) > 214 {
		return apierr.Validation("package name must not exceed 214 characters")
	}
	if name != strings.ToLower(name) {
		return apierr.Validation("package name must be lowercase")
	}
	if strings.ContainsAny(name, " ~'!()*") {
		return apierr.Validation("package name contains disallowed characters")
	}

	if strings.HasPrefix(name, "@") {
		parts := strings.SplitN(name[1:], "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return apierr.Validation("scoped package name must be @scope/name")
		}
		if !nameSegmentRe.MatchString(parts[0]) || !nameSegmentRe.MatchString(parts[1]) {
			return apierr.Validation("scope and name segments must start with a letter or digit")
		}
		return nil
	}

	if !nameSegmentRe.MatchString(name) {
		return apierr.Validation("package name must start with a letter or digit")
	}
	return nil
}

// ScopeOf returns the @scope portion of a scoped name (without the '@'),
// or "" if name is unscoped.
func ScopeOf(name string) string {
	if !strings.HasPrefix(name, "@") {
		return ""
	}
	parts := strings.SplitN(name[1:], "/", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[0]
}

// tarballFilename mirrors internal/engine's scope-stripped naming
// ("@scope/pkg" -> "pkg-1.0.0.tgz") so a published tarball lands under the
// same filename every later read path derives.
func tarballFilename(name, version string) string {
	base := name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		base = name[i+1:]
	}
	return base + "-" + version + ".tgz"
}
