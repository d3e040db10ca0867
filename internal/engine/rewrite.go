package engine

import (
	"fmt"
	"net/url"
	"strings"
)

// rewriteTarballURLs walks doc["versions"][*].dist.tarball and replaces
// every URL with one pointing at this registry, so a client never talks
// to upstream directly. Local versions carry a "_filename" marker left by
// versionManifest instead of a real URL.
func (e *Engine) rewriteTarballURLs(doc map[string]interface{}, name, requestHost, scheme string) {
	versions, ok := doc["versions"].(map[string]interface{})
	if !ok {
		return
	}
	base := fmt.Sprintf("%s://%s/registry/%s/-", scheme, requestHost, name)

	for _, raw := range versions {
		manifest, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		dist, ok := manifest["dist"].(map[string]interface{})
		if !ok {
			continue
		}
		if filename, ok := dist["_filename"].(string); ok {
			dist["tarball"] = base + "/" + filename
			delete(dist, "_filename")
			continue
		}
		if upstreamURL, ok := dist["tarball"].(string); ok && upstreamURL != "" {
			dist["tarball"] = base + "/" + filenameFromURL(upstreamURL)
		}
	}
}

func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		idx := strings.LastIndex(rawURL, "/")
		if idx < 0 {
			return rawURL
		}
		return rawURL[idx+1:]
	}
	idx := strings.LastIndex(u.Path, "/")
	if idx < 0 {
		return u.Path
	}
	return u.Path[idx+1:]
}
