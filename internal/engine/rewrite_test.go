package engine

import "testing"

func TestRewriteTarballURLsLocalFilenameMarker(t *testing.T) {
	doc := map[string]interface{}{
		"versions": map[string]interface{}{
			"1.0.0": map[string]interface{}{
				"dist": map[string]interface{}{
					"_filename": "example-1.0.0.tgz",
				},
			},
		},
	}

	e := &Engine{}
	e.rewriteTarballURLs(doc, "example", "registry.internal", "https")

	dist := doc["versions"].(map[string]interface{})["1.0.0"].(map[string]interface{})["dist"].(map[string]interface{})
	want := "https://registry.internal/registry/example/-/example-1.0.0.tgz"
	if got := dist["tarball"]; got != want {
		t.Fatalf("tarball = %v, want %v", got, want)
	}
	if _, ok := dist["_filename"]; ok {
		t.Fatal("_filename marker should be removed after rewriting")
	}
}

func TestRewriteTarballURLsUpstreamURL(t *testing.T) {
	doc := map[string]interface{}{
		"versions": map[string]interface{}{
			"2.1.0": map[string]interface{}{
				"dist": map[string]interface{}{
					"tarball": "https://registry.npmjs.org/example/-/example-2.1.0.tgz",
				},
			},
		},
	}

	e := &Engine{}
	e.rewriteTarballURLs(doc, "example", "registry.internal", "http")

	dist := doc["versions"].(map[string]interface{})["2.1.0"].(map[string]interface{})["dist"].(map[string]interface{})
	want := "http://registry.internal/registry/example/-/example-2.1.0.tgz"
	if got := dist["tarball"]; got != want {
		t.Fatalf("tarball = %v, want %v", got, want)
	}
}

func TestFilenameFromURL(t *testing.T) {
	cases := map[string]string{
		"https://registry.npmjs.org/lodash/-/lodash-4.17.21.tgz": "lodash-4.17.21.tgz",
		"/scoped%2Fpkg/-/pkg-1.0.0.tgz":                           "pkg-1.0.0.tgz",
		"just-a-filename.tgz":                                     "just-a-filename.tgz",
	}
	for url, want := range cases {
		if got := filenameFromURL(url); got != want {
			t.Errorf("filenameFromURL(%q) = %q, want %q", url, got, want)
		}
	}
}
