package api

import "testing"

func TestParsePkgPathUnscoped(t *testing.T) {
	name, version, filename, err := parsePkgPath("/lodash")
	if err != nil {
		t.Fatalf("parsePkgPath: %v", err)
	}
	if name != "lodash" || version != "" || filename != "" {
		t.Fatalf("got (%q,%q,%q)", name, version, filename)
	}
}

func TestParsePkgPathUnscopedWithVersion(t *testing.T) {
	name, version, filename, err := parsePkgPath("/lodash/4.17.21")
	if err != nil {
		t.Fatalf("parsePkgPath: %v", err)
	}
	if name != "lodash" || version != "4.17.21" || filename != "" {
		t.Fatalf("got (%q,%q,%q)", name, version, filename)
	}
}

func TestParsePkgPathScoped(t *testing.T) {
	name, version, filename, err := parsePkgPath("/@myorg/pkg/1.0.0")
	if err != nil {
		t.Fatalf("parsePkgPath: %v", err)
	}
	if name != "@myorg/pkg" || version != "1.0.0" || filename != "" {
		t.Fatalf("got (%q,%q,%q)", name, version, filename)
	}
}

func TestParsePkgPathTarball(t *testing.T) {
	name, version, filename, err := parsePkgPath("/@myorg/pkg/-/pkg-1.0.0.tgz")
	if err != nil {
		t.Fatalf("parsePkgPath: %v", err)
	}
	if name != "@myorg/pkg" || version != "" || filename != "pkg-1.0.0.tgz" {
		t.Fatalf("got (%q,%q,%q)", name, version, filename)
	}
}

func TestParsePkgPathUnscopedTarball(t *testing.T) {
	name, version, filename, err := parsePkgPath("/lodash/-/lodash-4.17.21.tgz")
	if err != nil {
		t.Fatalf("parsePkgPath: %v", err)
	}
	if name != "lodash" || version != "" || filename != "lodash-4.17.21.tgz" {
		t.Fatalf("got (%q,%q,%q)", name, version, filename)
	}
}

func TestParsePkgPathEmpty(t *testing.T) {
	if _, _, _, err := parsePkgPath("/"); err == nil {
		t.Fatal("expected error for an empty path")
	}
}

func TestParsePkgPathScopedMissingName(t *testing.T) {
	if _, _, _, err := parsePkgPath("/@myorg"); err == nil {
		t.Fatal("expected error for a scope with no name segment")
	}
}
