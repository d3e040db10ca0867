package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWriteCreatesFileAndDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "blob.bin")

	n, err := atomicWrite(target, strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("atomicWrite: %v", err)
	}
	if n != int64(len("hello world")) {
		t.Fatalf("wrote %d bytes, want %d", n, len("hello world"))
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content = %q, want %q", got, "hello world")
	}
}

func TestAtomicWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "blob.bin")

	if _, err := atomicWrite(target, strings.NewReader("data")); err != nil {
		t.Fatalf("atomicWrite: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "blob.bin" {
		t.Fatalf("directory entries = %v, want exactly [blob.bin]", entries)
	}
}

func TestAtomicWriteOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "blob.bin")

	if _, err := atomicWrite(target, strings.NewReader("first")); err != nil {
		t.Fatalf("atomicWrite: %v", err)
	}
	if _, err := atomicWrite(target, strings.NewReader("second-longer-value")); err != nil {
		t.Fatalf("atomicWrite: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "second-longer-value" {
		t.Fatalf("content = %q, want %q", got, "second-longer-value")
	}
}
