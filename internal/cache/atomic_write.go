package cache

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// atomicWrite streams body into a temp file beside path, then renames it
// into place. Never truncates in place. Returns the number of bytes
// written. On any failure the temp file is removed and the target path is
// left untouched.
func atomicWrite(path string, body io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+".tmp."+uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}

	written, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, closeErr
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	return written, nil
}
