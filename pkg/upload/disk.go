package upload

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore stores uploads on the local filesystem. Files are served by
// the application under baseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the directory if needed.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the storage directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Put writes r to dir/key. A partially written file is removed on error.
func (s *DiskStore) Put(_ context.Context, key, _ string, _ int64, r io.Reader) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return joinURL(s.baseURL, key), nil
}

// Delete removes dir/key. Deleting a missing file is not an error.
func (s *DiskStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
