package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore writes uploads into a local directory that is also served as /assets.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

func (d *DiskStore) Dir() string { return d.dir }

func (d *DiskStore) Backend() string { return "disk" }

func (d *DiskStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := Key(key)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(d.dir, key))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := Key(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}
