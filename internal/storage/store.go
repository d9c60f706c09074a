package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/sociopedia/sociopedia/server/pkg/metrics"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("asset not found")
)

// Store keeps uploaded pictures under flat keys. Writing an existing key
// replaces it.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Backend() string
}

// Key reduces a client supplied file name to the key it is stored under:
// the base name, as submitted.
func Key(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// SaveUpload stores a multipart file and returns its key.
func SaveUpload(ctx context.Context, s Store, fh *multipart.FileHeader) (string, error) {
	key, err := Key(fh.Filename)
	if err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	if err := s.Put(ctx, key, f, fh.Size, fh.Header.Get("Content-Type")); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	metrics.Uploads.WithLabelValues(s.Backend()).Inc()
	return key, nil
}
