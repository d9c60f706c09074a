package storage

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sociopedia/sociopedia/server/internal/config"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	for in, want := range map[string]string{
		"ann.jpg":            "ann.jpg",
		"../../etc/ann.jpg":  "ann.jpg",
		`C:\photos\ann.jpg`:  "ann.jpg",
		"dir/sub/avatar.png": "avatar.png",
	} {
		got, err := Key(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", ".", "..", "/"} {
		_, err := Key(bad)
		require.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestDiskStore_PutOpenOverwrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets")
	s, err := NewDiskStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "ann.jpg", bytes.NewReader([]byte("one")), 3, "image/jpeg"))
	require.NoError(t, s.Put(ctx, "ann.jpg", bytes.NewReader([]byte("two")), 3, "image/jpeg"))

	rc, err := s.Open(ctx, "ann.jpg")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "two", string(b))

	_, err = s.Open(ctx, "missing.jpg")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveUpload_PreservesName(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("picture", "../me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	_, fh, err := req.FormFile("picture")
	require.NoError(t, err)

	dir := t.TempDir()
	s, err := NewDiskStore(dir)
	require.NoError(t, err)
	key, err := SaveUpload(context.Background(), s, fh)
	require.NoError(t, err)
	require.Equal(t, "me.png", key)

	b, err := os.ReadFile(filepath.Join(dir, "me.png"))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(b))
}

func TestNewMinIOStore_MissingConfig(t *testing.T) {
	_, err := NewMinIOStore(context.Background(), nil)
	require.Error(t, err)
	_, err = NewMinIOStore(context.Background(), &MinIOConfig{})
	require.Error(t, err)
}

func TestMinIOConfigFrom(t *testing.T) {
	cfg := MinIOConfigFrom(config.UploadsConfig{Backend: "minio", MinIOEndpoint: "minio:9000", MinIOUseSSL: true})
	require.Equal(t, "minio:9000", cfg.Endpoint)
	require.True(t, cfg.UseSSL)
	require.Equal(t, "sociopedia-assets", cfg.Bucket)

	cfg = MinIOConfigFrom(config.UploadsConfig{MinIOBucket: "pics"})
	require.Equal(t, "pics", cfg.Bucket)
	_, err := NewMinIOStore(context.Background(), cfg)
	require.Error(t, err)
}
