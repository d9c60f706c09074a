package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sociopedia/sociopedia/server/internal/storage"
	"github.com/sociopedia/sociopedia/server/pkg/logger"
)

// RegisterAssets serves stored pictures under /assets/<name> from any backend.
func RegisterAssets(r gin.IRouter, st storage.Store) {
	r.GET("/assets/:name", func(c *gin.Context) {
		key, err := storage.Key(c.Param("name"))
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		rc, err := st.Open(c.Request.Context(), key)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				logger.Errorf("open asset %s: %v", key, err)
			}
			c.Status(http.StatusNotFound)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(filepath.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Header("Content-Type", ct)
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, rc)
	})
}
