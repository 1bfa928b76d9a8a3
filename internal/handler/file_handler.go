package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gulguleee/instamark/internal/filestore"
	"github.com/gulguleee/instamark/internal/pkg/errcode"
	"github.com/gulguleee/instamark/internal/pkg/response"
)

// FileHandler serves stored thumbnail snapshots.
type FileHandler struct {
	store filestore.Store
}

func NewFileHandler(store filestore.Store) *FileHandler {
	return &FileHandler{store: store}
}

func (h *FileHandler) Get(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		response.Error(c, errcode.ErrInvalid, "key required")
		return
	}
	reader, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		response.Error(c, errcode.ErrNotFound, "not found")
		return
	}
	defer reader.Close()
	c.Header("Content-Type", "image/jpeg")
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, reader)
}
