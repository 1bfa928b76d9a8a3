package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gulguleee/instamark/internal/pkg/response"
	"github.com/gulguleee/instamark/internal/service"
)

// IndexHandler exposes the vector index maintenance operations.
type IndexHandler struct {
	svc *service.BookmarkService
}

func NewIndexHandler(svc *service.BookmarkService) *IndexHandler {
	return &IndexHandler{svc: svc}
}

func (h *IndexHandler) Health(c *gin.Context) {
	response.Success(c, h.svc.IndexHealth())
}

func (h *IndexHandler) Rebuild(c *gin.Context) {
	count, err := h.svc.RebuildIndex(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"indexed": count})
}

func (h *IndexHandler) Sync(c *gin.Context) {
	count, err := h.svc.SyncIndex(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"indexed": count})
}
