package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gulguleee/instamark/internal/pkg/errcode"
	"github.com/gulguleee/instamark/internal/pkg/response"
	"github.com/gulguleee/instamark/internal/service"
)

type CategoryHandler struct {
	vocab     *service.VocabularyService
	bookmarks *service.BookmarkService
}

func NewCategoryHandler(vocab *service.VocabularyService, bookmarks *service.BookmarkService) *CategoryHandler {
	return &CategoryHandler{vocab: vocab, bookmarks: bookmarks}
}

func (h *CategoryHandler) List(c *gin.Context) {
	items, err := h.vocab.ListAll(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Name == "" {
		response.Error(c, errcode.ErrInvalid, "name required")
		return
	}
	h.vocab.Merge(c.Request.Context(), []string{req.Name})
	response.Success(c, gin.H{"ok": true})
}

// Bookmarks lists the posts filed under a category, newest first.
func (h *CategoryHandler) Bookmarks(c *gin.Context) {
	items, err := h.bookmarks.ListByCategory(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}
