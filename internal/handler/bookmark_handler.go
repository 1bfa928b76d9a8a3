package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/pkg/errcode"
	"github.com/gulguleee/instamark/internal/pkg/response"
	"github.com/gulguleee/instamark/internal/scraper"
	"github.com/gulguleee/instamark/internal/service"
)

type BookmarkHandler struct {
	svc *service.BookmarkService
}

func NewBookmarkHandler(svc *service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{svc: svc}
}

type ingestRequest struct {
	CollectionID string `json:"collection_id"`
}

type batchResult struct {
	Success int `json:"success"`
	Fail    int `json:"fail"`
}

// Ingest scrapes the saved feed and runs the pipeline over it.
func (h *BookmarkHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	success, fail, err := h.svc.IngestSaved(c.Request.Context(), req.CollectionID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, batchResult{Success: success, Fail: fail})
}

type addBookmarkItem struct {
	CollectionID string   `json:"collection_id"`
	FeedID       string   `json:"feed_id"`
	MediaType    string   `json:"media_type"`
	Caption      string   `json:"caption"`
	MediaURL     string   `json:"media_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	URL          string   `json:"url"`
	Hashtags     []string `json:"hashtags"`
}

type addBookmarksRequest struct {
	Items []addBookmarkItem `json:"items"`
}

// AddBatch stores manually supplied posts. Hashtags left empty are
// extracted from the caption.
func (h *BookmarkHandler) AddBatch(c *gin.Context) {
	var req addBookmarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if len(req.Items) == 0 {
		response.Error(c, errcode.ErrInvalid, "items required")
		return
	}
	items := make([]model.Bookmark, 0, len(req.Items))
	for _, item := range req.Items {
		tags := item.Hashtags
		if len(tags) == 0 {
			tags = scraper.ExtractHashtags(item.Caption)
		}
		items = append(items, model.Bookmark{
			CollectionID: item.CollectionID,
			FeedID:       item.FeedID,
			MediaType:    item.MediaType,
			Caption:      item.Caption,
			MediaURL:     item.MediaURL,
			ThumbnailURL: item.ThumbnailURL,
			URL:          item.URL,
			Hashtags:     tags,
		})
	}
	success, fail := h.svc.AddBookmarks(c.Request.Context(), items)
	response.Success(c, batchResult{Success: success, Fail: fail})
}

func (h *BookmarkHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.svc.List(c.Request.Context(), c.Query("collection_id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *BookmarkHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("feed_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"item":           item,
		"category_stale": item.CategoryStale(),
	})
}

func (h *BookmarkHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("feed_id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *BookmarkHandler) Collections(c *gin.Context) {
	items, err := h.svc.ListCollections(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

// ClassifyPending classifies stored posts without a category.
func (h *BookmarkHandler) ClassifyPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	count, err := h.svc.ClassifyPending(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"classified": count})
}
