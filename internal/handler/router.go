package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gulguleee/instamark/internal/middleware"
)

type RouterDeps struct {
	Bookmarks     *BookmarkHandler
	Categories    *CategoryHandler
	Search        *SearchHandler
	Recommend     *RecommendHandler
	Index         *IndexHandler
	Files         *FileHandler
	RateLimitSpan time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/bookmarks", deps.Bookmarks.List)
	api.POST("/bookmarks", deps.Bookmarks.AddBatch)
	api.GET("/bookmarks/:feed_id", deps.Bookmarks.Get)
	api.DELETE("/bookmarks/:feed_id", deps.Bookmarks.Delete)
	api.GET("/collections", deps.Bookmarks.Collections)

	api.GET("/categories", deps.Categories.List)
	api.POST("/categories", deps.Categories.Create)
	api.GET("/categories/:name/bookmarks", deps.Categories.Bookmarks)

	api.GET("/search", deps.Search.Search)

	api.GET("/index/health", deps.Index.Health)
	api.POST("/index/rebuild", deps.Index.Rebuild)
	api.POST("/index/sync", deps.Index.Sync)

	api.GET("/thumbnails/:key", deps.Files.Get)

	// scraping and model-heavy endpoints sit behind the rate limit
	limited := api.Group("")
	limited.Use(middleware.RateLimit(deps.RateLimitSpan))
	limited.POST("/bookmarks/ingest", deps.Bookmarks.Ingest)
	limited.POST("/bookmarks/classify-pending", deps.Bookmarks.ClassifyPending)
	limited.POST("/recommend", deps.Recommend.Recommend)
}
