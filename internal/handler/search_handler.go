package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/pkg/errcode"
	"github.com/gulguleee/instamark/internal/pkg/response"
	"github.com/gulguleee/instamark/internal/service"
)

type SearchHandler struct {
	svc *service.SearchService
}

func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search runs one of four modes: keyword (substring match), semantic
// (raw vector similarity), multi (vector similarity plus relevance
// filter) or total (keyword and semantic merged plus relevance filter).
// Total is the default.
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "q required")
		return
	}
	mode := c.DefaultQuery("mode", "total")
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx := c.Request.Context()
	var results []model.SearchResult
	var err error
	switch mode {
	case "keyword":
		results, err = h.svc.Keyword(ctx, query)
	case "semantic":
		results, err = h.svc.Semantic(ctx, query, limit)
	case "multi":
		results, err = h.svc.Multi(ctx, query)
	case "total":
		results, err = h.svc.Total(ctx, query)
	default:
		response.Error(c, errcode.ErrInvalid, "unknown search mode")
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": results})
}
