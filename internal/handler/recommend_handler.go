package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gulguleee/instamark/internal/pkg/errcode"
	"github.com/gulguleee/instamark/internal/pkg/response"
	"github.com/gulguleee/instamark/internal/service"
)

type RecommendHandler struct {
	svc *service.RecommendService
}

func NewRecommendHandler(svc *service.RecommendService) *RecommendHandler {
	return &RecommendHandler{svc: svc}
}

type recommendRequest struct {
	Query string `json:"query"`
	Tag   string `json:"tag"`
}

func (h *RecommendHandler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	results, err := h.svc.Recommend(c.Request.Context(), req.Query, req.Tag)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": results})
}
