package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/ai"
	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/repo"
	"github.com/gulguleee/instamark/internal/scraper"
)

const (
	defaultRecommendTag  = "트렌드"
	recommendHistorySize = 50
	recommendFeedSize    = 20
)

type recommendManager interface {
	Recommend(ctx context.Context, query string, history []model.Bookmark, feed []model.Bookmark) (*ai.RecommendResult, error)
}

// RecommendService fetches a recent hashtag feed and lets the model
// pick the posts that fit the user's taste. With no saved history the
// model runs in omakase mode and picks freely.
type RecommendService struct {
	bookmarks *repo.BookmarkRepo
	vocab     *VocabularyService
	client    scraper.Client
	mgr       recommendManager
}

func NewRecommendService(bookmarks *repo.BookmarkRepo, vocab *VocabularyService, client scraper.Client, mgr recommendManager) *RecommendService {
	return &RecommendService{
		bookmarks: bookmarks,
		vocab:     vocab,
		client:    client,
		mgr:       mgr,
	}
}

// Recommend returns up to five posts from the tag feed with one reason
// each. When tag is empty it is derived from the query against the
// category vocabulary, falling back to the trend tag.
func (s *RecommendService) Recommend(ctx context.Context, query string, tag string) ([]model.SearchResult, error) {
	logger := logutil.GetLogger(ctx)
	if tag == "" {
		tag = s.deriveTag(ctx, query)
	}

	feed, err := s.client.FetchRecentByTag(ctx, tag, recommendFeedSize)
	if err != nil {
		return nil, err
	}
	if len(feed) == 0 {
		return nil, nil
	}

	history, err := s.bookmarks.List(ctx, "", recommendHistorySize)
	if err != nil {
		logger.Warn("load history failed, recommending without it", zap.Error(err))
		history = nil
	}

	result, err := s.mgr.Recommend(ctx, query, history, feed)
	if err != nil {
		return nil, err
	}
	picks := make([]model.SearchResult, 0, len(result.Indexes))
	for i, idx := range result.Indexes {
		picks = append(picks, model.SearchResult{
			Bookmark:        feed[idx],
			RecommendReason: result.Reasons[i],
		})
	}
	logger.Info("recommendation done",
		zap.String("tag", tag), zap.Int("feed", len(feed)), zap.Int("picked", len(picks)))
	return picks, nil
}

// deriveTag picks the first vocabulary label mentioned in the query.
func (s *RecommendService) deriveTag(ctx context.Context, query string) string {
	if query == "" {
		return defaultRecommendTag
	}
	names, err := s.vocab.Snapshot(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("load vocabulary failed", zap.Error(err))
		return defaultRecommendTag
	}
	for _, name := range names {
		if name == model.FallbackCategory {
			continue
		}
		if strings.Contains(query, name) {
			return name
		}
	}
	return defaultRecommendTag
}
