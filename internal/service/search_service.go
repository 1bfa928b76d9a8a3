package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/ai"
	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/repo"
	"github.com/gulguleee/instamark/internal/vectorindex"
)

type filterManager interface {
	FilterBookmarks(ctx context.Context, query string, candidates []model.Bookmark) (*ai.FilterResult, error)
}

type SearchService struct {
	bookmarks     *repo.BookmarkRepo
	index         *vectorindex.Index
	mgr           filterManager
	semanticLimit int
}

func NewSearchService(bookmarks *repo.BookmarkRepo, index *vectorindex.Index, mgr filterManager, semanticLimit int) *SearchService {
	if semanticLimit <= 0 {
		semanticLimit = 15
	}
	return &SearchService{
		bookmarks:     bookmarks,
		index:         index,
		mgr:           mgr,
		semanticLimit: semanticLimit,
	}
}

// Keyword matches the query as a substring of caption or hashtags,
// newest first.
func (s *SearchService) Keyword(ctx context.Context, query string) ([]model.SearchResult, error) {
	items, err := s.bookmarks.SearchByText(ctx, query)
	if err != nil {
		return nil, err
	}
	results := make([]model.SearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, model.SearchResult{Bookmark: item})
	}
	return results, nil
}

// Semantic searches the vector index and hydrates the hits from the
// database, keeping similarity order. Hits whose row has been deleted
// are dropped.
func (s *SearchService) Semantic(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = s.semanticLimit
	}
	hits, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	feedIDs := make([]string, 0, len(hits))
	scores := make(map[string]float32, len(hits))
	for _, hit := range hits {
		feedIDs = append(feedIDs, hit.FeedID)
		scores[hit.FeedID] = hit.Score
	}
	items, err := s.bookmarks.GetByFeedIDs(ctx, feedIDs)
	if err != nil {
		return nil, err
	}
	results := make([]model.SearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, model.SearchResult{
			Bookmark:   item,
			Similarity: scores[item.FeedID],
		})
	}
	return results, nil
}

// Multi runs the semantic search alone and pushes its hits through the
// relevance filter, skipping the keyword pass. Same fail-open policy as
// Total.
func (s *SearchService) Multi(ctx context.Context, query string) ([]model.SearchResult, error) {
	candidates, err := s.Semantic(ctx, query, s.semanticLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return s.filter(ctx, query, candidates), nil
}

// Total combines keyword and semantic results, deduplicated by feed id
// with keyword hits taking precedence, then runs the relevance filter
// over the merged list. The filter fails open: any model error or an
// empty selection returns the full candidate list.
func (s *SearchService) Total(ctx context.Context, query string) ([]model.SearchResult, error) {
	logger := logutil.GetLogger(ctx)

	keyword, err := s.Keyword(ctx, query)
	if err != nil {
		logger.Warn("keyword search failed", zap.Error(err))
	}
	semantic, err := s.Semantic(ctx, query, s.semanticLimit)
	if err != nil {
		logger.Warn("semantic search failed", zap.Error(err))
	}

	candidates := mergeResults(keyword, semantic)
	if len(candidates) == 0 {
		return nil, nil
	}
	return s.filter(ctx, query, candidates), nil
}

func (s *SearchService) filter(ctx context.Context, query string, candidates []model.SearchResult) []model.SearchResult {
	logger := logutil.GetLogger(ctx)
	items := make([]model.Bookmark, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, c.Bookmark)
	}
	result, err := s.mgr.FilterBookmarks(ctx, query, items)
	if err != nil {
		logger.Warn("relevance filter failed, returning unfiltered results", zap.Error(err))
		return candidates
	}
	for i := range candidates {
		candidates[i].FilterReason = result.Reasons[i]
	}
	if len(result.Indexes) == 0 {
		logger.Warn("relevance filter selected nothing, returning unfiltered results")
		return candidates
	}
	filtered := make([]model.SearchResult, 0, len(result.Indexes))
	for _, idx := range result.Indexes {
		filtered = append(filtered, candidates[idx])
	}
	return filtered
}

func mergeResults(keyword, semantic []model.SearchResult) []model.SearchResult {
	seen := make(map[string]struct{}, len(keyword)+len(semantic))
	merged := make([]model.SearchResult, 0, len(keyword)+len(semantic))
	for _, item := range keyword {
		if _, ok := seen[item.Bookmark.FeedID]; ok {
			continue
		}
		seen[item.Bookmark.FeedID] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range semantic {
		if _, ok := seen[item.Bookmark.FeedID]; ok {
			continue
		}
		seen[item.Bookmark.FeedID] = struct{}{}
		merged = append(merged, item)
	}
	return merged
}
