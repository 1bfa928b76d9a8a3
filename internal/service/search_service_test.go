package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gulguleee/instamark/internal/ai"
	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/repo"
	"github.com/gulguleee/instamark/internal/vectorindex"
)

type fakeFilter struct {
	result *ai.FilterResult
	err    error
}

func (f *fakeFilter) FilterBookmarks(ctx context.Context, query string, candidates []model.Bookmark) (*ai.FilterResult, error) {
	return f.result, f.err
}

func result(feedID string) model.SearchResult {
	return model.SearchResult{Bookmark: model.Bookmark{FeedID: feedID}}
}

func feedIDs(results []model.SearchResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Bookmark.FeedID)
	}
	return ids
}

func TestMergeResultsKeywordFirst(t *testing.T) {
	keyword := []model.SearchResult{result("A"), result("B")}
	semantic := []model.SearchResult{result("B"), result("C")}
	merged := mergeResults(keyword, semantic)
	assert.Equal(t, []string{"A", "B", "C"}, feedIDs(merged))
}

func TestMergeResultsEmpty(t *testing.T) {
	assert.Empty(t, mergeResults(nil, nil))
}

func TestFilterSelectsSubsetWithReasons(t *testing.T) {
	s := NewSearchService(nil, nil, &fakeFilter{
		result: &ai.FilterResult{
			Indexes: []int{2, 0},
			Reasons: []string{"keep a", "drop b", "keep c"},
		},
	}, 0)
	candidates := []model.SearchResult{result("A"), result("B"), result("C")}
	filtered := s.filter(context.Background(), "q", candidates)
	assert.Equal(t, []string{"C", "A"}, feedIDs(filtered))
	assert.Equal(t, "keep c", filtered[0].FilterReason)
	assert.Equal(t, "keep a", filtered[1].FilterReason)
}

func TestFilterFailsOpenOnError(t *testing.T) {
	s := NewSearchService(nil, nil, &fakeFilter{err: errors.New("model down")}, 0)
	candidates := []model.SearchResult{result("A"), result("B")}
	filtered := s.filter(context.Background(), "q", candidates)
	assert.Equal(t, []string{"A", "B"}, feedIDs(filtered))
}

type axisEmbedder struct{}

func (axisEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vec := make([]float32, 2)
	if strings.Contains(text, "여행") {
		vec[0] = 1
	}
	if strings.Contains(text, "맛집") {
		vec[1] = 1
	}
	return vec, nil
}

func (axisEmbedder) ModelName() string {
	return "axis-embedder"
}

func TestMultiSkipsKeywordPass(t *testing.T) {
	ctx := context.Background()
	db, err := repo.Open(filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.NoError(t, repo.ApplyMigrations(db))
	bookmarks := repo.NewBookmarkRepo(db)

	indexed := model.Bookmark{FeedID: "f1", Caption: "제주도 여행", Category: "여행", Ctime: 100}
	keywordOnly := model.Bookmark{FeedID: "f2", Caption: "여행 사진만 있어요", Category: "여행", Ctime: 200}
	bookmarks.AddBatch(ctx, []*model.Bookmark{&indexed, &keywordOnly})

	idx, err := vectorindex.New(ctx, axisEmbedder{}, t.TempDir())
	assert.NoError(t, err)
	_, err = idx.UpsertBatch(ctx, []model.Bookmark{indexed})
	assert.NoError(t, err)

	s := NewSearchService(bookmarks, idx, &fakeFilter{
		result: &ai.FilterResult{Indexes: []int{0}, Reasons: []string{"여행 게시물"}},
	}, 5)

	results, err := s.Multi(ctx, "여행")
	assert.NoError(t, err)
	// f2 would match a keyword pass but is not in the index
	assert.Equal(t, []string{"f1"}, feedIDs(results))
	assert.Equal(t, "여행 게시물", results[0].FilterReason)
}

func TestMultiFailsOpenOnFilterError(t *testing.T) {
	ctx := context.Background()
	db, err := repo.Open(filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.NoError(t, repo.ApplyMigrations(db))
	bookmarks := repo.NewBookmarkRepo(db)

	item := model.Bookmark{FeedID: "f1", Caption: "제주도 여행", Category: "여행", Ctime: 100}
	bookmarks.AddBatch(ctx, []*model.Bookmark{&item})

	idx, err := vectorindex.New(ctx, axisEmbedder{}, t.TempDir())
	assert.NoError(t, err)
	_, err = idx.UpsertBatch(ctx, []model.Bookmark{item})
	assert.NoError(t, err)

	s := NewSearchService(bookmarks, idx, &fakeFilter{err: errors.New("model down")}, 5)
	results, err := s.Multi(ctx, "여행")
	assert.NoError(t, err)
	assert.Equal(t, []string{"f1"}, feedIDs(results))
}

func TestFilterFailsOpenOnEmptySelection(t *testing.T) {
	s := NewSearchService(nil, nil, &fakeFilter{
		result: &ai.FilterResult{Reasons: []string{"r1", "r2"}},
	}, 0)
	candidates := []model.SearchResult{result("A"), result("B")}
	filtered := s.filter(context.Background(), "q", candidates)
	assert.Equal(t, []string{"A", "B"}, feedIDs(filtered))
	assert.Equal(t, "r1", filtered[0].FilterReason)
}
