package repo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gulguleee/instamark/internal/model"
	appErr "github.com/gulguleee/instamark/internal/pkg/errors"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.NoError(t, ApplyMigrations(db))
	return db
}

func sampleBookmark(feedID, caption string, ctime int64) *model.Bookmark {
	return &model.Bookmark{
		CollectionID: "col-1",
		FeedID:       feedID,
		MediaType:    "image",
		Caption:      caption,
		URL:          "https://www.instagram.com/p/" + feedID + "/",
		Hashtags:     []string{"여행"},
		Category:     "여행",
		Ctime:        ctime,
	}
}

func TestAddBatchAndIdempotentReingest(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))

	success, fail := r.AddBatch(ctx, []*model.Bookmark{
		sampleBookmark("f1", "제주도 #여행", 100),
		sampleBookmark("f2", "파스타 #맛집", 200),
	})
	assert.Equal(t, 2, success)
	assert.Equal(t, 0, fail)

	// re-ingesting the same feed must not duplicate or overwrite
	dup := sampleBookmark("f1", "changed caption", 999)
	dup.Category = "맛집"
	success, fail = r.AddBatch(ctx, []*model.Bookmark{dup})
	assert.Equal(t, 1, success)
	assert.Equal(t, 0, fail)

	stored, err := r.GetByFeedID(ctx, "f1")
	assert.NoError(t, err)
	assert.Equal(t, "제주도 #여행", stored.Caption)
	assert.Equal(t, "여행", stored.Category)

	all, err := r.ListAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAddBatchSkipsMissingFeedID(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))

	success, fail := r.AddBatch(ctx, []*model.Bookmark{
		sampleBookmark("f1", "ok", 100),
		{Caption: "no feed id"},
	})
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, fail)
}

func TestAddBatchRegistersNewCategory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewBookmarkRepo(db)
	categories := NewCategoryRepo(db)

	bm := sampleBookmark("f1", "전시 다녀옴", 100)
	bm.Category = "전시회"
	success, _ := r.AddBatch(ctx, []*model.Bookmark{bm})
	assert.Equal(t, 1, success)

	names, err := categories.ListNames(ctx)
	assert.NoError(t, err)
	assert.Contains(t, names, "전시회")
}

func TestSearchByTextMatchesCaptionAndHashtagsNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))

	old := sampleBookmark("f1", "제주도 다녀왔어요", 100)
	newer := sampleBookmark("f2", "또 제주도", 200)
	tagged := sampleBookmark("f3", "사진만 있어요", 300)
	tagged.Hashtags = []string{"제주도"}
	other := sampleBookmark("f4", "파스타 맛집", 400)
	r.AddBatch(ctx, []*model.Bookmark{old, newer, tagged, other})

	items, err := r.SearchByText(ctx, "제주도")
	assert.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, "f3", items[0].FeedID)
	assert.Equal(t, "f2", items[1].FeedID)
	assert.Equal(t, "f1", items[2].FeedID)
}

func TestGetByFeedIDsPreservesInputOrder(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))

	r.AddBatch(ctx, []*model.Bookmark{
		sampleBookmark("f1", "a", 100),
		sampleBookmark("f2", "b", 200),
		sampleBookmark("f3", "c", 300),
	})

	items, err := r.GetByFeedIDs(ctx, []string{"f3", "missing", "f1"})
	assert.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "f3", items[0].FeedID)
	assert.Equal(t, "f1", items[1].FeedID)
}

func TestGetByFeedIDNotFound(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))
	_, err := r.GetByFeedID(ctx, "missing")
	assert.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))
	r.AddBatch(ctx, []*model.Bookmark{sampleBookmark("f1", "a", 100)})

	deleted, err := r.Delete(ctx, "f1")
	assert.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = r.Delete(ctx, "f1")
	assert.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))
	r.AddBatch(ctx, []*model.Bookmark{sampleBookmark("f1", "공연 봤다", 100)})

	err := r.UpdateCategory(ctx, "f1", "공연", "공연 관련", "공연 봤다")
	assert.NoError(t, err)

	stored, err := r.GetByFeedID(ctx, "f1")
	assert.NoError(t, err)
	assert.Equal(t, "공연", stored.Category)
	assert.Equal(t, "공연 관련", stored.CategoryReason)
	assert.Equal(t, "공연 봤다", stored.CategoryCaption)

	err = r.UpdateCategory(ctx, "missing", "공연", "r", "c")
	assert.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestAddBatchKeepsEmptyCategory(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))

	pending := sampleBookmark("f1", "a", 100)
	pending.Category = ""
	success, fail := r.AddBatch(ctx, []*model.Bookmark{pending})
	assert.Equal(t, 1, success)
	assert.Equal(t, 0, fail)

	stored, err := r.GetByFeedID(ctx, "f1")
	assert.NoError(t, err)
	assert.Equal(t, "", stored.Category)

	items, err := r.ListUncategorized(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "f1", items[0].FeedID)
}

func TestListUncategorized(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))

	pending := sampleBookmark("f1", "a", 100)
	pending.Category = ""
	failed := sampleBookmark("f2", "b", 200)
	failed.Category = model.FallbackCategory
	failed.CategoryReason = model.ClassifyErrorPrefix + ": model down"
	fallbackForGood := sampleBookmark("f3", "c", 300)
	fallbackForGood.Category = model.FallbackCategory
	fallbackForGood.CategoryReason = "분류할 텍스트가 없습니다"
	done := sampleBookmark("f4", "d", 400)
	r.AddBatch(ctx, []*model.Bookmark{pending, failed, fallbackForGood, done})

	items, err := r.ListUncategorized(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "f1", items[0].FeedID)
	assert.Equal(t, "f2", items[1].FeedID)
}

func TestListCollections(t *testing.T) {
	ctx := context.Background()
	r := NewBookmarkRepo(newTestDB(t))

	a := sampleBookmark("f1", "a", 100)
	b := sampleBookmark("f2", "b", 200)
	c := sampleBookmark("f3", "c", 300)
	c.CollectionID = "col-2"
	r.AddBatch(ctx, []*model.Bookmark{a, b, c})

	cols, err := r.ListCollections(ctx)
	assert.NoError(t, err)
	assert.Len(t, cols, 2)
	assert.Equal(t, "col-1", cols[0].ID)
	assert.Equal(t, int64(2), cols[0].Count)
}

func TestCategoryRepoSeededAndIdempotent(t *testing.T) {
	ctx := context.Background()
	categories := NewCategoryRepo(newTestDB(t))

	names, err := categories.ListNames(ctx)
	assert.NoError(t, err)
	assert.Contains(t, names, "여행")
	assert.Contains(t, names, model.FallbackCategory)

	before := len(names)
	assert.NoError(t, categories.Add(ctx, "여행"))
	names, err = categories.ListNames(ctx)
	assert.NoError(t, err)
	assert.Len(t, names, before)

	assert.ErrorIs(t, categories.Add(ctx, ""), appErr.ErrInvalid)
}

func TestEmbeddingCacheRepo(t *testing.T) {
	ctx := context.Background()
	cache := NewEmbeddingCacheRepo(newTestDB(t))

	_, ok, err := cache.Get(ctx, "m", "doc", "h1")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, cache.Save(ctx, &model.EmbeddingCache{
		ModelName: "m", TaskType: "doc", ContentHash: "h1",
		Embedding: []float32{1, 2}, Ctime: 100,
	}))
	values, ok, err := cache.Get(ctx, "m", "doc", "h1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, values)

	// upsert replaces
	assert.NoError(t, cache.Save(ctx, &model.EmbeddingCache{
		ModelName: "m", TaskType: "doc", ContentHash: "h1",
		Embedding: []float32{3}, Ctime: 200,
	}))
	values, ok, err = cache.Get(ctx, "m", "doc", "h1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{3}, values)

	removed, err := cache.DeleteBefore(ctx, 300)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
