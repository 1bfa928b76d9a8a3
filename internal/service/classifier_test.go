package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gulguleee/instamark/internal/ai"
	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/repo"
)

type fakeClassifyManager struct {
	result *ai.ClassifyResult
	err    error
	calls  int
}

func (f *fakeClassifyManager) Classify(ctx context.Context, caption string, hashtags []string, vocabulary []string) (*ai.ClassifyResult, error) {
	f.calls++
	return f.result, f.err
}

func newTestVocab(t *testing.T) *VocabularyService {
	t.Helper()
	db, err := repo.Open(filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.NoError(t, repo.ApplyMigrations(db))
	return NewVocabularyService(repo.NewCategoryRepo(db))
}

func TestClassifySuccessMergesVocabulary(t *testing.T) {
	ctx := context.Background()
	vocab := newTestVocab(t)
	mgr := &fakeClassifyManager{result: &ai.ClassifyResult{
		Categories:     []string{"전시회"},
		CategoryReason: "전시 관련 게시물",
	}}
	c := NewClassifier(mgr, vocab)

	bm := &model.Bookmark{FeedID: "f1", Caption: "전시 다녀옴"}
	c.Classify(ctx, bm)

	assert.Equal(t, "전시회", bm.Category)
	assert.Equal(t, "전시 관련 게시물", bm.CategoryReason)
	assert.Equal(t, bm.Caption, bm.CategoryCaption)

	names, err := vocab.Snapshot(ctx)
	assert.NoError(t, err)
	assert.Contains(t, names, "전시회")
}

func TestClassifyFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	vocab := newTestVocab(t)
	mgr := &fakeClassifyManager{err: errors.New("model down")}
	c := NewClassifier(mgr, vocab)

	bm := &model.Bookmark{FeedID: "f1", Caption: "caption"}
	c.Classify(ctx, bm)

	assert.Equal(t, model.FallbackCategory, bm.Category)
	assert.Contains(t, bm.CategoryReason, "model down")
	assert.Equal(t, "caption", bm.CategoryCaption)
}

func TestClassifyWithoutTextSkipsModel(t *testing.T) {
	ctx := context.Background()
	vocab := newTestVocab(t)
	mgr := &fakeClassifyManager{}
	c := NewClassifier(mgr, vocab)

	bm := &model.Bookmark{FeedID: "f1"}
	c.Classify(ctx, bm)

	assert.Equal(t, 0, mgr.calls)
	assert.Equal(t, model.FallbackCategory, bm.Category)
	assert.NotEmpty(t, bm.CategoryReason)
}

func TestClassifyBatch(t *testing.T) {
	ctx := context.Background()
	vocab := newTestVocab(t)
	mgr := &fakeClassifyManager{result: &ai.ClassifyResult{
		Categories:     []string{"여행"},
		CategoryReason: "여행 게시물",
	}}
	c := NewClassifier(mgr, vocab)

	items := []*model.Bookmark{
		{FeedID: "f1", Caption: "a"},
		{FeedID: "f2", Caption: "b"},
		{FeedID: "f3"},
	}
	c.ClassifyBatch(ctx, items)
	assert.Equal(t, 2, mgr.calls)
	assert.Equal(t, "여행", items[0].Category)
	assert.Equal(t, "여행", items[1].Category)
	// a post with no text at all is left for the pending classifier
	assert.Equal(t, "", items[2].Category)
	assert.Equal(t, "", items[2].CategoryReason)
}
