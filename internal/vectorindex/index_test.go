package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gulguleee/instamark/internal/model"
)

// wordEmbedder maps known words onto fixed axes so similarity is
// predictable in tests.
type wordEmbedder struct {
	axes map[string]int
}

func newWordEmbedder() *wordEmbedder {
	return &wordEmbedder{axes: map[string]int{
		"travel": 0,
		"food":   1,
		"music":  2,
	}}
}

func (e *wordEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vector := make([]float32, 4)
	if axis, ok := e.axes[text]; ok {
		vector[axis] = 1
	} else {
		vector[3] = 1
	}
	return vector, nil
}

func (e *wordEmbedder) ModelName() string {
	return "word-embedder"
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(context.Background(), newWordEmbedder(), t.TempDir())
	assert.NoError(t, err)
	return idx
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	added, err := idx.UpsertBatch(ctx, []model.Bookmark{
		{FeedID: "f-travel", Caption: "travel"},
		{FeedID: "f-food", Caption: "food"},
		{FeedID: "f-music", Caption: "music"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, added)

	hits, err := idx.Search(ctx, "travel", 2)
	assert.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "f-travel", hits[0].FeedID)
	assert.Equal(t, float32(1), hits[0].Score)
}

func TestSearchLimitCappedByIndexSize(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.UpsertBatch(ctx, []model.Bookmark{{FeedID: "f1", Caption: "travel"}})
	assert.NoError(t, err)

	hits, err := idx.Search(ctx, "travel", 10)
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)
	hits, err := idx.Search(context.Background(), "travel", 5)
	assert.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpsertSkipsEmptyCaptions(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	added, err := idx.UpsertBatch(ctx, []model.Bookmark{
		{FeedID: "f1", Caption: ""},
		{FeedID: "f2", Caption: "food"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.False(t, idx.Contains("f1"))
	assert.True(t, idx.Contains("f2"))
}

func TestUpsertRemapLeavesOrphanSlot(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.UpsertBatch(ctx, []model.Bookmark{{FeedID: "f1", Caption: "travel"}})
	assert.NoError(t, err)
	_, err = idx.UpsertBatch(ctx, []model.Bookmark{{FeedID: "f1", Caption: "food"}})
	assert.NoError(t, err)

	health := idx.Health()
	assert.Equal(t, 2, health.TotalVectors)
	assert.Equal(t, 1, health.TotalMappings)
	assert.False(t, health.Healthy)

	hits, err := idx.Search(ctx, "food", 1)
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "f1", hits[0].FeedID)
}

func TestDeleteRemovesMappingOnly(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.UpsertBatch(ctx, []model.Bookmark{{FeedID: "f1", Caption: "travel"}})
	assert.NoError(t, err)

	deleted, err := idx.Delete(ctx, "f1")
	assert.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, idx.Contains("f1"))

	health := idx.Health()
	assert.Equal(t, 1, health.TotalVectors)
	assert.Equal(t, 0, health.TotalMappings)
	assert.False(t, health.Healthy)

	deleted, err = idx.Delete(ctx, "f1")
	assert.NoError(t, err)
	assert.False(t, deleted)
}

func TestRebuildRestoresHealth(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.UpsertBatch(ctx, []model.Bookmark{
		{FeedID: "f1", Caption: "travel"},
		{FeedID: "f2", Caption: "food"},
	})
	assert.NoError(t, err)
	_, err = idx.Delete(ctx, "f2")
	assert.NoError(t, err)
	assert.False(t, idx.Health().Healthy)

	added, err := idx.Rebuild(ctx, []model.Bookmark{
		{FeedID: "f1", Caption: "travel"},
		{FeedID: "f3", Caption: "music"},
		{FeedID: "f4", Caption: ""},
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, added)

	health := idx.Health()
	assert.True(t, health.Healthy)
	assert.Equal(t, 2, health.TotalVectors)
	assert.True(t, idx.Contains("f3"))
	assert.False(t, idx.Contains("f2"))
}

func TestIndexPersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := New(ctx, newWordEmbedder(), dir)
	assert.NoError(t, err)
	_, err = idx.UpsertBatch(ctx, []model.Bookmark{{FeedID: "f1", Caption: "travel"}})
	assert.NoError(t, err)

	reloaded, err := New(ctx, newWordEmbedder(), dir)
	assert.NoError(t, err)
	assert.True(t, reloaded.Contains("f1"))

	hits, err := reloaded.Search(ctx, "travel", 1)
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "f1", hits[0].FeedID)
}

func TestNormalize(t *testing.T) {
	vector := []float32{3, 4}
	normalize(vector)
	assert.InDelta(t, 0.6, vector[0], 1e-6)
	assert.InDelta(t, 0.8, vector[1], 1e-6)

	zero := []float32{0, 0}
	normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}
