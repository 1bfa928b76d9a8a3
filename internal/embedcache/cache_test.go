package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	return []float32{1, 2, 3}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-model"
}

func TestBuildCacheKeyDistinguishesParts(t *testing.T) {
	a := buildCacheKey("m", "doc", "text")
	b := buildCacheKey("m", "query", "text")
	c := buildCacheKey("m", "doc", "other")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, buildCacheKey("m", "doc", "text"))
}

func TestCachedEmbedderHitsMemory(t *testing.T) {
	inner := &countingEmbedder{}
	cache := New(inner, nil, 16, time.Minute)
	ctx := context.Background()

	first, err := cache.Embed(ctx, "hello", "doc")
	assert.NoError(t, err)
	second, err := cache.Embed(ctx, "hello", "doc")
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = cache.Embed(ctx, "hello", "query")
	assert.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedderReturnsCopies(t *testing.T) {
	inner := &countingEmbedder{}
	cache := New(inner, nil, 16, time.Minute)
	ctx := context.Background()

	first, err := cache.Embed(ctx, "hello", "doc")
	assert.NoError(t, err)
	first[0] = 99

	second, err := cache.Embed(ctx, "hello", "doc")
	assert.NoError(t, err)
	assert.Equal(t, float32(1), second[0])
}
