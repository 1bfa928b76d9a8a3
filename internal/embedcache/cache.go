package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/ai"
	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/repo"
)

// CachedEmbedder fronts an embedder with two cache tiers: an in-memory
// LRU for the hot set and a sqlite table that survives restarts.
// Embedding the same text twice must never cost two upstream calls.
type CachedEmbedder struct {
	inner ai.IEmbedder
	mem   *lru.LRU[string, []float32]
	db    *repo.EmbeddingCacheRepo
}

func New(inner ai.IEmbedder, dbRepo *repo.EmbeddingCacheRepo, memSize int, memTTL time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		mem:   lru.NewLRU[string, []float32](memSize, nil, memTTL),
		db:    dbRepo,
	}
}

func (c *CachedEmbedder) ModelName() string {
	return c.inner.ModelName()
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := buildCacheKey(c.inner.ModelName(), taskType, text)
	if values, ok := c.mem.Get(key); ok {
		return cloneEmbedding(values), nil
	}
	if c.db != nil {
		values, ok, err := c.db.Get(ctx, c.inner.ModelName(), taskType, key)
		if err != nil {
			logutil.GetLogger(ctx).Warn("read embedding cache failed", zap.Error(err))
		} else if ok {
			c.mem.Add(key, cloneEmbedding(values))
			return values, nil
		}
	}
	values, err := c.inner.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	c.mem.Add(key, cloneEmbedding(values))
	if c.db != nil {
		item := &model.EmbeddingCache{
			ModelName:   c.inner.ModelName(),
			TaskType:    taskType,
			ContentHash: key,
			Embedding:   values,
			Ctime:       time.Now().Unix(),
		}
		if err := c.db.Save(ctx, item); err != nil {
			logutil.GetLogger(ctx).Warn("write embedding cache failed", zap.Error(err))
		}
	}
	return values, nil
}

func buildCacheKey(modelName, taskType, text string) string {
	h := sha256.New()
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(taskType))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// cloneEmbedding guards cached slices against caller mutation.
func cloneEmbedding(values []float32) []float32 {
	out := make([]float32, len(values))
	copy(out, values)
	return out
}
