package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/repo"
)

// EmbeddingCacheCleanupJob expires old rows from the persistent
// embedding cache.
type EmbeddingCacheCleanupJob struct {
	cache  *repo.EmbeddingCacheRepo
	maxAge time.Duration
}

func NewEmbeddingCacheCleanupJob(cache *repo.EmbeddingCacheRepo, maxAge time.Duration) *EmbeddingCacheCleanupJob {
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &EmbeddingCacheCleanupJob{cache: cache, maxAge: maxAge}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.maxAge).Unix()
	removed, err := j.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("embedding cache cleaned", zap.Int64("removed", removed))
	}
	return nil
}
