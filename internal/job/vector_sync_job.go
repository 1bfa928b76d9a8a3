package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/service"
)

// VectorSyncJob backfills the vector index with stored posts that are
// missing from it, catching up after embedding outages.
type VectorSyncJob struct {
	svc *service.BookmarkService
}

func NewVectorSyncJob(svc *service.BookmarkService) *VectorSyncJob {
	return &VectorSyncJob{svc: svc}
}

func (j *VectorSyncJob) Name() string {
	return "vector_sync"
}

func (j *VectorSyncJob) Run(ctx context.Context) error {
	added, err := j.svc.SyncIndex(ctx)
	if err != nil {
		return err
	}
	if added > 0 {
		logutil.GetLogger(ctx).Info("vector index synced", zap.Int("added", added))
	}
	health := j.svc.IndexHealth()
	if !health.Healthy {
		logutil.GetLogger(ctx).Warn("vector index drifted from mappings",
			zap.Int("vectors", health.TotalVectors),
			zap.Int("mappings", health.TotalMappings))
	}
	return nil
}
