package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/service"
)

// ClassifyPendingJob picks up posts that were stored without a category,
// oldest first, and classifies them in small batches.
type ClassifyPendingJob struct {
	svc   *service.BookmarkService
	batch int
}

func NewClassifyPendingJob(svc *service.BookmarkService, batch int) *ClassifyPendingJob {
	if batch <= 0 {
		batch = 20
	}
	return &ClassifyPendingJob{svc: svc, batch: batch}
}

func (j *ClassifyPendingJob) Name() string {
	return "classify_pending"
}

func (j *ClassifyPendingJob) Run(ctx context.Context) error {
	count, err := j.svc.ClassifyPending(ctx, j.batch)
	if err != nil {
		return err
	}
	if count > 0 {
		logutil.GetLogger(ctx).Info("pending bookmarks classified", zap.Int("count", count))
	}
	return nil
}
