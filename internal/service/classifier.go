package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/ai"
	"github.com/gulguleee/instamark/internal/model"
)

type classifyManager interface {
	Classify(ctx context.Context, caption string, hashtags []string, vocabulary []string) (*ai.ClassifyResult, error)
}

// Classifier assigns a category to a post. It never returns an error:
// when the model call fails the post lands in the fallback category and
// the failure is recorded in the reason so it is visible to the user.
type Classifier struct {
	mgr   classifyManager
	vocab *VocabularyService
}

func NewClassifier(mgr classifyManager, vocab *VocabularyService) *Classifier {
	return &Classifier{mgr: mgr, vocab: vocab}
}

// Classify fills in Category, CategoryReason and CategoryCaption on the
// bookmark in place. New labels coined by the model are merged into the
// vocabulary.
func (c *Classifier) Classify(ctx context.Context, bm *model.Bookmark) {
	if !bm.HasText() {
		bm.Category = model.FallbackCategory
		bm.CategoryReason = "분류할 텍스트가 없습니다"
		bm.CategoryCaption = bm.Caption
		return
	}
	vocabulary, err := c.vocab.Snapshot(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("load vocabulary failed", zap.Error(err))
		vocabulary = []string{model.FallbackCategory}
	}
	result, err := c.mgr.Classify(ctx, bm.Caption, bm.Hashtags, vocabulary)
	if err != nil {
		logutil.GetLogger(ctx).Error("classify bookmark failed",
			zap.String("feed_id", bm.FeedID), zap.Error(err))
		bm.Category = model.FallbackCategory
		bm.CategoryReason = fmt.Sprintf("%s: %v", model.ClassifyErrorPrefix, err)
		bm.CategoryCaption = bm.Caption
		return
	}
	bm.Category = result.Categories[0]
	bm.CategoryReason = result.CategoryReason
	bm.CategoryCaption = bm.Caption
	c.vocab.Merge(ctx, result.Categories)
}

// ClassifyBatch classifies each post that carries any text. Posts with
// neither caption nor hashtags are left untouched so the pending
// classifier can stamp them later.
func (c *Classifier) ClassifyBatch(ctx context.Context, bms []*model.Bookmark) {
	for _, bm := range bms {
		if !bm.HasText() {
			continue
		}
		c.Classify(ctx, bm)
	}
}
