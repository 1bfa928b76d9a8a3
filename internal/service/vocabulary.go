package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/repo"
)

// VocabularyService owns the growing category label set. The fallback
// label always exists; labels are never removed.
type VocabularyService struct {
	categories *repo.CategoryRepo
}

func NewVocabularyService(categories *repo.CategoryRepo) *VocabularyService {
	return &VocabularyService{categories: categories}
}

func (s *VocabularyService) Snapshot(ctx context.Context) ([]string, error) {
	return s.categories.ListNames(ctx)
}

func (s *VocabularyService) ListAll(ctx context.Context) ([]model.Category, error) {
	return s.categories.ListAll(ctx)
}

// Merge adds any labels not yet in the vocabulary. Failures are logged
// and skipped; classification must not stall on a vocabulary write.
func (s *VocabularyService) Merge(ctx context.Context, names []string) {
	for _, name := range names {
		if err := s.categories.Add(ctx, name); err != nil {
			logutil.GetLogger(ctx).Warn("add category failed",
				zap.String("category", name), zap.Error(err))
		}
	}
}
