package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/filestore"
	"github.com/gulguleee/instamark/internal/model"
	appErr "github.com/gulguleee/instamark/internal/pkg/errors"
	"github.com/gulguleee/instamark/internal/repo"
	"github.com/gulguleee/instamark/internal/scraper"
	"github.com/gulguleee/instamark/internal/vectorindex"
)

// BookmarkService coordinates the ingest pipeline: scrape, classify,
// snapshot thumbnails, store, index. The database is ground truth; the
// vector index follows it.
type BookmarkService struct {
	bookmarks  *repo.BookmarkRepo
	classifier *Classifier
	index      *vectorindex.Index
	client     scraper.Client
	files      filestore.Store
	httpClient *http.Client
}

func NewBookmarkService(bookmarks *repo.BookmarkRepo, classifier *Classifier, index *vectorindex.Index, client scraper.Client, files filestore.Store) *BookmarkService {
	return &BookmarkService{
		bookmarks:  bookmarks,
		classifier: classifier,
		index:      index,
		client:     client,
		files:      files,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// IngestSaved scrapes the saved feed and runs the full pipeline over it.
func (s *BookmarkService) IngestSaved(ctx context.Context, collectionID string) (int, int, error) {
	items, err := s.client.FetchSaved(ctx, collectionID)
	if err != nil {
		return 0, 0, err
	}
	success, fail := s.AddBookmarks(ctx, items)
	return success, fail, nil
}

// AddBookmarks stores a batch of posts. Only posts not yet in the
// database are classified and thumbnailed; re-ingesting a post is a
// no-op that still counts as success. The vector index is updated for
// the new posts after the batch commits.
func (s *BookmarkService) AddBookmarks(ctx context.Context, items []model.Bookmark) (int, int) {
	logger := logutil.GetLogger(ctx)

	batch := make([]*model.Bookmark, 0, len(items))
	var fresh []*model.Bookmark
	for i := range items {
		bm := &items[i]
		batch = append(batch, bm)
		if bm.FeedID == "" {
			continue
		}
		_, err := s.bookmarks.GetByFeedID(ctx, bm.FeedID)
		if err == nil {
			continue
		}
		if !appErr.IsNotFound(err) {
			logger.Warn("bookmark presence check failed",
				zap.String("feed_id", bm.FeedID), zap.Error(err))
			continue
		}
		fresh = append(fresh, bm)
	}

	s.classifier.ClassifyBatch(ctx, fresh)
	for _, bm := range fresh {
		s.snapshotThumbnail(ctx, bm)
	}

	success, fail := s.bookmarks.AddBatch(ctx, batch)

	if len(fresh) > 0 {
		indexed := make([]model.Bookmark, 0, len(fresh))
		for _, bm := range fresh {
			indexed = append(indexed, *bm)
		}
		if _, err := s.index.UpsertBatch(ctx, indexed); err != nil {
			logger.Error("index new bookmarks failed", zap.Error(err))
		}
	}
	return success, fail
}

// snapshotThumbnail copies the CDN thumbnail into the file store so it
// outlives the signed URL. Failures only cost the snapshot.
func (s *BookmarkService) snapshotThumbnail(ctx context.Context, bm *model.Bookmark) {
	if s.files == nil || bm.ThumbnailURL == "" {
		return
	}
	logger := logutil.GetLogger(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bm.ThumbnailURL, nil)
	if err != nil {
		logger.Warn("build thumbnail request failed", zap.String("feed_id", bm.FeedID), zap.Error(err))
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Warn("fetch thumbnail failed", zap.String("feed_id", bm.FeedID), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warn("fetch thumbnail failed",
			zap.String("feed_id", bm.FeedID), zap.Int("status", resp.StatusCode))
		return
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("read thumbnail failed", zap.String("feed_id", bm.FeedID), zap.Error(err))
		return
	}
	key := filestore.ThumbnailKey(bm.FeedID)
	if err := s.files.Save(ctx, key, newMemFile(data), int64(len(data))); err != nil {
		logger.Warn("store thumbnail failed", zap.String("feed_id", bm.FeedID), zap.Error(err))
		return
	}
	bm.ThumbnailKey = key
}

// Delete removes the bookmark from the database and drops its vector
// mapping. The orphaned vector slot stays until the next rebuild.
func (s *BookmarkService) Delete(ctx context.Context, feedID string) error {
	deleted, err := s.bookmarks.Delete(ctx, feedID)
	if err != nil {
		return err
	}
	if !deleted {
		return appErr.ErrNotFound
	}
	if _, err := s.index.Delete(ctx, feedID); err != nil {
		logutil.GetLogger(ctx).Warn("drop vector mapping failed",
			zap.String("feed_id", feedID), zap.Error(err))
	}
	return nil
}

// RebuildIndex re-embeds every stored post, restoring index health
// after heavy deletions.
func (s *BookmarkService) RebuildIndex(ctx context.Context) (int, error) {
	items, err := s.bookmarks.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return s.index.Rebuild(ctx, items)
}

// SyncIndex indexes stored posts with text that are missing from the
// vector index, picking up posts whose embedding failed at ingest time.
func (s *BookmarkService) SyncIndex(ctx context.Context) (int, error) {
	items, err := s.bookmarks.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	var missing []model.Bookmark
	for _, item := range items {
		if item.Caption != "" && !s.index.Contains(item.FeedID) {
			missing = append(missing, item)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	return s.index.UpsertBatch(ctx, missing)
}

// ClassifyPending classifies stored posts that never got a category,
// oldest first.
func (s *BookmarkService) ClassifyPending(ctx context.Context, limit int) (int, error) {
	items, err := s.bookmarks.ListUncategorized(ctx, limit)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range items {
		bm := &items[i]
		s.classifier.Classify(ctx, bm)
		if err := s.bookmarks.UpdateCategory(ctx, bm.FeedID, bm.Category, bm.CategoryReason, bm.CategoryCaption); err != nil {
			logutil.GetLogger(ctx).Warn("update category failed",
				zap.String("feed_id", bm.FeedID), zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}

func (s *BookmarkService) Get(ctx context.Context, feedID string) (*model.Bookmark, error) {
	return s.bookmarks.GetByFeedID(ctx, feedID)
}

func (s *BookmarkService) List(ctx context.Context, collectionID string, limit int) ([]model.Bookmark, error) {
	return s.bookmarks.List(ctx, collectionID, limit)
}

func (s *BookmarkService) ListByCategory(ctx context.Context, category string) ([]model.Bookmark, error) {
	return s.bookmarks.GetByCategory(ctx, category)
}

func (s *BookmarkService) ListCollections(ctx context.Context) ([]model.Collection, error) {
	return s.bookmarks.ListCollections(ctx)
}

func (s *BookmarkService) IndexHealth() vectorindex.HealthReport {
	return s.index.Health()
}

type memFile struct {
	*bytes.Reader
}

func newMemFile(data []byte) *memFile {
	return &memFile{Reader: bytes.NewReader(data)}
}

func (f *memFile) Close() error {
	return nil
}
