package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/model"
	"github.com/gulguleee/instamark/internal/pkg/dbutil"
	appErr "github.com/gulguleee/instamark/internal/pkg/errors"
)

var bookmarkColumns = []string{
	"id", "collection_id", "feed_id", "media_type", "caption",
	"media_url", "thumbnail_url", "thumbnail_key", "url", "hashtags",
	"category", "category_reason", "category_caption", "ctime",
}

type BookmarkRepo struct {
	db *sql.DB
}

func NewBookmarkRepo(db *sql.DB) *BookmarkRepo {
	return &BookmarkRepo{db: db}
}

// InsertIfAbsent inserts the bookmark only when its feed_id is not already
// stored. The presence check is authoritative: a duplicate ingestion
// writes nothing, including category fields.
func (r *BookmarkRepo) InsertIfAbsent(ctx context.Context, bm *model.Bookmark) (bool, error) {
	exists, err := r.exists(ctx, r.db, bm.FeedID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	sqlStr, args, err := buildBookmarkInsert(bm)
	if err != nil {
		return false, err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return false, err
	}
	return true, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *BookmarkRepo) exists(ctx context.Context, ex execer, feedID string) (bool, error) {
	if feedID == "" {
		return false, appErr.ErrInvalid
	}
	var id int64
	err := ex.QueryRowContext(ctx, "SELECT id FROM bookmarks WHERE feed_id = ?", feedID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func buildBookmarkInsert(bm *model.Bookmark) (string, []interface{}, error) {
	tags, err := json.Marshal(bm.Hashtags)
	if err != nil {
		return "", nil, err
	}
	if bm.Ctime == 0 {
		bm.Ctime = time.Now().Unix()
	}
	data := map[string]interface{}{
		"collection_id":    bm.CollectionID,
		"feed_id":          bm.FeedID,
		"media_type":       bm.MediaType,
		"caption":          bm.Caption,
		"media_url":        bm.MediaURL,
		"thumbnail_url":    bm.ThumbnailURL,
		"thumbnail_key":    bm.ThumbnailKey,
		"url":              bm.URL,
		"hashtags":         string(tags),
		"category":         bm.Category,
		"category_reason":  bm.CategoryReason,
		"category_caption": bm.CategoryCaption,
		"ctime":            bm.Ctime,
	}
	return builder.BuildInsert("bookmarks", []map[string]interface{}{data})
}

// AddBatch stores bookmarks inside one BEGIN IMMEDIATE transaction so that
// concurrent batch writers are serialized on the write lock. Items that
// fail are counted and skipped; the rest of the batch continues. Bookmarks
// already present count as success and are left untouched.
func (r *BookmarkRepo) AddBatch(ctx context.Context, bms []*model.Bookmark) (int, int) {
	if len(bms) == 0 {
		return 0, 0
	}
	logger := logutil.GetLogger(ctx)
	conn, err := r.db.Conn(ctx)
	if err != nil {
		logger.Error("acquire db connection failed", zap.Error(err))
		return 0, len(bms)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		logger.Error("begin immediate failed", zap.Error(err))
		return 0, len(bms)
	}

	success, fail := 0, 0
	for _, bm := range bms {
		if bm.FeedID == "" {
			logger.Warn("bookmark without feed_id skipped")
			fail++
			continue
		}
		exists, err := r.exists(ctx, conn, bm.FeedID)
		if err != nil {
			logger.Error("bookmark presence check failed", zap.String("feed_id", bm.FeedID), zap.Error(err))
			fail++
			continue
		}
		if exists {
			success++
			continue
		}
		if bm.Category != "" {
			if _, err := conn.ExecContext(ctx, "INSERT OR IGNORE INTO categories (name, ctime) VALUES (?, ?)", bm.Category, time.Now().Unix()); err != nil {
				logger.Warn("category upsert failed", zap.String("category", bm.Category), zap.Error(err))
			}
		}
		sqlStr, args, err := buildBookmarkInsert(bm)
		if err != nil {
			logger.Error("build bookmark insert failed", zap.String("feed_id", bm.FeedID), zap.Error(err))
			fail++
			continue
		}
		if _, err := conn.ExecContext(ctx, sqlStr, args...); err != nil {
			logger.Error("bookmark insert failed", zap.String("feed_id", bm.FeedID), zap.Error(err))
			fail++
			continue
		}
		success++
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		logger.Error("commit bookmark batch failed", zap.Error(err))
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			logger.Error("rollback failed", zap.Error(rbErr))
		}
		return 0, len(bms)
	}
	logger.Info("bookmark batch stored", zap.Int("success", success), zap.Int("fail", fail))
	return success, fail
}

// SearchByText matches the query as a case-sensitive substring of the
// caption or the serialized hashtags, newest first.
func (r *BookmarkRepo) SearchByText(ctx context.Context, query string) ([]model.Bookmark, error) {
	const q = `
		SELECT id, collection_id, feed_id, media_type, caption,
			media_url, thumbnail_url, thumbnail_key, url, hashtags,
			category, category_reason, category_caption, ctime
		FROM bookmarks
		WHERE caption LIKE ? OR hashtags LIKE ?
		ORDER BY ctime DESC
	`
	pattern := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx, q, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

func (r *BookmarkRepo) GetByCategory(ctx context.Context, category string) ([]model.Bookmark, error) {
	where := map[string]interface{}{
		"category": category,
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("bookmarks", where, bookmarkColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

func (r *BookmarkRepo) GetByFeedID(ctx context.Context, feedID string) (*model.Bookmark, error) {
	where := map[string]interface{}{
		"feed_id": feedID,
	}
	sqlStr, args, err := builder.BuildSelect("bookmarks", where, bookmarkColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, err := scanBookmarks(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

// GetByFeedIDs returns the stored bookmarks for the given ids, preserving
// the input order. Missing ids are silently absent from the result.
func (r *BookmarkRepo) GetByFeedIDs(ctx context.Context, feedIDs []string) ([]model.Bookmark, error) {
	if len(feedIDs) == 0 {
		return nil, nil
	}
	const q = `
		SELECT id, collection_id, feed_id, media_type, caption,
			media_url, thumbnail_url, thumbnail_key, url, hashtags,
			category, category_reason, category_caption, ctime
		FROM bookmarks
		WHERE feed_id IN (?)
	`
	sqlStr, args, err := dbutil.ExpandIn(q, feedIDs)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, err := scanBookmarks(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Bookmark, len(items))
	for _, item := range items {
		byID[item.FeedID] = item
	}
	ordered := make([]model.Bookmark, 0, len(items))
	for _, id := range feedIDs {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered, nil
}

func (r *BookmarkRepo) List(ctx context.Context, collectionID string, limit int) ([]model.Bookmark, error) {
	if limit <= 0 {
		limit = 100
	}
	where := map[string]interface{}{
		"_orderby": "ctime desc",
		"_limit":   []uint{0, uint(limit)},
	}
	if collectionID != "" {
		where["collection_id"] = collectionID
	}
	sqlStr, args, err := builder.BuildSelect("bookmarks", where, bookmarkColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

func (r *BookmarkRepo) ListAll(ctx context.Context) ([]model.Bookmark, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("bookmarks", where, bookmarkColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

// ListUncategorized returns bookmarks still waiting for a real category:
// rows that were never classified and rows whose classification failed
// and fell back, oldest first.
func (r *BookmarkRepo) ListUncategorized(ctx context.Context, limit int) ([]model.Bookmark, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT id, collection_id, feed_id, media_type, caption,
			media_url, thumbnail_url, thumbnail_key, url, hashtags,
			category, category_reason, category_caption, ctime
		FROM bookmarks
		WHERE category = '' OR category IS NULL OR category_reason LIKE ?
		ORDER BY ctime ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, q, model.ClassifyErrorPrefix+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

func (r *BookmarkRepo) UpdateCategory(ctx context.Context, feedID, category, reason, captionSnapshot string) error {
	where := map[string]interface{}{
		"feed_id": feedID,
	}
	update := map[string]interface{}{
		"category":         category,
		"category_reason":  reason,
		"category_caption": captionSnapshot,
	}
	sqlStr, args, err := builder.BuildUpdate("bookmarks", where, update)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// Delete removes the bookmark row; it reports whether a row existed.
func (r *BookmarkRepo) Delete(ctx context.Context, feedID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE feed_id = ?", feedID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *BookmarkRepo) ListCollections(ctx context.Context) ([]model.Collection, error) {
	const q = `
		SELECT collection_id, COUNT(*) AS cnt
		FROM bookmarks
		WHERE collection_id IS NOT NULL AND collection_id != ''
		GROUP BY collection_id
		ORDER BY cnt DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.Collection
	for rows.Next() {
		var item model.Collection
		if err := rows.Scan(&item.ID, &item.Count); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanBookmarks(rows *sql.Rows) ([]model.Bookmark, error) {
	var items []model.Bookmark
	for rows.Next() {
		var item model.Bookmark
		var tags []byte
		if err := rows.Scan(
			&item.ID, &item.CollectionID, &item.FeedID, &item.MediaType, &item.Caption,
			&item.MediaURL, &item.ThumbnailURL, &item.ThumbnailKey, &item.URL, &tags,
			&item.Category, &item.CategoryReason, &item.CategoryCaption, &item.Ctime,
		); err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			// A hashtags blob that fails to parse degrades to no tags.
			if err := json.Unmarshal(tags, &item.Hashtags); err != nil {
				item.Hashtags = nil
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
