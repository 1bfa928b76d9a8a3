package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/gulguleee/instamark/internal/model"
	appErr "github.com/gulguleee/instamark/internal/pkg/errors"
)

type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// Add inserts the label if it is not already present. Labels are compared
// case-sensitively and exact-match only; duplicates are a no-op.
func (r *CategoryRepo) Add(ctx context.Context, name string) error {
	if name == "" {
		return appErr.ErrInvalid
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO categories (name, ctime) VALUES (?, ?)",
		name, time.Now().Unix())
	return err
}

func (r *CategoryRepo) ListAll(ctx context.Context) ([]model.Category, error) {
	where := map[string]interface{}{
		"_orderby": "name asc",
	}
	sqlStr, args, err := builder.BuildSelect("categories", where, []string{"id", "name", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.Category
	for rows.Next() {
		var item model.Category
		if err := rows.Scan(&item.ID, &item.Name, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListNames returns the vocabulary as plain labels, sorted by name.
func (r *CategoryRepo) ListNames(ctx context.Context) ([]string, error) {
	items, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names, nil
}
