package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gulguleee/instamark/internal/model"
)

// Client fetches posts from an external feed source. Implementations
// return posts already normalized into the bookmark shape, hashtags
// extracted from the caption.
type Client interface {
	// FetchSaved returns the user's saved posts. An empty collectionID
	// means all collections.
	FetchSaved(ctx context.Context, collectionID string) ([]model.Bookmark, error)
	// FetchRecentByTag returns recent public posts for a hashtag.
	FetchRecentByTag(ctx context.Context, tag string, limit int) ([]model.Bookmark, error)
}

type Factory func(args interface{}) (Client, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func New(name string, args interface{}) (Client, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("scraper.type is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported scraper type: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("scraper config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode scraper config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode scraper config: %w", err)
	}
	return nil
}
