package model

// Bookmark is a single saved Instagram post. FeedID is the stable
// identifier assigned by the platform and is unique in the store.
type Bookmark struct {
	ID           int64    `json:"id"`
	CollectionID string   `json:"collection_id"`
	FeedID       string   `json:"feed_id"`
	MediaType    string   `json:"media_type"`
	Caption      string   `json:"caption"`
	MediaURL     string   `json:"media_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	ThumbnailKey string   `json:"thumbnail_key"`
	URL          string   `json:"url"`
	Hashtags     []string `json:"hashtags"`
	Category     string   `json:"category"`
	// CategoryReason justifies Category and refers to the caption as it
	// was at classification time (CategoryCaption). If the caption has
	// changed since, the reason is stale.
	CategoryReason  string `json:"category_reason"`
	CategoryCaption string `json:"category_caption"`
	Ctime           int64  `json:"ctime"`
}

// HasText reports whether the bookmark carries any classifiable text.
func (b *Bookmark) HasText() bool {
	return b.Caption != "" || len(b.Hashtags) > 0
}

// CategoryStale reports whether the stored category reason no longer
// matches the current caption.
func (b *Bookmark) CategoryStale() bool {
	return b.Category != "" && b.CategoryCaption != b.Caption
}
