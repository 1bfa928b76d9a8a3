package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/model"
)

const (
	defaultInstagramBaseURL   = "https://i.instagram.com/api/v1"
	defaultInstagramUserAgent = "Instagram 275.0.0.27.98 Android"
)

type instagramConfig struct {
	SessionID string `json:"session_id"`
	UserAgent string `json:"user_agent"`
	BaseURL   string `json:"base_url"`
}

// instagramClient talks to the private mobile API with a session
// cookie. Saved feed pagination follows next_max_id until exhausted.
type instagramClient struct {
	sessionID string
	userAgent string
	baseURL   string
	client    *http.Client
}

func createInstagramClient(args interface{}) (Client, error) {
	cfg := &instagramConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.SessionID) == "" {
		return nil, fmt.Errorf("instagram scraper requires session_id")
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultInstagramUserAgent
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultInstagramBaseURL
	}
	return &instagramClient{
		sessionID: strings.TrimSpace(cfg.SessionID),
		userAgent: userAgent,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func init() {
	Register("instagram", createInstagramClient)
}

type igImageCandidate struct {
	URL string `json:"url"`
}

type igImageVersions struct {
	Candidates []igImageCandidate `json:"candidates"`
}

type igVideoVersion struct {
	URL string `json:"url"`
}

type igCaption struct {
	Text string `json:"text"`
}

type igMedia struct {
	ID                 string           `json:"id"`
	Code               string           `json:"code"`
	MediaType          int              `json:"media_type"`
	Caption            *igCaption       `json:"caption"`
	ImageVersions2     *igImageVersions `json:"image_versions2"`
	VideoVersions      []igVideoVersion `json:"video_versions"`
	CarouselMedia      []igMedia        `json:"carousel_media"`
	SavedCollectionIDs []string         `json:"saved_collection_ids"`
}

type igSavedItem struct {
	Media igMedia `json:"media"`
}

type igSavedFeedResponse struct {
	Items     []igSavedItem `json:"items"`
	NextMaxID string        `json:"next_max_id"`
	Status    string        `json:"status"`
}

type igTagFeedResponse struct {
	Items []igMedia `json:"items"`
	Sections []struct {
		LayoutContent struct {
			Medias []struct {
				Media igMedia `json:"media"`
			} `json:"medias"`
		} `json:"layout_content"`
	} `json:"sections"`
	Status string `json:"status"`
}

func (c *instagramClient) FetchSaved(ctx context.Context, collectionID string) ([]model.Bookmark, error) {
	var all []igMedia
	maxID := ""
	for {
		endpoint := c.baseURL + "/feed/saved/"
		if maxID != "" {
			endpoint += "?max_id=" + url.QueryEscape(maxID)
		}
		var page igSavedFeedResponse
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("fetch saved feed: %w", err)
		}
		for _, item := range page.Items {
			all = append(all, item.Media)
		}
		if page.NextMaxID == "" {
			break
		}
		maxID = page.NextMaxID
	}

	var bookmarks []model.Bookmark
	for _, media := range all {
		if collectionID != "" && !containsString(media.SavedCollectionIDs, collectionID) {
			continue
		}
		bookmarks = append(bookmarks, normalizeMedia(media, collectionID))
	}
	logutil.GetLogger(ctx).Info("fetched saved posts",
		zap.String("collection_id", collectionID), zap.Int("count", len(bookmarks)))
	return bookmarks, nil
}

func (c *instagramClient) FetchRecentByTag(ctx context.Context, tag string, limit int) ([]model.Bookmark, error) {
	endpoint := c.baseURL + "/feed/tag/" + url.PathEscape(tag) + "/"
	var page igTagFeedResponse
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, fmt.Errorf("fetch tag feed: %w", err)
	}
	medias := page.Items
	for _, section := range page.Sections {
		for _, entry := range section.LayoutContent.Medias {
			medias = append(medias, entry.Media)
		}
	}
	var bookmarks []model.Bookmark
	for _, media := range medias {
		if limit > 0 && len(bookmarks) >= limit {
			break
		}
		bookmarks = append(bookmarks, normalizeMedia(media, ""))
	}
	logutil.GetLogger(ctx).Info("fetched tag feed",
		zap.String("tag", tag), zap.Int("count", len(bookmarks)))
	return bookmarks, nil
}

func (c *instagramClient) getJSON(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.sessionID})
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, dst)
}

const (
	mediaTypeImage = 1
	mediaTypeVideo = 2
	mediaTypeAlbum = 8
)

var mediaTypeNames = map[int]string{
	mediaTypeImage: "image",
	mediaTypeVideo: "video",
	mediaTypeAlbum: "album",
}

// normalizeMedia flattens the raw media payload into the bookmark
// shape. For albums the first carousel item provides the representative
// media and thumbnail URLs.
func normalizeMedia(media igMedia, collectionID string) model.Bookmark {
	caption := ""
	if media.Caption != nil {
		caption = media.Caption.Text
	}
	item := model.Bookmark{
		CollectionID: collectionID,
		FeedID:       media.ID,
		MediaType:    mediaTypeNames[media.MediaType],
		Caption:      caption,
		URL:          fmt.Sprintf("https://www.instagram.com/p/%s/", media.Code),
		Hashtags:     ExtractHashtags(caption),
	}

	source := media
	if media.MediaType == mediaTypeAlbum && len(media.CarouselMedia) > 0 {
		source = media.CarouselMedia[0]
	}
	switch source.MediaType {
	case mediaTypeImage:
		if source.ImageVersions2 != nil && len(source.ImageVersions2.Candidates) > 0 {
			candidates := source.ImageVersions2.Candidates
			item.MediaURL = candidates[0].URL
			item.ThumbnailURL = candidates[len(candidates)-1].URL
		}
	case mediaTypeVideo:
		if len(source.VideoVersions) > 0 {
			item.MediaURL = source.VideoVersions[0].URL
		}
		if source.ImageVersions2 != nil && len(source.ImageVersions2.Candidates) > 0 {
			item.ThumbnailURL = source.ImageVersions2.Candidates[0].URL
		}
	}
	return item
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
