package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHashtags(t *testing.T) {
	cases := []struct {
		name    string
		caption string
		want    []string
	}{
		{
			name:    "ascii tags",
			caption: "great trip #travel #food",
			want:    []string{"travel", "food"},
		},
		{
			name:    "korean tags",
			caption: "제주도 다녀왔어요 #여행 #제주도 #맛집투어",
			want:    []string{"여행", "제주도", "맛집투어"},
		},
		{
			name:    "duplicates keep first occurrence",
			caption: "#food pasta #travel then #food again",
			want:    []string{"food", "travel"},
		},
		{
			name:    "no tags",
			caption: "plain caption without tags",
			want:    nil,
		},
		{
			name:    "empty caption",
			caption: "",
			want:    nil,
		},
		{
			name:    "tag stops at punctuation",
			caption: "#travel! and #food,#cafe",
			want:    []string{"travel", "food", "cafe"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ExtractHashtags(c.caption))
		})
	}
}

func TestNormalizeMediaAlbumUsesFirstCarouselItem(t *testing.T) {
	media := igMedia{
		ID:        "feed-1",
		Code:      "abc",
		MediaType: mediaTypeAlbum,
		Caption:   &igCaption{Text: "앨범 #여행"},
		CarouselMedia: []igMedia{
			{
				MediaType: mediaTypeImage,
				ImageVersions2: &igImageVersions{Candidates: []igImageCandidate{
					{URL: "http://cdn/full.jpg"},
					{URL: "http://cdn/thumb.jpg"},
				}},
			},
			{MediaType: mediaTypeVideo},
		},
	}
	item := normalizeMedia(media, "col-1")
	assert.Equal(t, "feed-1", item.FeedID)
	assert.Equal(t, "album", item.MediaType)
	assert.Equal(t, "col-1", item.CollectionID)
	assert.Equal(t, "http://cdn/full.jpg", item.MediaURL)
	assert.Equal(t, "http://cdn/thumb.jpg", item.ThumbnailURL)
	assert.Equal(t, "https://www.instagram.com/p/abc/", item.URL)
	assert.Equal(t, []string{"여행"}, item.Hashtags)
}

func TestNormalizeMediaVideo(t *testing.T) {
	media := igMedia{
		ID:        "feed-2",
		Code:      "def",
		MediaType: mediaTypeVideo,
		VideoVersions: []igVideoVersion{
			{URL: "http://cdn/video.mp4"},
		},
		ImageVersions2: &igImageVersions{Candidates: []igImageCandidate{
			{URL: "http://cdn/poster.jpg"},
		}},
	}
	item := normalizeMedia(media, "")
	assert.Equal(t, "video", item.MediaType)
	assert.Equal(t, "http://cdn/video.mp4", item.MediaURL)
	assert.Equal(t, "http://cdn/poster.jpg", item.ThumbnailURL)
	assert.Empty(t, item.Caption)
	assert.Nil(t, item.Hashtags)
}
