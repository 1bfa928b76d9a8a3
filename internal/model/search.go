package model

// SearchResult is a bookmark decorated by whichever search stage produced
// it. Only one of the extra fields is meaningful per stage: Similarity for
// semantic search, FilterReason for the relevance filter, RecommendReason
// for the recommender. Results are ephemeral and never persisted.
type SearchResult struct {
	Bookmark        Bookmark `json:"bookmark"`
	Similarity      float32  `json:"similarity,omitempty"`
	FilterReason    string   `json:"filter_reason,omitempty"`
	RecommendReason string   `json:"recommend_reason,omitempty"`
}

type Collection struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}
