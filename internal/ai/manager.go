package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gulguleee/instamark/internal/model"
)

type ClassifyResult struct {
	Categories     []string `json:"categories"`
	CategoryReason string   `json:"category_reason"`
}

type FilterResult struct {
	// Indexes are positions into the candidate list that survived the
	// relevance check. Reasons carries one entry per candidate, kept or not.
	Indexes []int
	Reasons []string
}

type RecommendResult struct {
	// Indexes are positions into the feed list, at most five. Reasons is
	// aligned one to one with Indexes.
	Indexes []int
	Reasons []string
}

const maxRecommendCount = 5

type Manager struct {
	gen           IGenerator
	timeout       time.Duration
	maxInputChars int
}

func NewManager(gen IGenerator, timeout time.Duration, maxInputChars int) *Manager {
	return &Manager{
		gen:           gen,
		timeout:       timeout,
		maxInputChars: maxInputChars,
	}
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Manager) truncate(text string) string {
	if m.maxInputChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= m.maxInputChars {
		return text
	}
	return string(runes[:m.maxInputChars])
}

// Classify assigns one or more category labels to a post. The model may
// coin labels outside the current vocabulary; callers merge them back.
func (m *Manager) Classify(ctx context.Context, caption string, hashtags []string, vocabulary []string) (*ClassifyResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("당신은 인스타그램 게시물을 카테고리로 분류하는 전문가입니다.\n")
	sb.WriteString("아래 게시물의 캡션과 해시태그를 읽고 가장 적합한 카테고리를 선택하세요.\n\n")
	sb.WriteString("현재 카테고리 목록:\n")
	for _, name := range vocabulary {
		sb.WriteString("- " + name + "\n")
	}
	sb.WriteString("\n규칙:\n")
	sb.WriteString("1. 가능하면 기존 카테고리 중에서 선택하세요.\n")
	sb.WriteString("2. 어느 카테고리에도 맞지 않으면 새로운 카테고리 이름을 만들어도 됩니다.\n")
	sb.WriteString(fmt.Sprintf("3. 정말 분류할 수 없는 경우에만 \"%s\"를 사용하세요.\n", model.FallbackCategory))
	sb.WriteString("4. 분류 이유를 한 문장으로 설명하세요.\n\n")
	sb.WriteString("캡션: " + m.truncate(caption) + "\n")
	sb.WriteString("해시태그: " + strings.Join(hashtags, ", ") + "\n\n")
	sb.WriteString("다음 JSON 형식으로만 답변하세요:\n")
	sb.WriteString(`{"categories": ["카테고리1"], "category_reason": "이유"}`)

	raw, err := m.gen.GenerateJSON(ctx, sb.String())
	if err != nil {
		return nil, err
	}
	result := &ClassifyResult{}
	if err := json.Unmarshal(extractJSON(raw), result); err != nil {
		return nil, fmt.Errorf("parse classify response: %w", err)
	}
	cleaned := make([]string, 0, len(result.Categories))
	for _, name := range result.Categories {
		name = strings.TrimSpace(name)
		if name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{model.FallbackCategory}
	}
	result.Categories = cleaned
	result.CategoryReason = strings.TrimSpace(result.CategoryReason)
	return result, nil
}

type filterResponse struct {
	BookmarkIndexes []int    `json:"bookmark_indexes"`
	FilterReasons   []string `json:"filter_reasons"`
}

// FilterBookmarks asks the model which candidates are relevant to the
// query. The returned Reasons slice always has one entry per candidate.
func (m *Manager) FilterBookmarks(ctx context.Context, query string, candidates []model.Bookmark) (*FilterResult, error) {
	if len(candidates) == 0 {
		return &FilterResult{}, nil
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("당신은 검색 결과 필터링을 담당하는 전문가입니다. 주어진 검색어와 각 북마크의 관련성을 평가하여\n")
	sb.WriteString("검색어와 명확하게 관련 없는 북마크들을 제거해야 합니다.\n")
	sb.WriteString("각 북마크에 대해 다음을 고려하세요:\n")
	sb.WriteString("1. 북마크의 캡션이 검색어와 의미적으로 관련이 있는지\n")
	sb.WriteString("2. 북마크의 해시태그가 검색어의 주제나 개념과 일치하는지\n")
	sb.WriteString("관련성이 낮더라도 검색어와 일부 연관성이 있다면 포함해주세요.\n\n")
	sb.WriteString("검색어: " + query + "\n\n")
	sb.WriteString("북마크 목록:\n\n")
	for i, item := range candidates {
		sb.WriteString(fmt.Sprintf("[%d] 캡션: %s\n", i, m.truncate(item.Caption)))
		sb.WriteString("    해시태그: " + strings.Join(item.Hashtags, ", ") + "\n\n")
	}
	sb.WriteString("관련 있는 북마크의 인덱스를 선택하고, 모든 북마크에 대해 포함/제외 이유를 한 문장씩 작성하세요.\n")
	sb.WriteString("다음 JSON 형식으로만 답변하세요:\n")
	sb.WriteString(`{"bookmark_indexes": [0, 1, 3], "filter_reasons": ["이유0", "이유1", "이유2", "이유3"]}`)

	raw, err := m.gen.GenerateJSON(ctx, sb.String())
	if err != nil {
		return nil, err
	}
	parsed := &filterResponse{}
	if err := json.Unmarshal(extractJSON(raw), parsed); err != nil {
		return nil, fmt.Errorf("parse filter response: %w", err)
	}
	return &FilterResult{
		Indexes: clampIndexes(parsed.BookmarkIndexes, len(candidates), 0),
		Reasons: padReasons(parsed.FilterReasons, len(candidates)),
	}, nil
}

type recommendResponse struct {
	FeedIndexes      []int    `json:"feed_indexes"`
	RecommendReasons []string `json:"recommend_reasons"`
}

// Recommend picks up to five posts from the fetched feed that match the
// user's taste, inferred from query and saved history. An empty history
// switches the prompt to omakase mode.
func (m *Manager) Recommend(ctx context.Context, query string, history []model.Bookmark, feed []model.Bookmark) (*RecommendResult, error) {
	if len(feed) == 0 {
		return &RecommendResult{}, nil
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("당신은 사용자 취향에 맞는 인스타그램 게시물을 추천하는 전문가입니다.\n")
	if len(history) == 0 {
		sb.WriteString("사용자의 저장 기록이 없으므로, 최근 게시물 중 가장 매력적이고 다양한 게시물을 골라주세요.\n\n")
	} else {
		sb.WriteString("사용자가 저장해 둔 게시물을 참고하여 취향에 맞는 최근 게시물을 골라주세요.\n\n")
		sb.WriteString("사용자가 저장한 게시물:\n")
		for _, item := range history {
			sb.WriteString("- " + m.truncate(item.Caption) + "\n")
		}
		sb.WriteString("\n")
	}
	if query != "" {
		sb.WriteString("사용자의 최근 검색어: " + query + "\n\n")
	}
	sb.WriteString("최근 게시물 목록:\n\n")
	for i, item := range feed {
		sb.WriteString(fmt.Sprintf("[%d] 캡션: %s\n", i, m.truncate(item.Caption)))
		sb.WriteString("    해시태그: " + strings.Join(item.Hashtags, ", ") + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("최대 %d개의 게시물을 추천하고, 추천한 게시물마다 이유를 한 문장씩 작성하세요.\n", maxRecommendCount))
	sb.WriteString("다음 JSON 형식으로만 답변하세요:\n")
	sb.WriteString(`{"feed_indexes": [0, 2], "recommend_reasons": ["이유0", "이유2"]}`)

	raw, err := m.gen.GenerateJSON(ctx, sb.String())
	if err != nil {
		return nil, err
	}
	parsed := &recommendResponse{}
	if err := json.Unmarshal(extractJSON(raw), parsed); err != nil {
		return nil, fmt.Errorf("parse recommend response: %w", err)
	}
	indexes, reasons := clampIndexedReasons(parsed.FeedIndexes, parsed.RecommendReasons, len(feed), maxRecommendCount)
	return &RecommendResult{
		Indexes: indexes,
		Reasons: reasons,
	}, nil
}

// extractJSON pulls the outermost JSON object out of a model response,
// tolerating markdown fences and surrounding prose.
func extractJSON(raw string) []byte {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return []byte(strings.TrimSpace(text))
}

// clampIndexes drops out-of-range entries and duplicates, preserving
// order. A max of 0 means unlimited.
func clampIndexes(indexes []int, size int, max int) []int {
	seen := make(map[int]struct{}, len(indexes))
	result := make([]int, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= size {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		result = append(result, idx)
		if max > 0 && len(result) >= max {
			break
		}
	}
	return result
}

// clampIndexedReasons drops out-of-range entries and duplicates the way
// clampIndexes does, but keeps each surviving index paired with the
// reason written at its original position, so discarding an index also
// discards its reason. A max of 0 means unlimited.
func clampIndexedReasons(indexes []int, reasons []string, size int, max int) ([]int, []string) {
	seen := make(map[int]struct{}, len(indexes))
	keptIndexes := make([]int, 0, len(indexes))
	keptReasons := make([]string, 0, len(indexes))
	for pos, idx := range indexes {
		if idx < 0 || idx >= size {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		keptIndexes = append(keptIndexes, idx)
		reason := ""
		if pos < len(reasons) {
			reason = strings.TrimSpace(reasons[pos])
		}
		keptReasons = append(keptReasons, reason)
		if max > 0 && len(keptIndexes) >= max {
			break
		}
	}
	return keptIndexes, keptReasons
}

// padReasons forces the reason list to an exact length so callers can
// zip it positionally without bounds checks.
func padReasons(reasons []string, size int) []string {
	result := make([]string, size)
	for i := 0; i < size && i < len(reasons); i++ {
		result[i] = strings.TrimSpace(reasons[i])
	}
	return result
}
