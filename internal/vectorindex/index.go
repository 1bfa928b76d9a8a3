package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/gulguleee/instamark/internal/ai"
	"github.com/gulguleee/instamark/internal/model"
)

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"

	vectorsFile = "bookmark_vectors.json"
	mappingFile = "id_mapping.json"
)

type Hit struct {
	FeedID string
	Score  float32
}

type HealthReport struct {
	TotalVectors  int  `json:"total_vectors"`
	TotalMappings int  `json:"total_mappings"`
	Healthy       bool `json:"is_healthy"`
}

// Index is a flat inner-product index over caption embeddings. Slots are
// append only: deleting an entry removes the id mapping but leaves the
// vector in place, so slot count can drift above mapping count until a
// rebuild. Queries are L2-normalized, stored vectors are kept raw.
type Index struct {
	mu       sync.RWMutex
	embedder ai.IEmbedder
	dir      string
	dim      int
	vectors  [][]float32
	idToSlot map[string]int
	slotToID map[int]string
}

// New probes the embedder for its dimension and loads any persisted
// state under dir.
func New(ctx context.Context, embedder ai.IEmbedder, dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	sample, err := embedder.Embed(ctx, "sample text", TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("probe embedding dimension: %w", err)
	}
	idx := &Index{
		embedder: embedder,
		dir:      dir,
		dim:      len(sample),
		idToSlot: make(map[string]int),
		slotToID: make(map[int]string),
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) load() error {
	if data, err := os.ReadFile(filepath.Join(idx.dir, mappingFile)); err == nil {
		if err := json.Unmarshal(data, &idx.idToSlot); err != nil {
			return fmt.Errorf("decode id mapping: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	for id, slot := range idx.idToSlot {
		idx.slotToID[slot] = id
	}
	if data, err := os.ReadFile(filepath.Join(idx.dir, vectorsFile)); err == nil {
		if err := json.Unmarshal(data, &idx.vectors); err != nil {
			return fmt.Errorf("decode vectors: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

// save is called with the write lock held.
func (idx *Index) save() error {
	vecData, err := json.Marshal(idx.vectors)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(idx.dir, vectorsFile), vecData, 0o644); err != nil {
		return err
	}
	mapData, err := json.Marshal(idx.idToSlot)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(idx.dir, mappingFile), mapData, 0o644)
}

// UpsertBatch embeds captions one at a time and appends each vector as a
// new slot, remapping the feed id if it was already indexed. Posts
// without text and posts whose embedding fails are skipped; the batch
// keeps going and reports how many actually landed.
func (idx *Index) UpsertBatch(ctx context.Context, bookmarks []model.Bookmark) (int, error) {
	type pending struct {
		feedID string
		vector []float32
	}
	var items []pending
	for _, item := range bookmarks {
		if item.Caption == "" {
			continue
		}
		vector, err := idx.embedder.Embed(ctx, item.Caption, TaskTypeDocument)
		if err != nil {
			logutil.GetLogger(ctx).Warn("embed caption failed, skipping",
				zap.String("feed_id", item.FeedID), zap.Error(err))
			continue
		}
		items = append(items, pending{feedID: item.FeedID, vector: vector})
	}
	if len(items) == 0 {
		return 0, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, item := range items {
		if oldSlot, ok := idx.idToSlot[item.feedID]; ok {
			delete(idx.slotToID, oldSlot)
		}
		idx.vectors = append(idx.vectors, item.vector)
		slot := len(idx.vectors) - 1
		idx.idToSlot[item.feedID] = slot
		idx.slotToID[slot] = item.feedID
	}
	if err := idx.save(); err != nil {
		return len(items), fmt.Errorf("persist index: %w", err)
	}
	return len(items), nil
}

// Search embeds the query, normalizes it and scans every slot. Hits
// whose slot no longer maps to an id are dropped; when more than half
// of the top k are orphans a rebuild is suggested in the log.
func (idx *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	queryVec, err := idx.embedder.Embed(ctx, query, TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	normalize(queryVec)

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	total := len(idx.vectors)
	if total == 0 {
		return nil, nil
	}
	k := limit
	if k > total {
		k = total
	}
	if k <= 0 {
		return nil, nil
	}

	type slotScore struct {
		slot  int
		score float32
	}
	scores := make([]slotScore, total)
	for slot, vector := range idx.vectors {
		scores[slot] = slotScore{slot: slot, score: dot(queryVec, vector)}
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	hits := make([]Hit, 0, k)
	missing := 0
	for _, entry := range scores[:k] {
		feedID, ok := idx.slotToID[entry.slot]
		if !ok {
			missing++
			continue
		}
		hits = append(hits, Hit{FeedID: feedID, Score: entry.score})
	}
	if missing > 0 && missing > k/2 {
		logutil.GetLogger(ctx).Warn("most of the top results are orphaned slots, index rebuild recommended",
			zap.Int("missing", missing), zap.Int("k", k))
	}
	return hits, nil
}

// Delete removes only the id mapping. The vector stays in its slot until
// the next rebuild. Returns false when the id was never indexed.
func (idx *Index) Delete(ctx context.Context, feedID string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	slot, ok := idx.idToSlot[feedID]
	if !ok {
		return false, nil
	}
	delete(idx.idToSlot, feedID)
	delete(idx.slotToID, slot)
	if err := idx.save(); err != nil {
		return true, fmt.Errorf("persist index: %w", err)
	}
	return true, nil
}

// Rebuild throws the slot array away and re-embeds every post that has
// text, restoring a one to one slot/mapping relationship.
func (idx *Index) Rebuild(ctx context.Context, bookmarks []model.Bookmark) (int, error) {
	type pending struct {
		feedID string
		vector []float32
	}
	var items []pending
	for _, item := range bookmarks {
		if item.Caption == "" {
			continue
		}
		vector, err := idx.embedder.Embed(ctx, item.Caption, TaskTypeDocument)
		if err != nil {
			logutil.GetLogger(ctx).Warn("embed caption failed during rebuild, skipping",
				zap.String("feed_id", item.FeedID), zap.Error(err))
			continue
		}
		items = append(items, pending{feedID: item.FeedID, vector: vector})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = nil
	idx.idToSlot = make(map[string]int, len(items))
	idx.slotToID = make(map[int]string, len(items))
	for _, item := range items {
		idx.vectors = append(idx.vectors, item.vector)
		slot := len(idx.vectors) - 1
		idx.idToSlot[item.feedID] = slot
		idx.slotToID[slot] = item.feedID
	}
	if err := idx.save(); err != nil {
		return len(items), fmt.Errorf("persist index: %w", err)
	}
	return len(items), nil
}

func (idx *Index) Contains(feedID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.idToSlot[feedID]
	return ok
}

func (idx *Index) Health() HealthReport {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	report := HealthReport{
		TotalVectors:  len(idx.vectors),
		TotalMappings: len(idx.idToSlot),
	}
	report.Healthy = report.TotalVectors == report.TotalMappings
	return report
}

func (idx *Index) Dimension() int {
	return idx.dim
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
}
