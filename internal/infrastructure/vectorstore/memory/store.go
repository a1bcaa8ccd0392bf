package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"

	"github.com/tmc/langchaingo/embeddings"
)

var _ output.VectorStorePort = (*Store)(nil)

type record struct {
	chunk  entity.Chunk
	vector []float32
}

// Store keeps chunk embeddings in memory and ranks them by cosine
// similarity. Suitable for development and tests; contents are lost on
// restart.
type Store struct {
	embedder embeddings.Embedder

	mu      sync.RWMutex
	records map[string]record
	order   []string
}

func New(embedder embeddings.Embedder) *Store {
	return &Store{
		embedder: embedder,
		records:  make(map[string]record),
	}
}

func (s *Store) Store(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		if _, exists := s.records[c.ID]; !exists {
			s.order = append(s.order, c.ID)
		}
		s.records[c.ID] = record{chunk: c, vector: vectors[i]}
	}
	return nil
}

// Search returns at most topK chunks whose similarity to query is at least
// threshold, best first. Ties keep insertion order.
func (s *Store) Search(ctx context.Context, query string, topK int, threshold float32) ([]entity.SearchResult, error) {
	if topK <= 0 {
		return []entity.SearchResult{}, nil
	}
	qv, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	results := make([]entity.SearchResult, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		score := cosine(qv, rec.vector)
		if score < threshold {
			continue
		}
		results = append(results, entity.SearchResult{
			ID:       rec.chunk.ID,
			Text:     rec.chunk.Content,
			Score:    score,
			Metadata: copyMetadata(rec.chunk.Metadata),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			remove[id] = struct{}{}
			delete(s.records, id)
		}
	}
	if len(remove) == 0 {
		return nil
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, gone := remove[id]; !gone {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// cosine returns 0 for mismatched or zero-length vectors.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
