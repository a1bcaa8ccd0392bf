package langchain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/qdrant"
)

var _ output.VectorStorePort = (*Store)(nil)

const (
	chunkIDKey    = "chunk_id"
	documentIDKey = "document_id"
	chunkIndexKey = "chunk_index"
)

// Deleter removes stored chunks by id. Not every langchaingo store supports
// deletion, so it is optional.
type Deleter interface {
	Delete(ctx context.Context, ids []string) error
}

// Store adapts a langchaingo vector store. Chunk ids travel in the
// document metadata under chunk_id.
type Store struct {
	store   vectorstores.VectorStore
	deleter Deleter
}

func New(store vectorstores.VectorStore, deleter Deleter) *Store {
	return &Store{store: store, deleter: deleter}
}

type QdrantConfig struct {
	URL            string
	CollectionName string
	APIKey         string
}

func NewQdrant(cfg QdrantConfig, embedder embeddings.Embedder) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}
	store, err := qdrant.New(
		qdrant.WithURL(*u),
		qdrant.WithCollectionName(cfg.CollectionName),
		qdrant.WithEmbedder(embedder),
		qdrant.WithAPIKey(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("create qdrant store: %w", err)
	}
	return New(store, &qdrantDeleter{url: *u, collection: cfg.CollectionName, apiKey: cfg.APIKey}), nil
}

func (s *Store) Store(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]schema.Document, len(chunks))
	for i, c := range chunks {
		meta := make(map[string]any, len(c.Metadata)+3)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta[chunkIDKey] = c.ID
		meta[documentIDKey] = c.DocumentID
		meta[chunkIndexKey] = c.Index
		docs[i] = schema.Document{PageContent: c.Content, Metadata: meta}
	}
	if _, err := s.store.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query string, topK int, threshold float32) ([]entity.SearchResult, error) {
	if topK <= 0 {
		return []entity.SearchResult{}, nil
	}
	var opts []vectorstores.Option
	if threshold > 0 {
		opts = append(opts, vectorstores.WithScoreThreshold(threshold))
	}
	docs, err := s.store.SimilaritySearch(ctx, query, topK, opts...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]entity.SearchResult, 0, len(docs))
	for _, doc := range docs {
		if doc.Score < threshold {
			continue
		}
		id, _ := doc.Metadata[chunkIDKey].(string)
		results = append(results, entity.SearchResult{
			ID:       id,
			Text:     doc.PageContent,
			Score:    doc.Score,
			Metadata: doc.Metadata,
		})
	}
	return results, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if s.deleter == nil {
		return fmt.Errorf("vector store does not support deletion")
	}
	return s.deleter.Delete(ctx, ids)
}

type qdrantDeleter struct {
	url        url.URL
	collection string
	apiKey     string
}

// Delete removes points whose chunk_id payload matches one of ids.
func (d *qdrantDeleter) Delete(ctx context.Context, ids []string) error {
	endpoint := d.url.JoinPath("collections", d.collection, "points", "delete")
	payload := map[string]any{
		"filter": map[string]any{
			"must": []any{
				map[string]any{
					"key":   chunkIDKey,
					"match": map[string]any{"any": ids},
				},
			},
		},
	}
	body, status, err := qdrant.DoRequest(ctx, *endpoint, d.apiKey, http.MethodPost, payload)
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	defer body.Close()
	if status != http.StatusOK {
		return fmt.Errorf("delete points: qdrant returned status %d", status)
	}
	return nil
}
