// Package rag indexes documents into a vector store and answers queries from
// the retrieved context.
package rag

import (
	"context"
	"fmt"
	"strings"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
)

// Chunker splits a document into storable chunks.
type Chunker interface {
	Chunk(doc *entity.Document) ([]entity.Chunk, error)
}

type RetrieverConfig struct {
	TopK      int
	Threshold float32
}

func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{TopK: 5, Threshold: 0.7}
}

var _ output.RetrieverPort = (*Retriever)(nil)

type Retriever struct {
	store   output.VectorStorePort
	chunker Chunker
	logger  output.LoggerPort
	cfg     RetrieverConfig
}

func NewRetriever(store output.VectorStorePort, chunker Chunker, logger output.LoggerPort, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrieverConfig().TopK
	}
	return &Retriever{
		store:   store,
		chunker: chunker,
		logger:  logger,
		cfg:     cfg,
	}
}

// Index chunks doc and stores every chunk. It returns the stored chunk count.
func (r *Retriever) Index(ctx context.Context, doc *entity.Document) (int, error) {
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return 0, fmt.Errorf("%w: document content is empty", entity.ErrInvalidInput)
	}

	chunks, err := r.chunker.Chunk(doc)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := r.store.Store(ctx, chunks); err != nil {
		return 0, entity.ProviderFailure("vector store", err)
	}

	r.logger.Info("Indexed document", "document_id", doc.ID, "source", doc.Source, "chunks", len(chunks))
	return len(chunks), nil
}

// IndexAll indexes docs in order and stops at the first failure.
func (r *Retriever) IndexAll(ctx context.Context, docs []*entity.Document) (int, error) {
	total := 0
	for _, doc := range docs {
		n, err := r.Index(ctx, doc)
		if err != nil {
			return total, fmt.Errorf("index %s: %w", doc.Source, err)
		}
		total += n
	}
	return total, nil
}

// Search returns up to topK results scoring at least the configured
// threshold, best first. A non-positive topK uses the configured one.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]entity.SearchResult, error) {
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	results, err := r.store.Search(ctx, query, topK, r.cfg.Threshold)
	if err != nil {
		return nil, entity.ProviderFailure("vector store", err)
	}

	kept := results[:0]
	for _, res := range results {
		if res.Score >= r.cfg.Threshold {
			kept = append(kept, res)
		}
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept, nil
}

// Retrieve returns the texts of Search in rank order.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	results, err := r.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	return texts, nil
}

func (r *Retriever) BuildContext(ctx context.Context, query string) (string, error) {
	texts, err := r.Retrieve(ctx, query, 0)
	if err != nil {
		return "", err
	}
	return FormatContext(texts), nil
}

// FormatContext renders texts as numbered "[Context N]" blocks.
func FormatContext(texts []string) string {
	blocks := make([]string, len(texts))
	for i, text := range texts {
		blocks[i] = fmt.Sprintf("[Context %d]\n%s\n", i+1, text)
	}
	return strings.Join(blocks, "\n")
}
