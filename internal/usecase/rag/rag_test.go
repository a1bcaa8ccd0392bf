package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chainforge/internal/domain/entity"
	"chainforge/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineChunker makes one chunk per non-empty line.
type lineChunker struct{}

func (lineChunker) Chunk(doc *entity.Document) ([]entity.Chunk, error) {
	var chunks []entity.Chunk
	for _, line := range strings.Split(doc.Content, "\n") {
		if line == "" {
			continue
		}
		i := len(chunks)
		chunks = append(chunks, entity.Chunk{
			ID:         fmt.Sprintf("%s_%d", doc.ID, i),
			DocumentID: doc.ID,
			Content:    line,
			Index:      i,
			Metadata:   map[string]any{"source": doc.Source, "document_id": doc.ID, "chunk_index": i},
		})
	}
	return chunks, nil
}

// wordStore scores a chunk by the share of query words it contains.
type wordStore struct {
	mu        sync.Mutex
	chunks    []entity.Chunk
	storeErr  error
	searchErr error
}

func (s *wordStore) Store(ctx context.Context, chunks []entity.Chunk) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *wordStore) Search(ctx context.Context, query string, topK int, threshold float32) ([]entity.SearchResult, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	words := strings.Fields(strings.ToLower(query))
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.SearchResult
	for _, c := range s.chunks {
		hits := 0
		for _, w := range words {
			if strings.Contains(strings.ToLower(c.Content), w) {
				hits++
			}
		}
		out = append(out, entity.SearchResult{
			ID:       c.ID,
			Text:     c.Content,
			Score:    float32(hits) / float32(len(words)),
			Metadata: c.Metadata,
		})
	}
	// insertion sort keeps ties in insertion order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *wordStore) Delete(ctx context.Context, ids []string) error { return nil }

type echoLLM struct {
	prompt string
	err    error
	delay  time.Duration
}

func (l *echoLLM) Generate(ctx context.Context, req *entity.LLMRequest) (*entity.LLMResponse, error) {
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	l.prompt = req.Prompt
	return &entity.LLMResponse{
		Text:       "answer",
		TokenUsage: entity.TokenUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	}, nil
}

func (l *echoLLM) CountTokens(text string) int { return len(text) }

func newIndexed(t *testing.T, threshold float32) (*Retriever, *wordStore) {
	t.Helper()
	store := &wordStore{}
	r := NewRetriever(store, lineChunker{}, logger.NewNop(), RetrieverConfig{TopK: 2, Threshold: threshold})

	n, err := r.IndexAll(context.Background(), []*entity.Document{
		entity.NewDocument("go has goroutines\ngo has channels", "go.md"),
		entity.NewDocument("rust has ownership", "rust.md"),
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return r, store
}

func TestRetriever_Index(t *testing.T) {
	store := &wordStore{}
	r := NewRetriever(store, lineChunker{}, logger.NewNop(), DefaultRetrieverConfig())

	doc := entity.NewDocument("a\nb", "src")
	n, err := r.Index(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.chunks, 2)
	assert.Equal(t, doc.ID+"_1", store.chunks[1].ID)
	assert.Equal(t, "src", store.chunks[1].Metadata["source"])
}

func TestRetriever_IndexEmpty(t *testing.T) {
	r := NewRetriever(&wordStore{}, lineChunker{}, logger.NewNop(), DefaultRetrieverConfig())
	_, err := r.Index(context.Background(), entity.NewDocument("   ", "x"))
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestRetriever_IndexStoreError(t *testing.T) {
	cause := errors.New("qdrant down")
	r := NewRetriever(&wordStore{storeErr: cause}, lineChunker{}, logger.NewNop(), DefaultRetrieverConfig())
	_, err := r.Index(context.Background(), entity.NewDocument("a", "x"))
	assert.ErrorIs(t, err, entity.ErrProvider)
	assert.ErrorIs(t, err, cause)
}

func TestRetriever_SearchHonoursTopKAndThreshold(t *testing.T) {
	r, _ := newIndexed(t, 0.5)

	results, err := r.Search(context.Background(), "go channels", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "go has channels", results[0].Text)
	assert.Equal(t, float32(1), results[0].Score)
	assert.Equal(t, "go has goroutines", results[1].Text)

	results, err = r.Search(context.Background(), "rust ownership", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rust has ownership", results[0].Text)
}

func TestRetriever_BuildContext(t *testing.T) {
	r, _ := newIndexed(t, 0.5)

	ctxText, err := r.BuildContext(context.Background(), "go channels")
	require.NoError(t, err)
	assert.Equal(t, "[Context 1]\ngo has channels\n\n[Context 2]\ngo has goroutines\n", ctxText)

	ctxText, err = r.BuildContext(context.Background(), "python")
	require.NoError(t, err)
	assert.Empty(t, ctxText)
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t, "[Context 1]\na\n", FormatContext([]string{"a"}))
}

func TestQueryService_Query(t *testing.T) {
	r, _ := newIndexed(t, 0.5)
	llm := &echoLLM{}
	svc := NewQueryService(r, llm, logger.NewNop(), time.Second)

	res, err := svc.Query(context.Background(), "go channels", 0)
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Answer)
	assert.Len(t, res.Contexts, 2)
	assert.Equal(t, []string{"go.md"}, res.Sources)
	assert.Equal(t, 12, res.Tokens.TotalTokens)
	assert.Contains(t, llm.prompt, "[Context 1]\ngo has channels\n")
	assert.True(t, strings.HasSuffix(llm.prompt, "Question: go channels\nAnswer:"))
}

func TestQueryService_Errors(t *testing.T) {
	r, store := newIndexed(t, 0.5)

	_, err := NewQueryService(r, &echoLLM{}, logger.NewNop(), time.Second).Query(context.Background(), " ", 0)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	cause := errors.New("boom")
	_, err = NewQueryService(r, &echoLLM{err: cause}, logger.NewNop(), time.Second).Query(context.Background(), "go", 0)
	assert.ErrorIs(t, err, entity.ErrProvider)
	assert.ErrorIs(t, err, cause)

	_, err = NewQueryService(r, &echoLLM{delay: time.Second}, logger.NewNop(), 20*time.Millisecond).Query(context.Background(), "go", 0)
	assert.ErrorIs(t, err, entity.ErrTimeout)

	store.searchErr = cause
	_, err = NewQueryService(r, &echoLLM{}, logger.NewNop(), time.Second).Query(context.Background(), "go", 0)
	assert.ErrorIs(t, err, entity.ErrProvider)
}
