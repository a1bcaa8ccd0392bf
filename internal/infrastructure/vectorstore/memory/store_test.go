package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chainforge/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps text onto three axes: go, rust, cooking.
type keywordEmbedder struct {
	err error
}

func (e keywordEmbedder) vector(text string) []float32 {
	text = strings.ToLower(text)
	v := []float32{0, 0, 0}
	for i, kw := range []string{"go", "rust", "cook"} {
		v[i] = float32(strings.Count(text, kw))
	}
	return v
}

func (e keywordEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e keywordEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func chunks() []entity.Chunk {
	return []entity.Chunk{
		{ID: "d_0", DocumentID: "d", Content: "go go go", Metadata: map[string]any{"chunk_index": 0}},
		{ID: "d_1", DocumentID: "d", Content: "rust and go", Metadata: map[string]any{"chunk_index": 1}},
		{ID: "d_2", DocumentID: "d", Content: "cooking pasta", Metadata: map[string]any{"chunk_index": 2}},
	}
}

func TestStore_SearchRanksByCosine(t *testing.T) {
	s := New(keywordEmbedder{})
	require.NoError(t, s.Store(context.Background(), chunks()))

	results, err := s.Search(context.Background(), "go", 5, 0.5)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "d_0", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "d_1", results[1].ID)
	assert.Equal(t, 1, results[1].Metadata["chunk_index"])
}

func TestStore_TopKAndThreshold(t *testing.T) {
	s := New(keywordEmbedder{})
	require.NoError(t, s.Store(context.Background(), chunks()))

	results, err := s.Search(context.Background(), "go", 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d_0", results[0].ID)

	results, err = s.Search(context.Background(), "go", 5, 0.99)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = s.Search(context.Background(), "go", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_Delete(t *testing.T) {
	s := New(keywordEmbedder{})
	require.NoError(t, s.Store(context.Background(), chunks()))

	require.NoError(t, s.Delete(context.Background(), []string{"d_0", "missing"}))
	assert.Equal(t, 2, s.Len())

	results, err := s.Search(context.Background(), "go", 5, 0.1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d_1", results[0].ID)
}

func TestStore_ReplacesSameID(t *testing.T) {
	s := New(keywordEmbedder{})
	require.NoError(t, s.Store(context.Background(), chunks()))
	require.NoError(t, s.Store(context.Background(), []entity.Chunk{{ID: "d_2", Content: "cook cook"}}))

	assert.Equal(t, 3, s.Len())
	results, err := s.Search(context.Background(), "cook", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cook cook", results[0].Text)
}

func TestStore_EmbedderErrors(t *testing.T) {
	boom := errors.New("embedder down")
	s := New(keywordEmbedder{err: boom})

	assert.ErrorIs(t, s.Store(context.Background(), chunks()), boom)
	_, err := s.Search(context.Background(), "go", 3, 0)
	assert.ErrorIs(t, err, boom)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
