package langchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainforge/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

type fakeVectorStore struct {
	added []schema.Document
	docs  []schema.Document
	opts  vectorstores.Options
	k     int
}

func (f *fakeVectorStore) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	f.added = append(f.added, docs...)
	return make([]string, len(docs)), nil
}

func (f *fakeVectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	f.k = numDocuments
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.docs, nil
}

func TestStore_StoreAddsChunkMetadata(t *testing.T) {
	fake := &fakeVectorStore{}
	s := New(fake, nil)

	err := s.Store(context.Background(), []entity.Chunk{{
		ID:         "doc_0",
		DocumentID: "doc",
		Content:    "hello",
		Index:      0,
		Metadata:   map[string]any{"source": "notes.txt"},
	}})
	require.NoError(t, err)

	require.Len(t, fake.added, 1)
	assert.Equal(t, "hello", fake.added[0].PageContent)
	assert.Equal(t, "doc_0", fake.added[0].Metadata["chunk_id"])
	assert.Equal(t, "doc", fake.added[0].Metadata["document_id"])
	assert.Equal(t, "notes.txt", fake.added[0].Metadata["source"])
}

func TestStore_Search(t *testing.T) {
	fake := &fakeVectorStore{docs: []schema.Document{
		{PageContent: "a", Score: 0.9, Metadata: map[string]any{"chunk_id": "x_0"}},
		{PageContent: "b", Score: 0.4, Metadata: map[string]any{"chunk_id": "x_1"}},
	}}
	s := New(fake, nil)

	results, err := s.Search(context.Background(), "q", 3, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 3, fake.k)
	assert.InDelta(t, 0.5, fake.opts.ScoreThreshold, 1e-6)
	require.Len(t, results, 1)
	assert.Equal(t, "x_0", results[0].ID)
	assert.Equal(t, "a", results[0].Text)
}

func TestStore_DeleteWithoutDeleter(t *testing.T) {
	s := New(&fakeVectorStore{}, nil)
	assert.NoError(t, s.Delete(context.Background(), nil))
	assert.Error(t, s.Delete(context.Background(), []string{"x"}))
}

func TestQdrantDeleter(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/delete", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	s, err := NewQdrant(QdrantConfig{URL: srv.URL, CollectionName: "docs", APIKey: "key"}, noopEmbedder{})
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), []string{"a_0", "a_1"}))
	filter := got["filter"].(map[string]any)
	must := filter["must"].([]any)
	cond := must[0].(map[string]any)
	assert.Equal(t, "chunk_id", cond["key"])
	assert.Equal(t, []any{"a_0", "a_1"}, cond["match"].(map[string]any)["any"])
}

type noopEmbedder struct{}

func (noopEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (noopEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}
