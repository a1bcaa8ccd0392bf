package entity

import "github.com/google/uuid"

type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Source   string         `json:"source"`
}

func NewDocument(content, source string) *Document {
	return &Document{
		ID:       uuid.NewString(),
		Content:  content,
		Metadata: map[string]any{},
		Source:   source,
	}
}

func (d *Document) WithMetadata(metadata map[string]any) *Document {
	d.Metadata = metadata
	return d
}

type Chunk struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Index      int            `json:"chunk_index"`
	Metadata   map[string]any `json:"metadata"`
}

type SearchResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}
