package rag

import (
	"fmt"

	"chainforge/internal/domain/entity"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker splits documents recursively on paragraph, line and word
// boundaries so that each chunk stays within the configured size.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive", entity.ErrInvalidInput)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d)", entity.ErrInvalidInput, chunkSize)
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}, nil
}

// Chunk returns the chunks of doc, ids "<docID>_<index>". Each chunk carries
// the document metadata plus document_id, chunk_index and source.
func (c *Chunker) Chunk(doc *entity.Document) ([]entity.Chunk, error) {
	parts, err := c.splitter.SplitText(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("split document %s: %w", doc.ID, err)
	}

	chunks := make([]entity.Chunk, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		index := len(chunks)
		meta := make(map[string]any, len(doc.Metadata)+3)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta["document_id"] = doc.ID
		meta["chunk_index"] = index
		meta["source"] = doc.Source

		chunks = append(chunks, entity.Chunk{
			ID:         fmt.Sprintf("%s_%d", doc.ID, index),
			DocumentID: doc.ID,
			Content:    part,
			Index:      index,
			Metadata:   meta,
		})
	}
	return chunks, nil
}
