package output

import (
	"context"

	"chainforge/internal/domain/entity"
)

// RetrieverPort builds a prompt context for a query. The result is a list of
// "[Context N]\n<text>\n" blocks joined by a newline, in rank order.
type RetrieverPort interface {
	BuildContext(ctx context.Context, query string) (string, error)
}

type VectorStorePort interface {
	Store(ctx context.Context, chunks []entity.Chunk) error
	Search(ctx context.Context, query string, topK int, threshold float32) ([]entity.SearchResult, error)
	Delete(ctx context.Context, ids []string) error
}
