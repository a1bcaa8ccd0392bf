package output

import (
	"context"

	"chainforge/internal/domain/entity"
)

type SessionStore interface {
	AddMessage(ctx context.Context, sessionID string, msg entity.Message) error
	// Messages returns the most recent limit messages, oldest first. A
	// non-positive limit returns all of them.
	Messages(ctx context.Context, sessionID string, limit int) ([]entity.Message, error)
	Clear(ctx context.Context, sessionID string) error
	Context(ctx context.Context, sessionID string) (string, error)
}
