package driven

import (
	"context"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// PostStore defines the driven port for the account's published posts.
// GetContentByThreadID returns ("", nil) when the thread is unknown.
type PostStore interface {
	Upsert(ctx context.Context, post model.Post) error
	GetContentByThreadID(ctx context.Context, threadID string) (string, error)
}
