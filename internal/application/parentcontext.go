package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// ParentContextResolver finds the text of the post a mention replies to.
type ParentContextResolver struct {
	threads driven.ThreadsClient
	posts   driven.PostStore
}

// NewParentContextResolver creates a ParentContextResolver.
func NewParentContextResolver(threads driven.ThreadsClient, posts driven.PostStore) *ParentContextResolver {
	return &ParentContextResolver{threads: threads, posts: posts}
}

// Resolve returns the parent post text for a mention, or "" when it cannot be
// determined. Lookup is best-effort: every failure is logged and yields "".
// The local post table is consulted before asking the platform for the text.
func (r *ParentContextResolver) Resolve(ctx context.Context, mentionID string) string {
	parentID, err := r.threads.GetRepliedTo(ctx, mentionID)
	if err != nil {
		slog.Warn("parent lookup failed", "mention_id", mentionID, "error", err)
		return ""
	}
	if parentID == "" {
		return ""
	}

	if r.posts != nil {
		content, err := r.posts.GetContentByThreadID(ctx, parentID)
		if err != nil {
			slog.Warn("local parent post lookup failed", "parent_id", parentID, "error", err)
		} else if content != "" {
			return content
		}
	}

	text, err := r.threads.GetText(ctx, parentID)
	if err != nil {
		slog.Warn("parent text fetch failed", "parent_id", parentID, "error", err)
		return ""
	}
	return text
}
