package driven

import (
	"context"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// ThreadsClient defines the driven port for the Threads Graph API.
//
// Replies to the account's own replies (comments it left on other people's
// posts) are not readable through the platform API: ListReplies on such an
// id returns nothing. Only replies under the account's own top-level threads
// are reachable.
type ThreadsClient interface {
	// ListOwnThreads returns the account's most recent top-level threads.
	ListOwnThreads(ctx context.Context, limit int) ([]model.OwnThread, error)
	// ListReplies returns the direct replies to a thread.
	ListReplies(ctx context.Context, threadID string) ([]model.ReplyRecord, error)
	// ListConversation returns the flattened conversation under a thread.
	ListConversation(ctx context.Context, threadID string) ([]model.ReplyRecord, error)
	// GetRepliedTo returns the id of the thread the given reply answers,
	// or "" when the platform reports none.
	GetRepliedTo(ctx context.Context, threadID string) (string, error)
	// GetText returns the text of a thread.
	GetText(ctx context.Context, threadID string) (string, error)
	// PostReply publishes text as a reply to parentID and returns the new
	// thread id.
	PostReply(ctx context.Context, parentID, text string) (string, error)
}
