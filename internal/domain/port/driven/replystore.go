package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// ReplyStore defines the driven port for mention and reply task persistence.
// Tasks are never deleted.
type ReplyStore interface {
	// InsertIfAbsent stores the mention and its pending task in one step.
	// It returns false without error when the mention id is already stored.
	InsertIfAbsent(ctx context.Context, mention model.Mention) (bool, error)
	// KnownMentionIDs returns the subset of ids already stored.
	KnownMentionIDs(ctx context.Context, ids []string) (map[string]struct{}, error)

	// GetByID returns ErrReplyNotFound if no task has the id.
	GetByID(ctx context.Context, id int64) (*model.ReplyTask, error)
	// List returns tasks newest first. An empty status lists all statuses.
	List(ctx context.Context, status model.ReplyStatus, limit int) ([]model.ReplyTask, error)
	// ListPendingWithoutSuggestion returns the oldest pending tasks that have
	// not been through generation yet.
	ListPendingWithoutSuggestion(ctx context.Context, limit int) ([]model.ReplyTask, error)

	// SaveSuggestion records a generation result on a pending task.
	SaveSuggestion(ctx context.Context, id int64, suggestion string, confidence float64) error
	// MarkSkipped records a skip result and moves the task to skipped.
	MarkSkipped(ctx context.Context, id int64, suggestion string, confidence float64) error
	// MarkSent moves a pending or approved task to status (sent or auto_sent)
	// and records the dispatched text. Returns ErrStatusChanged if the task
	// was no longer pending or approved.
	MarkSent(ctx context.Context, id int64, status model.ReplyStatus, finalReply, sentThreadID string, sentAt time.Time) error
	// UpdateStatus moves a task from one of the from statuses to status.
	// Returns ErrStatusChanged if the current status is not in from.
	UpdateStatus(ctx context.Context, id int64, from []model.ReplyStatus, status model.ReplyStatus) error
	// UpdateFinalReply stores a human-edited reply text.
	UpdateFinalReply(ctx context.Context, id int64, finalReply string) error

	// CountSentSince counts tasks in statuses whose sent_at is at or after since.
	CountSentSince(ctx context.Context, statuses []model.ReplyStatus, since time.Time) (int, error)
}
