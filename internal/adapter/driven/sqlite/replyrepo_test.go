package sqlite

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// newTestReplyRepo returns a repo whose clock advances one second per call so
// created_at ordering is deterministic.
func newTestReplyRepo(t *testing.T) *ReplyRepo {
	t.Helper()
	repo := NewReplyRepo(setupTestDB(t))
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func insertTask(t *testing.T, repo *ReplyRepo, id string) *model.ReplyTask {
	t.Helper()
	ctx := context.Background()

	created, err := repo.InsertIfAbsent(ctx, makeMention(id, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.True(t, created)

	tasks, err := repo.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, id, tasks[0].MentionID)
	return &tasks[0]
}

func TestReplyRepo_InsertIfAbsent(t *testing.T) {
	repo := newTestReplyRepo(t)
	ctx := context.Background()
	mentionedAt := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

	created, err := repo.InsertIfAbsent(ctx, makeMention("m1", mentionedAt))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.InsertIfAbsent(ctx, makeMention("m1", mentionedAt))
	require.NoError(t, err)
	assert.False(t, created, "second insert of the same mention is a no-op")

	tasks, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, "m1", task.MentionID)
	assert.Equal(t, model.ReplyStatusPending, task.Status)
	assert.Equal(t, "comment m1", task.MentionContent)
	assert.Equal(t, "fan", task.MentionAuthor)
	assert.Nil(t, task.SuggestedReply)
	assert.Nil(t, task.ConfidenceScore)
	assert.Nil(t, task.SentAt)
	assert.False(t, task.CreatedAt.IsZero())
	assert.NoError(t, task.Validate())
}

func TestReplyRepo_InsertIfAbsent_RejectsEmptyID(t *testing.T) {
	repo := newTestReplyRepo(t)

	_, err := repo.InsertIfAbsent(context.Background(), model.Mention{Content: "x"})

	assert.Error(t, err)
}

func TestReplyRepo_KnownMentionIDs(t *testing.T) {
	repo := newTestReplyRepo(t)
	insertTask(t, repo, "m1")
	insertTask(t, repo, "m2")

	known, err := repo.KnownMentionIDs(context.Background(), []string{"m1", "m3", "m2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"m1": {}, "m2": {}}, known)

	known, err = repo.KnownMentionIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestReplyRepo_GetByID_NotFound(t *testing.T) {
	repo := newTestReplyRepo(t)

	_, err := repo.GetByID(context.Background(), 42)

	assert.ErrorIs(t, err, driven.ErrReplyNotFound)
}

func TestReplyRepo_GetByID_RejectsInvalidRow(t *testing.T) {
	repo := newTestReplyRepo(t)
	ctx := context.Background()

	_, err := repo.db.Writer.ExecContext(ctx,
		`INSERT INTO mentions (thread_id, discovered_at) VALUES ('', '2025-06-01T09:00:00Z')`)
	require.NoError(t, err)
	res, err := repo.db.Writer.ExecContext(ctx,
		`INSERT INTO reply_tasks (mention_id, status, created_at, updated_at)
		 VALUES ('', 'pending', '2025-06-01T09:00:00Z', '2025-06-01T09:00:00Z')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, id)
	require.Error(t, err)
	assert.ErrorContains(t, err, "mention id is required")
	assert.NotErrorIs(t, err, driven.ErrReplyNotFound)
}

func TestReplyRepo_SaveSuggestionAndListPending(t *testing.T) {
	repo := newTestReplyRepo(t)
	ctx := context.Background()
	first := insertTask(t, repo, "m1")
	second := insertTask(t, repo, "m2")
	insertTask(t, repo, "m3")

	pending, err := repo.ListPendingWithoutSuggestion(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "m1", pending[0].MentionID, "oldest first")
	assert.Equal(t, "m2", pending[1].MentionID)

	require.NoError(t, repo.SaveSuggestion(ctx, first.ID, "Thanks!", 0.8))
	require.NoError(t, repo.SaveSuggestion(ctx, second.ID, "", 0))

	pending, err = repo.ListPendingWithoutSuggestion(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m3", pending[0].MentionID)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SuggestedReply)
	assert.Equal(t, "Thanks!", *got.SuggestedReply)
	require.NotNil(t, got.ConfidenceScore)
	assert.InDelta(t, 0.8, *got.ConfidenceScore, 1e-9)

	got, err = repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SuggestedReply, "an empty suggestion still marks the task as generated")
	assert.Equal(t, "", *got.SuggestedReply)
}

func TestReplyRepo_MarkSkipped(t *testing.T) {
	repo := newTestReplyRepo(t)
	ctx := context.Background()
	task := insertTask(t, repo, "m1")

	require.NoError(t, repo.MarkSkipped(ctx, task.ID, "[SPAM/OFF-TOPIC]", 0))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReplyStatusSkipped, got.Status)

	err = repo.SaveSuggestion(ctx, task.ID, "late", 0.9)
	assert.ErrorIs(t, err, driven.ErrStatusChanged)
}

func TestReplyRepo_MarkSent(t *testing.T) {
	repo := newTestReplyRepo(t)
	ctx := context.Background()
	task := insertTask(t, repo, "m1")
	sentAt := time.Date(2025, 6, 1, 10, 0, 0, 123456000, time.UTC)

	require.NoError(t, repo.MarkSent(ctx, task.ID, model.ReplyStatusAutoSent, "Hello", "t-99", sentAt))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReplyStatusAutoSent, got.Status)
	assert.Equal(t, "Hello", *got.FinalReply)
	assert.Equal(t, "t-99", *got.SentThreadID)
	require.NotNil(t, got.SentAt)
	assert.True(t, sentAt.Equal(*got.SentAt))
	assert.NoError(t, got.Validate())

	err = repo.MarkSent(ctx, task.ID, model.ReplyStatusSent, "Again", "t-100", sentAt)
	assert.ErrorIs(t, err, driven.ErrStatusChanged, "a sent task cannot be sent twice")

	err = repo.MarkSent(ctx, 999, model.ReplyStatusSent, "x", "t", sentAt)
	assert.ErrorIs(t, err, driven.ErrReplyNotFound)
}

func TestReplyRepo_MarkSent_RejectsNonSentStatus(t *testing.T) {
	repo := newTestReplyRepo(t)
	task := insertTask(t, repo, "m1")

	err := repo.MarkSent(context.Background(), task.ID, model.ReplyStatusApproved, "x", "t", time.Now())

	assert.Error(t, err)
}

func TestReplyRepo_UpdateStatusAndFinalReply(t *testing.T) {
	repo := newTestReplyRepo(t)
	ctx := context.Background()
	task := insertTask(t, repo, "m1")

	require.NoError(t, repo.UpdateFinalReply(ctx, task.ID, "edited"))
	require.NoError(t, repo.UpdateStatus(ctx, task.ID,
		[]model.ReplyStatus{model.ReplyStatusPending}, model.ReplyStatusApproved))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReplyStatusApproved, got.Status)
	assert.Equal(t, "edited", *got.FinalReply)

	err = repo.UpdateStatus(ctx, task.ID, []model.ReplyStatus{model.ReplyStatusPending}, model.ReplyStatusApproved)
	assert.ErrorIs(t, err, driven.ErrStatusChanged)

	require.NoError(t, repo.MarkSent(ctx, task.ID, model.ReplyStatusSent, "edited", "t-1", time.Now()))
	err = repo.UpdateFinalReply(ctx, task.ID, "too late")
	assert.ErrorIs(t, err, driven.ErrStatusChanged)
}

func TestReplyRepo_ListByStatus(t *testing.T) {
	repo := newTestReplyRepo(t)
	ctx := context.Background()
	first := insertTask(t, repo, "m1")
	insertTask(t, repo, "m2")
	third := insertTask(t, repo, "m3")
	require.NoError(t, repo.MarkSkipped(ctx, first.ID, "[SPAM/OFF-TOPIC]", 0))

	all, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID, "newest first")

	skipped, err := repo.List(ctx, model.ReplyStatusSkipped, 10)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, first.ID, skipped[0].ID)

	limited, err := repo.List(ctx, model.ReplyStatusPending, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReplyRepo_CountSentSince(t *testing.T) {
	repo := newTestReplyRepo(t)
	ctx := context.Background()
	kyiv, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)

	// Midnight in Kyiv on June 2 is 21:00 UTC on June 1.
	startOfDay := time.Date(2025, 6, 2, 0, 0, 0, 0, kyiv)

	yesterday := insertTask(t, repo, "m1")
	justAfter := insertTask(t, repo, "m2")
	manual := insertTask(t, repo, "m3")
	insertTask(t, repo, "m4")

	require.NoError(t, repo.MarkSent(ctx, yesterday.ID, model.ReplyStatusSent, "a", "t1", startOfDay.Add(-time.Second)))
	require.NoError(t, repo.MarkSent(ctx, justAfter.ID, model.ReplyStatusAutoSent, "b", "t2", startOfDay))
	require.NoError(t, repo.MarkSent(ctx, manual.ID, model.ReplyStatusSent, "c", "t3", startOfDay.Add(3*time.Hour)))

	count, err := repo.CountSentSince(ctx, model.SentStatuses, startOfDay)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountSentSince(ctx, []model.ReplyStatus{model.ReplyStatusAutoSent}, startOfDay)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
