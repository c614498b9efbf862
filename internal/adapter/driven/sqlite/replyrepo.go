package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReplyStore = (*ReplyRepo)(nil)

// ReplyRepo is the SQLite implementation of the ReplyStore port interface.
// It owns both the mentions and reply_tasks tables.
type ReplyRepo struct {
	db  *DB
	now func() time.Time
}

// NewReplyRepo creates a new ReplyRepo backed by the given DB.
func NewReplyRepo(db *DB) *ReplyRepo {
	return &ReplyRepo{db: db, now: time.Now}
}

const selectTask = `
	SELECT t.id, t.mention_id, t.suggested_reply, t.final_reply, t.confidence_score,
	       t.status, t.sent_thread_id, t.sent_at, t.created_at, t.updated_at,
	       m.content, m.author
	FROM reply_tasks t
	JOIN mentions m ON m.thread_id = t.mention_id
`

// InsertIfAbsent stores the mention and its pending task in one transaction.
func (r *ReplyRepo) InsertIfAbsent(ctx context.Context, mention model.Mention) (bool, error) {
	if err := mention.Validate(); err != nil {
		return false, err
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	discoveredAt := mention.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = r.now()
	}

	const insertMention = `
		INSERT INTO mentions (thread_id, content, author, author_id, mentioned_at, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, insertMention,
		mention.ThreadID, mention.Content, mention.Author, mention.AuthorID,
		nullableTime(mention.MentionedAt), formatTime(discoveredAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert mention %s: %w", mention.ThreadID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for mention %s: %w", mention.ThreadID, err)
	}
	if affected == 0 {
		return false, nil
	}

	task := model.NewReplyTask(mention)
	if err := task.Validate(); err != nil {
		return false, fmt.Errorf("new reply task for %s: %w", mention.ThreadID, err)
	}

	now := formatTime(r.now())
	const insertTask = `
		INSERT INTO reply_tasks (mention_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insertTask, task.MentionID, string(task.Status), now, now); err != nil {
		return false, fmt.Errorf("insert reply task for %s: %w", mention.ThreadID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit mention %s: %w", mention.ThreadID, err)
	}

	return true, nil
}

// KnownMentionIDs returns the subset of ids already stored.
func (r *ReplyRepo) KnownMentionIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(ids) == 0 {
		return known, nil
	}

	query := `SELECT thread_id FROM mentions WHERE thread_id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query known mentions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan mention id: %w", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate known mentions: %w", err)
	}

	return known, nil
}

// GetByID returns driven.ErrReplyNotFound if no task has the id.
func (r *ReplyRepo) GetByID(ctx context.Context, id int64) (*model.ReplyTask, error) {
	row := r.db.Reader.QueryRowContext(ctx, selectTask+` WHERE t.id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reply %d: %w", id, driven.ErrReplyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reply %d: %w", id, err)
	}

	return task, nil
}

// List returns tasks newest first, optionally filtered by status.
func (r *ReplyRepo) List(ctx context.Context, status model.ReplyStatus, limit int) ([]model.ReplyTask, error) {
	query := selectTask + ` WHERE (? = '' OR t.status = ?) ORDER BY t.created_at DESC, t.id DESC LIMIT ?`
	return r.queryTasks(ctx, query, string(status), string(status), limit)
}

// ListPendingWithoutSuggestion returns the oldest pending tasks that have no
// suggestion recorded yet.
func (r *ReplyRepo) ListPendingWithoutSuggestion(ctx context.Context, limit int) ([]model.ReplyTask, error) {
	query := selectTask + `
		WHERE t.status = ? AND t.suggested_reply IS NULL
		ORDER BY t.created_at ASC, t.id ASC
		LIMIT ?
	`
	return r.queryTasks(ctx, query, string(model.ReplyStatusPending), limit)
}

func (r *ReplyRepo) queryTasks(ctx context.Context, query string, args ...any) ([]model.ReplyTask, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reply tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.ReplyTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reply task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reply tasks: %w", err)
	}

	return tasks, nil
}

// SaveSuggestion records a generation result on a pending task.
func (r *ReplyRepo) SaveSuggestion(ctx context.Context, id int64, suggestion string, confidence float64) error {
	const query = `
		UPDATE reply_tasks
		SET suggested_reply = ?, confidence_score = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	return r.execGuarded(ctx, "save suggestion", id, query,
		suggestion, confidence, formatTime(r.now()), id, string(model.ReplyStatusPending))
}

// MarkSkipped records a skip result and moves the pending task to skipped.
func (r *ReplyRepo) MarkSkipped(ctx context.Context, id int64, suggestion string, confidence float64) error {
	const query = `
		UPDATE reply_tasks
		SET suggested_reply = ?, confidence_score = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	return r.execGuarded(ctx, "mark skipped", id, query,
		suggestion, confidence, string(model.ReplyStatusSkipped), formatTime(r.now()), id, string(model.ReplyStatusPending))
}

// MarkSent moves a pending or approved task to a sent status. The status
// guard in the WHERE clause makes a second send of the same task fail with
// driven.ErrStatusChanged instead of double-recording.
func (r *ReplyRepo) MarkSent(
	ctx context.Context,
	id int64,
	status model.ReplyStatus,
	finalReply, sentThreadID string,
	sentAt time.Time,
) error {
	if !status.IsSent() {
		return fmt.Errorf("mark sent %d: status %q is not a sent status", id, status)
	}

	const query = `
		UPDATE reply_tasks
		SET status = ?, final_reply = ?, sent_thread_id = ?, sent_at = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`
	return r.execGuarded(ctx, "mark sent", id, query,
		string(status), finalReply, sentThreadID, formatTime(sentAt), formatTime(r.now()),
		id, string(model.ReplyStatusPending), string(model.ReplyStatusApproved))
}

// UpdateStatus moves a task from one of the from statuses to status.
func (r *ReplyRepo) UpdateStatus(ctx context.Context, id int64, from []model.ReplyStatus, status model.ReplyStatus) error {
	if len(from) == 0 {
		return fmt.Errorf("update status %d: no source statuses", id)
	}

	query := `UPDATE reply_tasks SET status = ?, updated_at = ? WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`
	args := []any{string(status), formatTime(r.now()), id}
	for _, f := range from {
		args = append(args, string(f))
	}

	return r.execGuarded(ctx, "update status", id, query, args...)
}

// UpdateFinalReply stores a human-edited reply on a pending or approved task.
func (r *ReplyRepo) UpdateFinalReply(ctx context.Context, id int64, finalReply string) error {
	const query = `
		UPDATE reply_tasks
		SET final_reply = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`
	return r.execGuarded(ctx, "update final reply", id, query,
		finalReply, formatTime(r.now()), id, string(model.ReplyStatusPending), string(model.ReplyStatusApproved))
}

// CountSentSince counts tasks in statuses with sent_at at or after since.
func (r *ReplyRepo) CountSentSince(ctx context.Context, statuses []model.ReplyStatus, since time.Time) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	query := `SELECT COUNT(*) FROM reply_tasks WHERE sent_at >= ? AND status IN (` + placeholders(len(statuses)) + `)`
	args := []any{formatTime(since)}
	for _, s := range statuses {
		args = append(args, string(s))
	}

	var count int
	if err := r.db.Reader.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sent replies: %w", err)
	}

	return count, nil
}

// execGuarded runs an UPDATE that must touch exactly the row id. Zero rows
// affected means the task is missing or its status no longer matches.
func (r *ReplyRepo) execGuarded(ctx context.Context, op string, id int64, query string, args ...any) error {
	res, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: rows affected: %w", op, id, err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = r.db.Writer.QueryRowContext(ctx, `SELECT 1 FROM reply_tasks WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", op, id, driven.ErrReplyNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}

	return fmt.Errorf("%s %d: %w", op, id, driven.ErrStatusChanged)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.ReplyTask, error) {
	var (
		task                           model.ReplyTask
		suggested, final, sentThreadID sql.NullString
		confidence                     sql.NullFloat64
		status                         string
		sentAt, createdAt, updatedAt   sql.NullString
	)

	err := row.Scan(
		&task.ID, &task.MentionID, &suggested, &final, &confidence,
		&status, &sentThreadID, &sentAt, &createdAt, &updatedAt,
		&task.MentionContent, &task.MentionAuthor,
	)
	if err != nil {
		return nil, err
	}

	task.Status = model.ReplyStatus(status)
	task.SuggestedReply = nullString(suggested)
	task.FinalReply = nullString(final)
	task.SentThreadID = nullString(sentThreadID)
	if confidence.Valid {
		c := confidence.Float64
		task.ConfidenceScore = &c
	}

	if sentAt.Valid {
		t, err := parseTime(sentAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse sent_at: %w", err)
		}
		task.SentAt = &t
	}

	if task.CreatedAt, err = parseNullTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("reply task %d: %w", task.ID, err)
	}

	return &task, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
