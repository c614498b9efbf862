package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PostStore = (*PostRepo)(nil)

// PostRepo is the SQLite implementation of the PostStore port interface.
type PostRepo struct {
	db *DB
}

// NewPostRepo creates a new PostRepo backed by the given DB.
func NewPostRepo(db *DB) *PostRepo {
	return &PostRepo{db: db}
}

// Upsert inserts or updates a post keyed by thread id.
func (r *PostRepo) Upsert(ctx context.Context, post model.Post) error {
	platform := post.Platform
	if platform == "" {
		platform = model.PlatformThreads
	}

	const query = `
		INSERT INTO posts (thread_id, content, platform, published_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			content = excluded.content,
			platform = excluded.platform,
			published_at = COALESCE(excluded.published_at, posts.published_at),
			updated_at = excluded.updated_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		post.ThreadID, post.Content, string(platform),
		nullableTime(post.PublishedAt), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", post.ThreadID, err)
	}

	return nil
}

// GetContentByThreadID returns ("", nil) when the thread is unknown.
func (r *PostRepo) GetContentByThreadID(ctx context.Context, threadID string) (string, error) {
	const query = `SELECT content FROM posts WHERE thread_id = ?`

	var content string
	err := r.db.Reader.QueryRowContext(ctx, query, threadID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get post %s: %w", threadID, err)
	}

	return content, nil
}
