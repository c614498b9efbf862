package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

func TestPostRepo_UpsertAndGet(t *testing.T) {
	repo := NewPostRepo(setupTestDB(t))
	ctx := context.Background()
	published := time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, model.Post{ThreadID: "p1", Content: "first", PublishedAt: published}))

	content, err := repo.GetContentByThreadID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", content)

	require.NoError(t, repo.Upsert(ctx, model.Post{ThreadID: "p1", Content: "edited", Platform: model.PlatformThreads}))

	content, err = repo.GetContentByThreadID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "edited", content)
}

func TestPostRepo_GetMissing(t *testing.T) {
	repo := NewPostRepo(setupTestDB(t))

	content, err := repo.GetContentByThreadID(context.Background(), "nope")

	require.NoError(t, err)
	assert.Empty(t, content)
}
