package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

func TestSyncRunRepo_RecordAndList(t *testing.T) {
	repo := NewSyncRunRepo(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	older := model.SyncRun{
		ID: "run-1", StartedAt: base, FinishedAt: base.Add(2 * time.Second),
		Found: 3, New: 2, Generated: 2, AutoSent: 1, Skipped: 0, Failed: 0,
	}
	newer := model.SyncRun{
		ID: "run-2", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second),
		DryRun: true, Message: "Daily reply limit reached (15/15)", Error: "",
	}
	require.NoError(t, repo.Record(ctx, older))
	require.NoError(t, repo.Record(ctx, newer))

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID, "most recent first")
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, newer.Message, runs[0].Message)
	assert.True(t, newer.StartedAt.Equal(runs[0].StartedAt))

	assert.Equal(t, "run-1", runs[1].ID)
	assert.False(t, runs[1].DryRun)
	assert.Equal(t, []int{3, 2, 2, 1, 0, 0},
		[]int{runs[1].Found, runs[1].New, runs[1].Generated, runs[1].AutoSent, runs[1].Skipped, runs[1].Failed})
	assert.True(t, older.FinishedAt.Equal(runs[1].FinishedAt))

	runs, err = repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
