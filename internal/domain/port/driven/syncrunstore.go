package driven

import (
	"context"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// SyncRunStore defines the driven port for cycle history.
type SyncRunStore interface {
	Record(ctx context.Context, run model.SyncRun) error
	ListRecent(ctx context.Context, limit int) ([]model.SyncRun, error)
}
