package driven

import (
	"context"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// SettingsStore defines the driven port for runtime settings.
// GetReplyPolicy returns (nil, nil) if no policy has been saved; callers
// should apply configured defaults when nil is returned.
type SettingsStore interface {
	GetReplyPolicy(ctx context.Context) (*model.ReplyPolicy, error)
	SetReplyPolicy(ctx context.Context, policy model.ReplyPolicy) error
}
