package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// SettingsService resolves the effective reply policy: the stored policy when
// one has been saved, otherwise the configured defaults.
type SettingsService struct {
	store    driven.SettingsStore
	defaults model.ReplyPolicy
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(store driven.SettingsStore, defaults model.ReplyPolicy) *SettingsService {
	return &SettingsService{store: store, defaults: defaults}
}

// ReplyPolicy returns the effective policy. If the store cannot be read the
// configured threshold is kept but learning mode is forced on, so a storage
// failure can only make sending more conservative.
func (s *SettingsService) ReplyPolicy(ctx context.Context) model.ReplyPolicy {
	stored, err := s.store.GetReplyPolicy(ctx)
	if err != nil {
		slog.Error("load reply policy failed, forcing learning mode", "error", err)
		return model.ReplyPolicy{AutoSendThreshold: s.defaults.AutoSendThreshold, LearningMode: true}
	}
	if stored == nil {
		return s.defaults
	}
	return *stored
}

// UpdateReplyPolicy validates and persists a new policy.
func (s *SettingsService) UpdateReplyPolicy(ctx context.Context, policy model.ReplyPolicy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.SetReplyPolicy(ctx, policy); err != nil {
		return fmt.Errorf("save reply policy: %w", err)
	}
	slog.Info("reply policy updated",
		"auto_send_threshold", policy.AutoSendThreshold,
		"learning_mode", policy.LearningMode,
	)
	return nil
}
