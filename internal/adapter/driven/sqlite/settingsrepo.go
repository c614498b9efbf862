package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

const (
	keyAutoSendThreshold = "auto_send_threshold"
	keyLearningMode      = "learning_mode"
)

// SettingsRepo is the SQLite implementation of the SettingsStore port
// interface. Settings are stored as key/value rows.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo backed by the given DB.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// GetReplyPolicy returns (nil, nil) if the policy has never been saved.
// Callers should apply configured defaults in that case.
func (r *SettingsRepo) GetReplyPolicy(ctx context.Context) (*model.ReplyPolicy, error) {
	threshold, okThreshold, err := r.get(ctx, keyAutoSendThreshold)
	if err != nil {
		return nil, err
	}
	learning, okLearning, err := r.get(ctx, keyLearningMode)
	if err != nil {
		return nil, err
	}
	if !okThreshold || !okLearning {
		return nil, nil
	}

	var p model.ReplyPolicy
	if p.AutoSendThreshold, err = strconv.ParseFloat(threshold, 64); err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", keyAutoSendThreshold, threshold, err)
	}
	if p.LearningMode, err = strconv.ParseBool(learning); err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", keyLearningMode, learning, err)
	}

	return &p, nil
}

// SetReplyPolicy writes both policy keys in a single transaction.
func (r *SettingsRepo) SetReplyPolicy(ctx context.Context, policy model.ReplyPolicy) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const query = `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	now := formatTime(time.Now())
	values := map[string]string{
		keyAutoSendThreshold: strconv.FormatFloat(policy.AutoSendThreshold, 'f', -1, 64),
		keyLearningMode:      strconv.FormatBool(policy.LearningMode),
	}
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, query, key, value, now); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reply policy: %w", err)
	}

	return nil
}

func (r *SettingsRepo) get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM settings WHERE key = ?`

	var value string
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}

	return value, true, nil
}
