package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReplyTask tracks a single mention awaiting or having received a reply.
type ReplyTask struct {
	ID              int64
	MentionID       string
	SuggestedReply  *string
	FinalReply      *string
	ConfidenceScore *float64
	Status          ReplyStatus
	SentThreadID    *string
	SentAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Mention fields joined in by the store for convenience.
	MentionContent string
	MentionAuthor  string
}

// NewReplyTask returns the initial pending task for a freshly ingested mention.
func NewReplyTask(m Mention) ReplyTask {
	return ReplyTask{
		MentionID:      m.ThreadID,
		Status:         ReplyStatusPending,
		MentionContent: m.Content,
		MentionAuthor:  m.Author,
	}
}

// SendableText returns the text a manual send would dispatch: the edited
// final reply when present, otherwise the suggestion.
func (t ReplyTask) SendableText() string {
	if t.FinalReply != nil && strings.TrimSpace(*t.FinalReply) != "" {
		return *t.FinalReply
	}
	if t.SuggestedReply != nil {
		return strings.TrimSpace(*t.SuggestedReply)
	}
	return ""
}

// Validate enforces the cross-field invariants of a task as read from or
// written to the store.
func (t ReplyTask) Validate() error {
	if t.MentionID == "" {
		return errors.New("reply task mention id is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid reply status %q", t.Status)
	}
	if t.ConfidenceScore != nil && (*t.ConfidenceScore < 0 || *t.ConfidenceScore > 1) {
		return fmt.Errorf("confidence score %v out of range [0,1]", *t.ConfidenceScore)
	}
	if t.Status.IsSent() != (t.SentAt != nil) {
		return fmt.Errorf("sent_at must be set iff status is sent or auto_sent (status %q)", t.Status)
	}
	return nil
}
