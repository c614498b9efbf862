package model

import (
	"errors"
	"strings"
	"time"
)

// Mention is an inbound reply discovered under one of the account's own threads.
// It is immutable once captured.
type Mention struct {
	ThreadID     string // Platform id of the reply; unique.
	Content      string
	Author       string // Handle without the leading "@".
	AuthorID     string
	MentionedAt  time.Time // Platform timestamp of the reply.
	DiscoveredAt time.Time
}

// Validate checks the fields required before a mention is persisted.
func (m Mention) Validate() error {
	if strings.TrimSpace(m.ThreadID) == "" {
		return errors.New("mention thread id is required")
	}
	return nil
}

// ReplyRecord is a raw reply as returned by the platform's reply listing.
type ReplyRecord struct {
	ID        string
	Text      string
	Username  string
	Timestamp time.Time
	// IsOwnReply is the platform's "owned by me" flag; nil when the field
	// was absent from the response.
	IsOwnReply *bool
}

// OwnThread is a top-level thread published by the managed account.
type OwnThread struct {
	ID        string
	Text      string
	Timestamp time.Time
}
