package model

// ReplyStatus represents the lifecycle state of a reply task.
type ReplyStatus string

const (
	ReplyStatusPending  ReplyStatus = "pending"
	ReplyStatusAutoSent ReplyStatus = "auto_sent"
	ReplyStatusApproved ReplyStatus = "approved"
	ReplyStatusSent     ReplyStatus = "sent"
	ReplyStatusSkipped  ReplyStatus = "skipped"
)

// Valid reports whether s is one of the known reply statuses.
func (s ReplyStatus) Valid() bool {
	switch s {
	case ReplyStatusPending, ReplyStatusAutoSent, ReplyStatusApproved, ReplyStatusSent, ReplyStatusSkipped:
		return true
	default:
		return false
	}
}

// IsSent reports whether the status records a reply that reached the platform.
func (s ReplyStatus) IsSent() bool {
	return s == ReplyStatusSent || s == ReplyStatusAutoSent
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s ReplyStatus) IsTerminal() bool {
	return s.IsSent() || s == ReplyStatusSkipped
}

// SentStatuses lists the statuses counted against the daily reply cap.
var SentStatuses = []ReplyStatus{ReplyStatusSent, ReplyStatusAutoSent}

// Category is the generator's routing classification for a drafted reply.
type Category string

const (
	CategoryGreen  Category = "green"  // High confidence, eligible for auto-send.
	CategoryYellow Category = "yellow" // Medium confidence, eligible only under a low threshold.
	CategoryRed    Category = "red"    // Never auto-sent; awaits a human.
	CategorySkip   Category = "skip"   // Spam or off-topic; no reply.
)

// Platform identifies the social network a record came from.
type Platform string

const (
	PlatformThreads   Platform = "threads"
	PlatformInstagram Platform = "instagram"
)
