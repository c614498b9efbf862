package application

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers of the reply service. Specific errors wrap
// one of these so callers can branch on the kind with errors.Is.
var (
	// ErrValidation indicates malformed input or a task missing required
	// content. No state was changed.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates the requested action conflicts with the task's
	// current state. No state was changed.
	ErrConflict = errors.New("conflict")
)

var (
	// ErrNoReplyContent indicates a send was requested for a task with
	// neither a final nor a suggested reply.
	ErrNoReplyContent = fmt.Errorf("%w: no reply content", ErrValidation)

	// ErrAlreadySent guards against double-posting a reply.
	ErrAlreadySent = fmt.Errorf("%w: reply already sent", ErrConflict)

	// ErrInvalidTransition indicates the status change is not allowed from
	// the task's current status.
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)

	// ErrSendInProgress indicates another dispatch of the same task has not
	// finished yet.
	ErrSendInProgress = fmt.Errorf("%w: reply send already in progress", ErrConflict)

	// ErrDailyLimitReached indicates the daily reply cap has been hit.
	ErrDailyLimitReached = fmt.Errorf("%w: daily reply limit reached", ErrConflict)
)
