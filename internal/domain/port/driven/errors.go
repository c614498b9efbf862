// Package driven defines secondary port interfaces for external adapters.
package driven

import "errors"

// Sentinel errors shared by adapters. Callers match them with errors.Is.
var (
	// ErrNotConfigured indicates a required credential or id is missing.
	ErrNotConfigured = errors.New("not configured")

	// ErrTransport indicates a network or non-success HTTP failure talking to
	// the platform or the LLM.
	ErrTransport = errors.New("transport failure")

	// ErrReplyNotFound indicates the requested reply task does not exist.
	ErrReplyNotFound = errors.New("reply task not found")

	// ErrStatusChanged indicates a guarded update matched no row because the
	// task left the expected status concurrently.
	ErrStatusChanged = errors.New("reply task status changed")

	// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
	// REPLYPILOT_SECRET_KEY has not been configured.
	ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set REPLYPILOT_SECRET_KEY")
)
