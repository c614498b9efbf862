package driven

import "context"

// Completer defines the driven port for a chat-completion LLM. Any
// non-success response or missing credential is returned as an error
// wrapping ErrTransport or ErrNotConfigured.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
