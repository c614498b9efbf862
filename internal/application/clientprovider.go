package application

import (
	"context"
	"sync"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ThreadsClient = (*ThreadsClientProvider)(nil)
	_ driven.Completer     = (*CompleterProvider)(nil)
)

// ThreadsClientProvider enables runtime hot-swap of the Threads client. It
// satisfies driven.ThreadsClient itself by delegating to the current client,
// so services hold the provider and pick up credential changes without a
// restart. With no client every call fails with driven.ErrNotConfigured.
type ThreadsClientProvider struct {
	mu     sync.RWMutex
	client driven.ThreadsClient
}

// NewThreadsClientProvider creates a provider. client may be nil if no
// credentials are available at startup.
func NewThreadsClientProvider(client driven.ThreadsClient) *ThreadsClientProvider {
	return &ThreadsClientProvider{client: client}
}

// Get returns the current client, which may be nil.
func (p *ThreadsClientProvider) Get() driven.ThreadsClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client. The next call observes the new client.
func (p *ThreadsClientProvider) Replace(client driven.ThreadsClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *ThreadsClientProvider) HasClient() bool {
	return p.Get() != nil
}

func (p *ThreadsClientProvider) current() (driven.ThreadsClient, error) {
	c := p.Get()
	if c == nil {
		return nil, driven.ErrNotConfigured
	}
	return c, nil
}

// ListOwnThreads delegates to the current client.
func (p *ThreadsClientProvider) ListOwnThreads(ctx context.Context, limit int) ([]model.OwnThread, error) {
	c, err := p.current()
	if err != nil {
		return nil, err
	}
	return c.ListOwnThreads(ctx, limit)
}

// ListReplies delegates to the current client.
func (p *ThreadsClientProvider) ListReplies(ctx context.Context, threadID string) ([]model.ReplyRecord, error) {
	c, err := p.current()
	if err != nil {
		return nil, err
	}
	return c.ListReplies(ctx, threadID)
}

// ListConversation delegates to the current client.
func (p *ThreadsClientProvider) ListConversation(ctx context.Context, threadID string) ([]model.ReplyRecord, error) {
	c, err := p.current()
	if err != nil {
		return nil, err
	}
	return c.ListConversation(ctx, threadID)
}

// GetRepliedTo delegates to the current client.
func (p *ThreadsClientProvider) GetRepliedTo(ctx context.Context, threadID string) (string, error) {
	c, err := p.current()
	if err != nil {
		return "", err
	}
	return c.GetRepliedTo(ctx, threadID)
}

// GetText delegates to the current client.
func (p *ThreadsClientProvider) GetText(ctx context.Context, threadID string) (string, error) {
	c, err := p.current()
	if err != nil {
		return "", err
	}
	return c.GetText(ctx, threadID)
}

// PostReply delegates to the current client.
func (p *ThreadsClientProvider) PostReply(ctx context.Context, parentID, text string) (string, error) {
	c, err := p.current()
	if err != nil {
		return "", err
	}
	return c.PostReply(ctx, parentID, text)
}

// CompleterProvider is the hot-swappable holder of the LLM client.
type CompleterProvider struct {
	mu        sync.RWMutex
	completer driven.Completer
}

// NewCompleterProvider creates a provider. completer may be nil.
func NewCompleterProvider(completer driven.Completer) *CompleterProvider {
	return &CompleterProvider{completer: completer}
}

// Replace swaps the current completer.
func (p *CompleterProvider) Replace(completer driven.Completer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completer = completer
}

// HasClient returns true if a non-nil completer is currently held.
func (p *CompleterProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completer != nil
}

// Complete delegates to the current completer, or fails with
// driven.ErrNotConfigured when none is held.
func (p *CompleterProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	p.mu.RLock()
	c := p.completer
	p.mu.RUnlock()
	if c == nil {
		return "", driven.ErrNotConfigured
	}
	return c.Complete(ctx, systemPrompt, userPrompt)
}
