package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// ThreadsClientFactory builds a Threads client for an access token.
type ThreadsClientFactory func(token string) driven.ThreadsClient

// CompleterFactory builds an LLM client for an API key.
type CompleterFactory func(apiKey string) (driven.Completer, error)

// CredentialService stores platform and LLM credentials and swaps the live
// clients so new credentials take effect immediately.
type CredentialService struct {
	store        driven.CredentialStore
	threads      *ThreadsClientProvider
	completer    *CompleterProvider
	newThreads   ThreadsClientFactory
	newCompleter CompleterFactory
}

// NewCredentialService creates a CredentialService.
func NewCredentialService(
	store driven.CredentialStore,
	threads *ThreadsClientProvider,
	completer *CompleterProvider,
	newThreads ThreadsClientFactory,
	newCompleter CompleterFactory,
) *CredentialService {
	return &CredentialService{
		store:        store,
		threads:      threads,
		completer:    completer,
		newThreads:   newThreads,
		newCompleter: newCompleter,
	}
}

// Update validates, persists and activates a credential for service.
func (s *CredentialService) Update(ctx context.Context, service, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: credential value is required", ErrValidation)
	}

	switch service {
	case model.CredentialServiceThreads:
		if err := s.store.Set(ctx, service, value); err != nil {
			return fmt.Errorf("store %s credential: %w", service, err)
		}
		s.threads.Replace(s.newThreads(value))
	case model.CredentialServiceGroq:
		client, err := s.newCompleter(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := s.store.Set(ctx, service, value); err != nil {
			return fmt.Errorf("store %s credential: %w", service, err)
		}
		s.completer.Replace(client)
	default:
		return fmt.Errorf("%w: unknown credential service %q", ErrValidation, service)
	}

	slog.Info("credential updated", "service", service)
	return nil
}

// Status reports which services currently have an active client.
func (s *CredentialService) Status() map[string]bool {
	return map[string]bool{
		model.CredentialServiceThreads: s.threads.HasClient(),
		model.CredentialServiceGroq:    s.completer.HasClient(),
	}
}
