package main

import (
	"context"
	"log/slog"

	groqadapter "github.com/ericfisherdev/replypilot/internal/adapter/driven/groq"
	sqliteadapter "github.com/ericfisherdev/replypilot/internal/adapter/driven/sqlite"
	threadsadapter "github.com/ericfisherdev/replypilot/internal/adapter/driven/threads"
	"github.com/ericfisherdev/replypilot/internal/application"
	"github.com/ericfisherdev/replypilot/internal/config"
	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// app is the wired object graph shared by all subcommands.
type app struct {
	db          *sqliteadapter.DB
	replies     *sqliteadapter.ReplyRepo
	runs        *sqliteadapter.SyncRunRepo
	settings    *application.SettingsService
	credentials *application.CredentialService // nil without a secret key
	service     *application.ReplyService
}

// newApp opens the database, runs migrations and wires adapters and
// services. The caller must call close.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", cfg.DBPath)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("migrations complete")

	replyStore := sqliteadapter.NewReplyRepo(db)
	postStore := sqliteadapter.NewPostRepo(db)
	settingsStore := sqliteadapter.NewSettingsRepo(db)
	syncRunStore := sqliteadapter.NewSyncRunRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

	// Stored credentials take priority over env vars.
	effective := *cfg
	if credentialStore.Enabled() {
		if v := storedCredential(ctx, credentialStore, model.CredentialServiceThreads); v != "" {
			effective.ThreadsToken = v
		}
		if v := storedCredential(ctx, credentialStore, model.CredentialServiceGroq); v != "" {
			effective.GroqAPIKey = v
		}
	}

	newThreads := func(token string) driven.ThreadsClient {
		return threadsadapter.NewClient(threadsadapter.Config{
			BaseURL: cfg.ThreadsBaseURL,
			UserID:  cfg.ThreadsUserID,
			Token:   token,
			Timeout: cfg.HTTPTimeout,
		})
	}
	newCompleter := func(apiKey string) (driven.Completer, error) {
		client, err := groqadapter.NewClient(groqadapter.Config{
			APIKey:  apiKey,
			Model:   cfg.GroqModel,
			BaseURL: cfg.GroqBaseURL,
			Timeout: cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	var threadsClient driven.ThreadsClient
	if effective.HasThreadsCredentials() {
		threadsClient = newThreads(effective.ThreadsToken)
		slog.Info("threads client created", "user_id", cfg.ThreadsUserID)
	} else {
		slog.Info("no threads credentials configured, syncing disabled until credentials are provided")
	}

	var completer driven.Completer
	if effective.HasGroqCredentials() {
		c, err := newCompleter(effective.GroqAPIKey)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		completer = c
		slog.Info("llm client created", "model", cfg.GroqModel)
	} else {
		slog.Info("no llm credentials configured, drafts will be routed to manual review")
	}

	threads := application.NewThreadsClientProvider(threadsClient)
	completers := application.NewCompleterProvider(completer)

	settings := application.NewSettingsService(settingsStore, cfg.Policy)

	var credentials *application.CredentialService
	if credentialStore.Enabled() {
		credentials = application.NewCredentialService(credentialStore, threads, completers, newThreads, newCompleter)
	} else {
		slog.Warn("REPLYPILOT_SECRET_KEY not set, credential storage disabled")
	}

	ingester := application.NewMentionIngester(threads, replyStore, postStore, cfg.ThreadsUsername, cfg.FetchDelay)
	generator := application.NewReplyGenerator(completers, cfg.Persona, cfg.CrisisReply)
	resolver := application.NewParentContextResolver(threads, postStore)

	service := application.NewReplyService(
		ingester,
		generator,
		resolver,
		threads,
		replyStore,
		syncRunStore,
		settings,
		application.ReplyServiceConfig{
			DailyLimit:    cfg.DailyReplyLimit,
			BatchSize:     cfg.BatchSize,
			Location:      cfg.Location,
			DispatchDelay: cfg.DispatchDelay,
			Interval:      cfg.PollInterval,
		},
	)

	return &app{
		db:          db,
		replies:     replyStore,
		runs:        syncRunStore,
		settings:    settings,
		credentials: credentials,
		service:     service,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func storedCredential(ctx context.Context, store driven.CredentialStore, service string) string {
	v, err := store.Get(ctx, service)
	if err != nil {
		slog.Warn("read stored credential failed", "service", service, "error", err)
		return ""
	}
	return v
}
