// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// Defaults for ReplyServiceConfig fields left at their zero value.
const (
	DefaultDailyReplyLimit = 15
	DefaultBatchSize       = 10
)

// skippedPlaceholder is stored as the suggestion of a skipped task when the
// generator produced no text, so the task is not picked up again.
const skippedPlaceholder = "[SPAM/OFF-TOPIC]"

// emptyMentionPlaceholder is stored for mentions with no text to answer.
const emptyMentionPlaceholder = "[NO TEXT]"

// ReplyServiceConfig holds the tunables of the reply cycle.
type ReplyServiceConfig struct {
	DailyLimit    int            // Maximum sent replies per calendar day.
	BatchSize     int            // Maximum tasks generated per cycle.
	Location      *time.Location // Zone that defines the calendar day.
	DispatchDelay time.Duration  // Minimum spacing between generations and dispatches.
	Interval      time.Duration  // Scheduled cycle interval; 0 disables the ticker.
}

// CycleResult aggregates the outcome of one sync-and-generate cycle. Err is
// set only when the cycle could not run meaningfully (ingestion failure or a
// store failure before generation); per-task failures are counted in Failed.
type CycleResult struct {
	RunID     string
	DryRun    bool
	Found     int
	New       int
	Generated int
	AutoSent  int
	Skipped   int
	Failed    int
	Message   string
	Err       error
}

// cycleRequest represents a manual cycle trigger.
type cycleRequest struct {
	dryRun bool
	done   chan CycleResult
}

// ReplyService orchestrates mention ingestion, reply generation, the
// auto-send policy and dispatch, and the manual review actions on tasks.
type ReplyService struct {
	ingester *MentionIngester
	drafter  Drafter
	resolver *ParentContextResolver
	threads  driven.ThreadsClient
	store    driven.ReplyStore
	runs     driven.SyncRunStore
	settings *SettingsService
	cfg      ReplyServiceConfig
	pacer    *rate.Limiter
	now      func() time.Time
	cycleCh  chan cycleRequest

	// sending holds the ids of tasks with a PostReply in flight. The store's
	// guarded update only runs after the post, so it cannot stop a second
	// dispatch on its own.
	sendingMu sync.Mutex
	sending   map[int64]struct{}
}

// NewReplyService creates a new ReplyService with all required dependencies.
func NewReplyService(
	ingester *MentionIngester,
	drafter Drafter,
	resolver *ParentContextResolver,
	threads driven.ThreadsClient,
	store driven.ReplyStore,
	runs driven.SyncRunStore,
	settings *SettingsService,
	cfg ReplyServiceConfig,
) *ReplyService {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultDailyReplyLimit
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &ReplyService{
		ingester: ingester,
		drafter:  drafter,
		resolver: resolver,
		threads:  threads,
		store:    store,
		runs:     runs,
		settings: settings,
		cfg:      cfg,
		pacer:    newPacer(cfg.DispatchDelay),
		sending:  make(map[int64]struct{}),
		now:      time.Now,
		cycleCh:  make(chan cycleRequest),
	}
}

// Start runs scheduled cycles on the configured interval and serves manual
// triggers from TriggerCycle, one cycle at a time. With a zero interval only
// manual triggers run. Start blocks until the context is canceled.
func (s *ReplyService) Start(ctx context.Context) {
	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("reply service stopped")
			return
		case <-tick:
			res := s.RunCycle(ctx, false)
			if res.Err != nil {
				slog.Error("scheduled cycle failed", "run_id", res.RunID, "error", res.Err)
			}
		case req := <-s.cycleCh:
			req.done <- s.RunCycle(ctx, req.dryRun)
		}
	}
}

// TriggerCycle asks the running Start loop to execute a cycle and waits for
// its result. It returns an error only if ctx ends first.
func (s *ReplyService) TriggerCycle(ctx context.Context, dryRun bool) (CycleResult, error) {
	done := make(chan CycleResult, 1)
	req := cycleRequest{dryRun: dryRun, done: done}

	select {
	case s.cycleCh <- req:
	case <-ctx.Done():
		return CycleResult{}, ctx.Err()
	}

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return CycleResult{}, ctx.Err()
	}
}

// RunCycle ingests new mentions, enforces the daily cap, drafts replies for a
// bounded batch of pending tasks and auto-sends the eligible ones. A dry run
// computes and stores suggestions but never dispatches.
func (s *ReplyService) RunCycle(ctx context.Context, dryRun bool) CycleResult {
	start := s.now()
	res := CycleResult{RunID: uuid.NewString(), DryRun: dryRun}
	defer func() { s.recordRun(ctx, start, res) }()

	ingest := s.ingester.FetchNewMentions(ctx)
	if ingest.Err != nil {
		res.Err = fmt.Errorf("sync mentions: %w", ingest.Err)
		return res
	}
	res.Found = ingest.Found

	for _, m := range ingest.Mentions {
		created, err := s.store.InsertIfAbsent(ctx, m)
		if err != nil {
			slog.Error("store mention failed", "mention_id", m.ThreadID, "error", err)
			continue
		}
		if created {
			res.New++
		}
	}

	sentToday, err := s.sentToday(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	if sentToday >= s.cfg.DailyLimit {
		res.Message = fmt.Sprintf("Daily reply limit reached (%d/%d)", sentToday, s.cfg.DailyLimit)
		slog.Info("daily reply limit reached", "sent_today", sentToday, "limit", s.cfg.DailyLimit)
		return res
	}

	tasks, err := s.store.ListPendingWithoutSuggestion(ctx, s.cfg.BatchSize)
	if err != nil {
		res.Err = fmt.Errorf("list pending tasks: %w", err)
		return res
	}

	policy := s.settings.ReplyPolicy(ctx)

	for _, task := range tasks {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		if err := pace(ctx, s.pacer); err != nil {
			res.Err = err
			return res
		}

		outcome, err := s.processTask(ctx, task, policy, dryRun, sentToday)
		if err != nil {
			slog.Error("process reply task failed", "reply_id", task.ID, "mention_id", task.MentionID, "error", err)
			res.Failed++
		}

		switch outcome {
		case outcomeSkipped:
			res.Skipped++
		case outcomeGenerated:
			res.Generated++
		case outcomeAutoSent:
			res.Generated++
			res.AutoSent++
			sentToday++
		}
	}

	slog.Info("reply cycle complete",
		"run_id", res.RunID,
		"dry_run", dryRun,
		"found", res.Found,
		"new", res.New,
		"generated", res.Generated,
		"auto_sent", res.AutoSent,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration", s.now().Sub(start).Round(time.Millisecond),
	)

	return res
}

type taskOutcome int

const (
	outcomeNone taskOutcome = iota
	outcomeSkipped
	outcomeGenerated
	outcomeAutoSent
)

// processTask drafts one reply and routes it. The returned outcome reflects
// what was persisted even when a later step failed.
func (s *ReplyService) processTask(
	ctx context.Context,
	task model.ReplyTask,
	policy model.ReplyPolicy,
	dryRun bool,
	sentToday int,
) (taskOutcome, error) {
	if strings.TrimSpace(task.MentionContent) == "" {
		if err := s.store.MarkSkipped(ctx, task.ID, emptyMentionPlaceholder, 0); err != nil {
			return outcomeNone, fmt.Errorf("mark empty mention skipped: %w", err)
		}
		return outcomeSkipped, nil
	}

	parent := s.resolver.Resolve(ctx, task.MentionID)
	generated := s.drafter.Generate(ctx, task.MentionContent, task.MentionAuthor, parent)

	slog.Info("reply drafted",
		"reply_id", task.ID,
		"category", string(generated.Category),
		"confidence", generated.Confidence,
		"has_parent", parent != "",
	)

	if generated.Category == model.CategorySkip {
		suggestion := generated.Reply
		if suggestion == "" {
			suggestion = skippedPlaceholder
		}
		if err := s.store.MarkSkipped(ctx, task.ID, suggestion, generated.Confidence); err != nil {
			return outcomeNone, fmt.Errorf("mark skipped: %w", err)
		}
		return outcomeSkipped, nil
	}

	if err := s.store.SaveSuggestion(ctx, task.ID, generated.Reply, generated.Confidence); err != nil {
		return outcomeNone, fmt.Errorf("save suggestion: %w", err)
	}

	if !autoSendEligible(generated, policy) {
		return outcomeGenerated, nil
	}
	if dryRun {
		slog.Info("dry run, auto-send suppressed", "reply_id", task.ID)
		return outcomeGenerated, nil
	}
	if sentToday >= s.cfg.DailyLimit {
		slog.Info("daily reply limit reached, leaving for review", "reply_id", task.ID)
		return outcomeGenerated, nil
	}

	if err := pace(ctx, s.pacer); err != nil {
		return outcomeGenerated, err
	}

	if !s.claimSend(task.ID) {
		slog.Info("manual send in progress, auto-send skipped", "reply_id", task.ID)
		return outcomeGenerated, nil
	}
	defer s.releaseSend(task.ID)

	// A manual send may have finished since the batch was listed.
	current, err := s.store.GetByID(ctx, task.ID)
	if err != nil {
		return outcomeGenerated, fmt.Errorf("reload before auto-send: %w", err)
	}
	if current.Status != model.ReplyStatusPending {
		slog.Info("task changed before auto-send, skipped", "reply_id", task.ID, "status", string(current.Status))
		return outcomeGenerated, nil
	}

	sentID, err := s.threads.PostReply(ctx, task.MentionID, generated.Reply)
	if err != nil {
		return outcomeGenerated, fmt.Errorf("auto-send: %w", err)
	}

	if err := s.store.MarkSent(ctx, task.ID, model.ReplyStatusAutoSent, generated.Reply, sentID, s.now().UTC()); err != nil {
		// The reply is live on the platform; the record is behind.
		return outcomeGenerated, fmt.Errorf("record auto-send (sent thread %s): %w", sentID, err)
	}

	slog.Info("reply auto-sent", "reply_id", task.ID, "sent_thread_id", sentID)
	return outcomeAutoSent, nil
}

// autoSendEligible applies the red override before the send policy: a red
// draft is never auto-sent whatever its confidence.
func autoSendEligible(g model.GeneratedReply, policy model.ReplyPolicy) bool {
	if g.Category == model.CategoryRed || g.Category == model.CategorySkip {
		return false
	}
	if strings.TrimSpace(g.Reply) == "" {
		return false
	}
	return ShouldAutoSend(g.Confidence, policy.AutoSendThreshold, policy.LearningMode)
}

// Send dispatches a pending or approved task on behalf of a human, using the
// edited final reply when present and the suggestion otherwise. On dispatch
// failure the task is left unchanged.
func (s *ReplyService) Send(ctx context.Context, id int64) (*model.ReplyTask, error) {
	if !s.claimSend(id) {
		return nil, ErrSendInProgress
	}
	defer s.releaseSend(id)

	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.Status.IsSent() {
		return nil, ErrAlreadySent
	}
	if task.Status != model.ReplyStatusPending && task.Status != model.ReplyStatusApproved {
		return nil, fmt.Errorf("%w: cannot send a %s reply", ErrInvalidTransition, task.Status)
	}

	text := task.SendableText()
	if text == "" {
		return nil, ErrNoReplyContent
	}

	sentToday, err := s.sentToday(ctx)
	if err != nil {
		return nil, err
	}
	if sentToday >= s.cfg.DailyLimit {
		return nil, fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, sentToday, s.cfg.DailyLimit)
	}

	sentID, err := s.threads.PostReply(ctx, task.MentionID, text)
	if err != nil {
		return nil, fmt.Errorf("send reply %d: %w", id, err)
	}

	if err := s.store.MarkSent(ctx, id, model.ReplyStatusSent, text, sentID, s.now().UTC()); err != nil {
		if errors.Is(err, driven.ErrStatusChanged) {
			return nil, ErrAlreadySent
		}
		return nil, fmt.Errorf("record sent reply %d: %w", id, err)
	}

	slog.Info("reply sent", "reply_id", id, "sent_thread_id", sentID)
	return s.store.GetByID(ctx, id)
}

// claimSend marks id as being dispatched. It returns false if a dispatch of
// id is already in flight in this process.
func (s *ReplyService) claimSend(id int64) bool {
	s.sendingMu.Lock()
	defer s.sendingMu.Unlock()
	if _, busy := s.sending[id]; busy {
		return false
	}
	s.sending[id] = struct{}{}
	return true
}

func (s *ReplyService) releaseSend(id int64) {
	s.sendingMu.Lock()
	delete(s.sending, id)
	s.sendingMu.Unlock()
}

// TaskUpdate is a human edit to a task. Nil fields are left unchanged.
// Status may only be approved or skipped; sending goes through Send.
type TaskUpdate struct {
	FinalReply *string
	Status     *model.ReplyStatus
}

// UpdateTask applies a human edit to a pending or approved task.
func (s *ReplyService) UpdateTask(ctx context.Context, id int64, upd TaskUpdate) (*model.ReplyTask, error) {
	if upd.FinalReply == nil && upd.Status == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	if upd.Status != nil && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, *upd.Status)
	}

	var finalReply string
	if upd.FinalReply != nil {
		finalReply = strings.TrimSpace(*upd.FinalReply)
		if finalReply == "" {
			return nil, fmt.Errorf("%w: final reply must not be empty", ErrValidation)
		}
		if len([]rune(finalReply)) > MaxReplyLength {
			return nil, fmt.Errorf("%w: final reply exceeds %d characters", ErrValidation, MaxReplyLength)
		}
	}

	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		if task.Status.IsSent() {
			return nil, ErrAlreadySent
		}
		return nil, fmt.Errorf("%w: task is %s", ErrInvalidTransition, task.Status)
	}

	if upd.FinalReply != nil {
		if err := s.store.UpdateFinalReply(ctx, id, finalReply); err != nil {
			return nil, fmt.Errorf("update final reply %d: %w", id, err)
		}
	}

	if upd.Status != nil && *upd.Status != task.Status {
		if err := s.transition(ctx, id, *upd.Status); err != nil {
			return nil, err
		}
	}

	return s.store.GetByID(ctx, id)
}

// transition applies a human status change.
func (s *ReplyService) transition(ctx context.Context, id int64, to model.ReplyStatus) error {
	var from []model.ReplyStatus
	switch to {
	case model.ReplyStatusApproved:
		from = []model.ReplyStatus{model.ReplyStatusPending}
	case model.ReplyStatusSkipped:
		from = []model.ReplyStatus{model.ReplyStatusPending, model.ReplyStatusApproved}
	default:
		return fmt.Errorf("%w: cannot set status %s directly", ErrInvalidTransition, to)
	}

	if err := s.store.UpdateStatus(ctx, id, from, to); err != nil {
		if errors.Is(err, driven.ErrStatusChanged) {
			return fmt.Errorf("%w: to %s", ErrInvalidTransition, to)
		}
		return fmt.Errorf("update status %d: %w", id, err)
	}

	slog.Info("reply status changed", "reply_id", id, "status", string(to))
	return nil
}

// sentToday counts replies sent since the start of the current day in the
// configured zone. The count is always derived from stored sent_at values.
func (s *ReplyService) sentToday(ctx context.Context) (int, error) {
	since := StartOfDay(s.now(), s.cfg.Location)
	count, err := s.store.CountSentSince(ctx, model.SentStatuses, since)
	if err != nil {
		return 0, fmt.Errorf("count sent replies: %w", err)
	}
	return count, nil
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

func (s *ReplyService) recordRun(ctx context.Context, start time.Time, res CycleResult) {
	if s.runs == nil {
		return
	}

	run := model.SyncRun{
		ID:         res.RunID,
		StartedAt:  start.UTC(),
		FinishedAt: s.now().UTC(),
		DryRun:     res.DryRun,
		Found:      res.Found,
		New:        res.New,
		Generated:  res.Generated,
		AutoSent:   res.AutoSent,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
		Message:    res.Message,
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}

	if err := s.runs.Record(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("record sync run failed", "run_id", res.RunID, "error", err)
	}
}
