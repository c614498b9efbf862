package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// DefaultOwnThreadLimit is how many of the account's recent threads are
// scanned for replies per cycle.
const DefaultOwnThreadLimit = 25

// IngestResult is the outcome of one mention fetch. Found counts distinct
// candidate mentions after own-reply filtering; Mentions holds only those not
// already stored. Err is set when the platform could not be read, in which
// case Mentions is empty.
type IngestResult struct {
	Found    int
	Mentions []model.Mention
	Err      error
}

// MentionIngester discovers replies to the account's own threads.
type MentionIngester struct {
	threads     driven.ThreadsClient
	store       driven.ReplyStore
	posts       driven.PostStore
	username    string
	threadLimit int
	pacer       *rate.Limiter
	now         func() time.Time
}

// NewMentionIngester creates a MentionIngester. username is the account's own
// handle, used when the platform omits the own-reply flag. fetchDelay is the
// minimum spacing between platform requests.
func NewMentionIngester(
	threads driven.ThreadsClient,
	store driven.ReplyStore,
	posts driven.PostStore,
	username string,
	fetchDelay time.Duration,
) *MentionIngester {
	return &MentionIngester{
		threads:     threads,
		store:       store,
		posts:       posts,
		username:    strings.TrimPrefix(username, "@"),
		threadLimit: DefaultOwnThreadLimit,
		pacer:       newPacer(fetchDelay),
		now:         time.Now,
	}
}

// FetchNewMentions lists the replies under the account's recent threads and
// returns those not seen before. It never panics or returns an error value
// directly; failures are reported in IngestResult.Err.
func (i *MentionIngester) FetchNewMentions(ctx context.Context) IngestResult {
	if err := pace(ctx, i.pacer); err != nil {
		return IngestResult{Err: err}
	}

	ownThreads, err := i.threads.ListOwnThreads(ctx, i.threadLimit)
	if err != nil {
		return IngestResult{Err: fmt.Errorf("list own threads: %w", err)}
	}

	i.cachePosts(ctx, ownThreads)

	seen := make(map[string]struct{})
	var candidates []model.Mention
	var threadErrors int

	for _, thread := range ownThreads {
		records, err := i.threadReplies(ctx, thread.ID)
		if err != nil {
			if ctx.Err() != nil {
				return IngestResult{Err: ctx.Err()}
			}
			slog.Error("fetch thread replies failed", "thread_id", thread.ID, "error", err)
			threadErrors++
			continue
		}

		for _, rec := range records {
			if rec.ID == "" {
				continue
			}
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}

			if i.isOwnReply(rec) {
				continue
			}

			candidates = append(candidates, model.Mention{
				ThreadID:     rec.ID,
				Content:      rec.Text,
				Author:       rec.Username,
				AuthorID:     rec.Username,
				MentionedAt:  rec.Timestamp,
				DiscoveredAt: i.now().UTC(),
			})
		}
	}

	if len(ownThreads) > 0 && threadErrors == len(ownThreads) {
		return IngestResult{Err: fmt.Errorf("fetch replies failed for all %d threads", threadErrors)}
	}

	fresh, err := i.dropKnown(ctx, candidates)
	if err != nil {
		return IngestResult{Err: err}
	}

	slog.Info("mentions fetched",
		"threads", len(ownThreads),
		"found", len(candidates),
		"new", len(fresh),
		"thread_errors", threadErrors,
	)

	return IngestResult{Found: len(candidates), Mentions: fresh}
}

// threadReplies merges the direct replies and the conversation of a thread.
// Each request waits for the pacer.
func (i *MentionIngester) threadReplies(ctx context.Context, threadID string) ([]model.ReplyRecord, error) {
	if err := pace(ctx, i.pacer); err != nil {
		return nil, err
	}
	replies, err := i.threads.ListReplies(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}

	if err := pace(ctx, i.pacer); err != nil {
		return nil, err
	}
	conversation, err := i.threads.ListConversation(ctx, threadID)
	if err != nil {
		// The direct replies are still usable on their own.
		slog.Warn("fetch thread conversation failed", "thread_id", threadID, "error", err)
		return replies, nil
	}

	return append(replies, conversation...), nil
}

// isOwnReply uses the platform flag when present and falls back to a
// case-insensitive handle comparison.
func (i *MentionIngester) isOwnReply(rec model.ReplyRecord) bool {
	if rec.IsOwnReply != nil && *rec.IsOwnReply {
		return true
	}
	return i.username != "" && strings.EqualFold(strings.TrimPrefix(rec.Username, "@"), i.username)
}

func (i *MentionIngester) dropKnown(ctx context.Context, candidates []model.Mention) ([]model.Mention, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(candidates))
	for _, m := range candidates {
		ids = append(ids, m.ThreadID)
	}

	known, err := i.store.KnownMentionIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load known mentions: %w", err)
	}

	fresh := make([]model.Mention, 0, len(candidates))
	for _, m := range candidates {
		if _, ok := known[m.ThreadID]; ok {
			continue
		}
		fresh = append(fresh, m)
	}
	return fresh, nil
}

// cachePosts records the account's own thread texts so parent-post lookups
// can be answered locally. Failures are logged and ignored.
func (i *MentionIngester) cachePosts(ctx context.Context, threads []model.OwnThread) {
	if i.posts == nil {
		return
	}
	for _, t := range threads {
		if t.ID == "" || t.Text == "" {
			continue
		}
		post := model.Post{
			ThreadID:    t.ID,
			Content:     t.Text,
			Platform:    model.PlatformThreads,
			PublishedAt: t.Timestamp,
		}
		if err := i.posts.Upsert(ctx, post); err != nil {
			slog.Warn("cache own thread failed", "thread_id", t.ID, "error", err)
		}
	}
}
