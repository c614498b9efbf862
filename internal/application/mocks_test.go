package application_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockThreadsClient struct {
	mu sync.Mutex

	ownThreads   []model.OwnThread
	ownErr       error
	replies      map[string][]model.ReplyRecord
	repliesErr   map[string]error
	conversation map[string][]model.ReplyRecord
	repliedTo    map[string]string
	texts        map[string]string
	postErr      error

	// When set, PostReply signals postStarted and blocks until postRelease
	// is closed.
	postStarted chan struct{}
	postRelease chan struct{}

	posted     []postCall
	textCalls  int
	replyCalls int
}

type postCall struct {
	ParentID string
	Text     string
}

func (m *mockThreadsClient) ListOwnThreads(_ context.Context, _ int) ([]model.OwnThread, error) {
	if m.ownErr != nil {
		return nil, m.ownErr
	}
	return m.ownThreads, nil
}

func (m *mockThreadsClient) ListReplies(_ context.Context, threadID string) ([]model.ReplyRecord, error) {
	m.mu.Lock()
	m.replyCalls++
	m.mu.Unlock()
	if err := m.repliesErr[threadID]; err != nil {
		return nil, err
	}
	return m.replies[threadID], nil
}

func (m *mockThreadsClient) ListConversation(_ context.Context, threadID string) ([]model.ReplyRecord, error) {
	return m.conversation[threadID], nil
}

func (m *mockThreadsClient) GetRepliedTo(_ context.Context, threadID string) (string, error) {
	return m.repliedTo[threadID], nil
}

func (m *mockThreadsClient) GetText(_ context.Context, threadID string) (string, error) {
	m.mu.Lock()
	m.textCalls++
	m.mu.Unlock()
	return m.texts[threadID], nil
}

func (m *mockThreadsClient) PostReply(ctx context.Context, parentID, text string) (string, error) {
	if m.postStarted != nil {
		m.postStarted <- struct{}{}
		select {
		case <-m.postRelease:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", m.postErr
	}
	m.posted = append(m.posted, postCall{ParentID: parentID, Text: text})
	return "sent-" + parentID, nil
}

type mockCompleter struct {
	mu         sync.Mutex
	out        string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (m *mockCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.out, m.err
}

// mockDrafter returns a fixed decision per mention text, or fallback.
type mockDrafter struct {
	byText   map[string]model.GeneratedReply
	fallback model.GeneratedReply
	calls    int
	parents  []string
}

func (m *mockDrafter) Generate(_ context.Context, mentionText, _, parentPostText string) model.GeneratedReply {
	m.calls++
	m.parents = append(m.parents, parentPostText)
	if g, ok := m.byText[mentionText]; ok {
		return g
	}
	return m.fallback
}

// memReplyStore is an in-memory driven.ReplyStore.
type memReplyStore struct {
	mu       sync.Mutex
	nextID   int64
	mentions map[string]model.Mention
	tasks    map[int64]*model.ReplyTask
	countErr error
	now      func() time.Time
}

func newMemReplyStore() *memReplyStore {
	return &memReplyStore{
		mentions: make(map[string]model.Mention),
		tasks:    make(map[int64]*model.ReplyTask),
		now:      time.Now,
	}
}

// seed stores a mention and returns its task.
func (s *memReplyStore) seed(m model.Mention) *model.ReplyTask {
	_, _ = s.InsertIfAbsent(context.Background(), m)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[s.nextID]
}

// seedSent stores an already-sent task with the given sent time.
func (s *memReplyStore) seedSent(id string, status model.ReplyStatus, sentAt time.Time) {
	task := s.seed(model.Mention{ThreadID: id, Content: "old", Author: "someone"})
	s.mu.Lock()
	defer s.mu.Unlock()
	text := "sent text"
	task.Status = status
	task.FinalReply = &text
	task.SentAt = &sentAt
}

func (s *memReplyStore) get(id int64) model.ReplyTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tasks[id]
}

func (s *memReplyStore) InsertIfAbsent(_ context.Context, m model.Mention) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mentions[m.ThreadID]; ok {
		return false, nil
	}
	s.mentions[m.ThreadID] = m
	s.nextID++
	task := model.NewReplyTask(m)
	task.ID = s.nextID
	task.CreatedAt = s.now()
	s.tasks[task.ID] = &task
	return true, nil
}

func (s *memReplyStore) KnownMentionIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.mentions[id]; ok {
			known[id] = struct{}{}
		}
	}
	return known, nil
}

func (s *memReplyStore) GetByID(_ context.Context, id int64) (*model.ReplyTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, driven.ErrReplyNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *memReplyStore) sorted() []model.ReplyTask {
	out := make([]model.ReplyTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memReplyStore) List(_ context.Context, status model.ReplyStatus, limit int) ([]model.ReplyTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ReplyTask
	all := s.sorted()
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if status == "" || all[i].Status == status {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *memReplyStore) ListPendingWithoutSuggestion(_ context.Context, limit int) ([]model.ReplyTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ReplyTask
	for _, t := range s.sorted() {
		if len(out) == limit {
			break
		}
		if t.Status == model.ReplyStatusPending && t.SuggestedReply == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memReplyStore) SaveSuggestion(_ context.Context, id int64, suggestion string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.tasks[id]
	task.SuggestedReply = &suggestion
	task.ConfidenceScore = &confidence
	return nil
}

func (s *memReplyStore) MarkSkipped(_ context.Context, id int64, suggestion string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.tasks[id]
	task.SuggestedReply = &suggestion
	task.ConfidenceScore = &confidence
	task.Status = model.ReplyStatusSkipped
	return nil
}

func (s *memReplyStore) MarkSent(_ context.Context, id int64, status model.ReplyStatus, finalReply, sentThreadID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.tasks[id]
	if task.Status != model.ReplyStatusPending && task.Status != model.ReplyStatusApproved {
		return driven.ErrStatusChanged
	}
	task.Status = status
	task.FinalReply = &finalReply
	task.SentThreadID = &sentThreadID
	task.SentAt = &sentAt
	return nil
}

func (s *memReplyStore) UpdateStatus(_ context.Context, id int64, from []model.ReplyStatus, status model.ReplyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.tasks[id]
	for _, f := range from {
		if task.Status == f {
			task.Status = status
			return nil
		}
	}
	return driven.ErrStatusChanged
}

func (s *memReplyStore) UpdateFinalReply(_ context.Context, id int64, finalReply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id].FinalReply = &finalReply
	return nil
}

func (s *memReplyStore) CountSentSince(_ context.Context, statuses []model.ReplyStatus, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	n := 0
	for _, t := range s.tasks {
		if t.SentAt == nil || t.SentAt.Before(since) {
			continue
		}
		for _, st := range statuses {
			if t.Status == st {
				n++
				break
			}
		}
	}
	return n, nil
}

type memPostStore struct {
	posts map[string]model.Post
}

func (s *memPostStore) Upsert(_ context.Context, p model.Post) error {
	if s.posts == nil {
		s.posts = make(map[string]model.Post)
	}
	s.posts[p.ThreadID] = p
	return nil
}

func (s *memPostStore) GetContentByThreadID(_ context.Context, threadID string) (string, error) {
	return s.posts[threadID].Content, nil
}

type memSettingsStore struct {
	policy *model.ReplyPolicy
	err    error
}

func (s *memSettingsStore) GetReplyPolicy(_ context.Context) (*model.ReplyPolicy, error) {
	return s.policy, s.err
}

func (s *memSettingsStore) SetReplyPolicy(_ context.Context, p model.ReplyPolicy) error {
	if s.err != nil {
		return s.err
	}
	s.policy = &p
	return nil
}

type memSyncRunStore struct {
	mu   sync.Mutex
	runs []model.SyncRun
}

func (s *memSyncRunStore) Record(_ context.Context, run model.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *memSyncRunStore) ListRecent(_ context.Context, limit int) ([]model.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) < limit {
		limit = len(s.runs)
	}
	return s.runs[len(s.runs)-limit:], nil
}

type memCredentialStore struct {
	values map[string]string
	err    error
}

func (s *memCredentialStore) Set(_ context.Context, service, plaintext string) error {
	if s.err != nil {
		return s.err
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[service] = plaintext
	return nil
}

func (s *memCredentialStore) Get(_ context.Context, service string) (string, error) {
	return s.values[service], nil
}
