// Package threads implements the ThreadsClient port over the Threads Graph API.
package threads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ThreadsClient = (*Client)(nil)

// DefaultBaseURL is the production Graph API root.
const DefaultBaseURL = "https://graph.threads.net/v1.0"

const (
	replyFields = "id,text,username,timestamp,is_reply_owned_by_me"
	// maxReplyPages bounds pagination of a single reply listing.
	maxReplyPages = 10
)

// Config holds what the client needs to talk to the Graph API.
type Config struct {
	BaseURL string
	UserID  string
	Token   string
	Timeout time.Duration
}

// Client implements driven.ThreadsClient with plain HTTP and JSON.
type Client struct {
	http    *http.Client
	baseURL string
	userID  string
	token   string
}

// NewClient creates a Client whose GET requests go through an in-memory
// ETag cache transport.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   timeout,
	}
	return NewClientWithHTTPClient(httpClient, cfg.BaseURL, cfg.UserID, cfg.Token)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, userID, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		token:   token,
	}
}

// threadNode is the subset of Graph API media fields the client reads.
type threadNode struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	Username         string `json:"username"`
	Timestamp        string `json:"timestamp"`
	IsReplyOwnedByMe *bool  `json:"is_reply_owned_by_me"`
	RepliedTo        *struct {
		ID string `json:"id"`
	} `json:"replied_to"`
}

type listResponse struct {
	Data   []threadNode `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

type idResponse struct {
	ID string `json:"id"`
}

// graphError is the error envelope returned by the Graph API.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// ListOwnThreads returns the account's most recent top-level threads.
func (c *Client) ListOwnThreads(ctx context.Context, limit int) ([]model.OwnThread, error) {
	if c.userID == "" {
		return nil, fmt.Errorf("threads user id: %w", driven.ErrNotConfigured)
	}

	q := url.Values{}
	q.Set("fields", "id,text,timestamp")
	q.Set("limit", strconv.Itoa(limit))

	var resp listResponse
	if err := c.get(ctx, "/"+url.PathEscape(c.userID)+"/threads", q, &resp); err != nil {
		return nil, fmt.Errorf("list own threads: %w", err)
	}

	threads := make([]model.OwnThread, 0, len(resp.Data))
	for _, n := range resp.Data {
		threads = append(threads, model.OwnThread{
			ID:        n.ID,
			Text:      n.Text,
			Timestamp: parseTimestamp(n.Timestamp),
		})
	}

	slog.Debug("threads api call", "endpoint", "threads", "count", len(threads))
	return threads, nil
}

// ListReplies returns the direct replies to a thread, following pagination.
func (c *Client) ListReplies(ctx context.Context, threadID string) ([]model.ReplyRecord, error) {
	return c.listReplyEdge(ctx, threadID, "replies")
}

// ListConversation returns the flattened conversation under a thread.
func (c *Client) ListConversation(ctx context.Context, threadID string) ([]model.ReplyRecord, error) {
	return c.listReplyEdge(ctx, threadID, "conversation")
}

func (c *Client) listReplyEdge(ctx context.Context, threadID, edge string) ([]model.ReplyRecord, error) {
	path := "/" + url.PathEscape(threadID) + "/" + edge

	q := url.Values{}
	q.Set("fields", replyFields)

	var records []model.ReplyRecord
	for page := 0; page < maxReplyPages; page++ {
		var resp listResponse
		if err := c.get(ctx, path, q, &resp); err != nil {
			return nil, fmt.Errorf("list %s of %s: %w", edge, threadID, err)
		}

		for _, n := range resp.Data {
			records = append(records, model.ReplyRecord{
				ID:         n.ID,
				Text:       n.Text,
				Username:   n.Username,
				Timestamp:  parseTimestamp(n.Timestamp),
				IsOwnReply: n.IsReplyOwnedByMe,
			})
		}

		if resp.Paging.Next == "" || resp.Paging.Cursors.After == "" {
			break
		}
		q.Set("after", resp.Paging.Cursors.After)
	}

	slog.Debug("threads api call", "endpoint", edge, "thread_id", threadID, "count", len(records))
	return records, nil
}

// GetRepliedTo returns the id of the thread the given reply answers.
func (c *Client) GetRepliedTo(ctx context.Context, threadID string) (string, error) {
	q := url.Values{}
	q.Set("fields", "id,replied_to")

	var node threadNode
	if err := c.get(ctx, "/"+url.PathEscape(threadID), q, &node); err != nil {
		return "", fmt.Errorf("get replied_to of %s: %w", threadID, err)
	}
	if node.RepliedTo == nil {
		return "", nil
	}
	return node.RepliedTo.ID, nil
}

// GetText returns the text of a thread.
func (c *Client) GetText(ctx context.Context, threadID string) (string, error) {
	q := url.Values{}
	q.Set("fields", "id,text")

	var node threadNode
	if err := c.get(ctx, "/"+url.PathEscape(threadID), q, &node); err != nil {
		return "", fmt.Errorf("get text of %s: %w", threadID, err)
	}
	return node.Text, nil
}

// PostReply publishes text as a reply to parentID. Publishing is a two-step
// flow: create a media container, then publish it.
func (c *Client) PostReply(ctx context.Context, parentID, text string) (string, error) {
	if c.userID == "" {
		return "", fmt.Errorf("threads user id: %w", driven.ErrNotConfigured)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("reply text is empty")
	}

	base := "/" + url.PathEscape(c.userID)

	var container idResponse
	err := c.post(ctx, base+"/threads", map[string]string{
		"media_type":  "TEXT",
		"text":        text,
		"reply_to_id": parentID,
	}, &container)
	if err != nil {
		return "", fmt.Errorf("create reply container for %s: %w", parentID, err)
	}
	if container.ID == "" {
		return "", fmt.Errorf("create reply container for %s: %w: empty container id", parentID, driven.ErrTransport)
	}

	var published idResponse
	err = c.post(ctx, base+"/threads_publish", map[string]string{
		"creation_id": container.ID,
	}, &published)
	if err != nil {
		return "", fmt.Errorf("publish reply to %s: %w", parentID, err)
	}
	if published.ID == "" {
		return "", fmt.Errorf("publish reply to %s: %w: empty thread id", parentID, driven.ErrTransport)
	}

	slog.Info("threads reply published", "parent_id", parentID, "thread_id", published.ID)
	return published.ID, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do sends an authenticated request and decodes a 2xx JSON body into out.
// Network failures and non-2xx responses wrap driven.ErrTransport.
func (c *Client) do(req *http.Request, out any) error {
	if c.token == "" {
		return fmt.Errorf("threads access token: %w", driven.ErrNotConfigured)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", driven.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", driven.ErrTransport, describeError(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", driven.ErrTransport, err)
	}
	return nil
}

func describeError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return fmt.Sprintf("status %d: %s (code %d)", resp.StatusCode, ge.Error.Message, ge.Error.Code)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

// parseTimestamp reads Graph API timestamps such as
// "2025-05-01T12:00:00+0000". Unparseable values yield the zero time.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
