package threads_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/replypilot/internal/adapter/driven/threads"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *threads.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return threads.NewClientWithHTTPClient(server.Client(), server.URL, "42", "test-token")
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListOwnThreads(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/42/threads", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "id,text,timestamp", r.URL.Query().Get("fields"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		writeJSON(t, w, map[string]any{
			"data": []any{
				map[string]any{"id": "p1", "text": "Launch day", "timestamp": "2025-05-01T12:00:00+0000"},
			},
		})
	})

	got, err := client.ListOwnThreads(t.Context(), 25)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "Launch day", got[0].Text)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), got[0].Timestamp)
}

func TestListReplies_FollowsPaging(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/p1/replies", r.URL.Path)
		assert.Equal(t, "id,text,username,timestamp,is_reply_owned_by_me", r.URL.Query().Get("fields"))

		if r.URL.Query().Get("after") == "" {
			writeJSON(t, w, map[string]any{
				"data": []any{
					map[string]any{"id": "r1", "text": "Nice", "username": "fan", "is_reply_owned_by_me": false},
				},
				"paging": map[string]any{
					"cursors": map[string]any{"after": "cursor-1"},
					"next":    "https://graph.threads.net/next",
				},
			})
			return
		}

		assert.Equal(t, "cursor-1", r.URL.Query().Get("after"))
		writeJSON(t, w, map[string]any{
			"data": []any{
				map[string]any{"id": "r2", "text": "Thanks all", "username": "me", "is_reply_owned_by_me": true},
				map[string]any{"id": "r3", "text": "No flag", "username": "other"},
			},
		})
	})

	got, err := client.ListReplies(t.Context(), "p1")

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "r1", got[0].ID)
	require.NotNil(t, got[0].IsOwnReply)
	assert.False(t, *got[0].IsOwnReply)
	require.NotNil(t, got[1].IsOwnReply)
	assert.True(t, *got[1].IsOwnReply)
	assert.Nil(t, got[2].IsOwnReply, "absent flag stays nil")
}

func TestListConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/p1/conversation", r.URL.Path)
		writeJSON(t, w, map[string]any{"data": []any{map[string]any{"id": "c1", "username": "fan"}}})
	})

	got, err := client.ListConversation(t.Context(), "p1")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestGetRepliedToAndText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/m1":
			writeJSON(t, w, map[string]any{"id": "m1", "replied_to": map[string]any{"id": "p1"}})
		case "/m2":
			writeJSON(t, w, map[string]any{"id": "m2"})
		case "/p1":
			writeJSON(t, w, map[string]any{"id": "p1", "text": "Our post"})
		default:
			http.NotFound(w, r)
		}
	})

	parent, err := client.GetRepliedTo(t.Context(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "p1", parent)

	parent, err = client.GetRepliedTo(t.Context(), "m2")
	require.NoError(t, err)
	assert.Empty(t, parent)

	text, err := client.GetText(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Our post", text)
}

func TestPostReply_TwoStepPublish(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/42/threads":
			assert.Equal(t, "TEXT", body["media_type"])
			assert.Equal(t, "Glad it helps", body["text"])
			assert.Equal(t, "m1", body["reply_to_id"])
			writeJSON(t, w, map[string]any{"id": "container-7"})
		case "/42/threads_publish":
			assert.Equal(t, "container-7", body["creation_id"])
			writeJSON(t, w, map[string]any{"id": "thread-99"})
		default:
			http.NotFound(w, r)
		}
	})

	id, err := client.PostReply(t.Context(), "m1", "Glad it helps")

	require.NoError(t, err)
	assert.Equal(t, "thread-99", id)
	assert.Equal(t, []string{"POST /42/threads", "POST /42/threads_publish"}, calls)
}

func TestErrors(t *testing.T) {
	t.Run("graph error is transport error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(t, w, map[string]any{"error": map[string]any{"message": "Invalid OAuth access token", "code": 190}})
		})

		_, err := client.ListOwnThreads(t.Context(), 5)

		require.ErrorIs(t, err, driven.ErrTransport)
		assert.Contains(t, err.Error(), "Invalid OAuth access token")
	})

	t.Run("server error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.PostReply(t.Context(), "m1", "hi")

		assert.ErrorIs(t, err, driven.ErrTransport)
	})

	t.Run("missing token", func(t *testing.T) {
		client := threads.NewClientWithHTTPClient(http.DefaultClient, "http://127.0.0.1:1", "42", "")

		_, err := client.ListReplies(t.Context(), "p1")

		assert.ErrorIs(t, err, driven.ErrNotConfigured)
	})

	t.Run("missing user id", func(t *testing.T) {
		client := threads.NewClientWithHTTPClient(http.DefaultClient, "http://127.0.0.1:1", "", "tok")

		_, err := client.ListOwnThreads(t.Context(), 5)
		assert.ErrorIs(t, err, driven.ErrNotConfigured)

		_, err = client.PostReply(t.Context(), "m1", "hi")
		assert.ErrorIs(t, err, driven.ErrNotConfigured)
	})
}
