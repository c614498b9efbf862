package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/replypilot/internal/application"
	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodyBytes     = 64 << 10

	healthPingTimeout = time.Second
)

// ReplyActions is the subset of the reply service the API drives.
type ReplyActions interface {
	TriggerCycle(ctx context.Context, dryRun bool) (application.CycleResult, error)
	Send(ctx context.Context, id int64) (*model.ReplyTask, error)
	UpdateTask(ctx context.Context, id int64, upd application.TaskUpdate) (*model.ReplyTask, error)
}

// PolicySettings reads and writes the runtime reply policy.
type PolicySettings interface {
	ReplyPolicy(ctx context.Context) model.ReplyPolicy
	UpdateReplyPolicy(ctx context.Context, policy model.ReplyPolicy) error
}

// CredentialUpdater stores credentials and reports which clients are live.
type CredentialUpdater interface {
	Update(ctx context.Context, service, value string) error
	Status() map[string]bool
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	replies     driven.ReplyStore
	runs        driven.SyncRunStore
	actions     ReplyActions
	settings    PolicySettings
	credentials CredentialUpdater
	db          Pinger
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. credentials
// may be nil when no encryption key is configured; db may be nil to skip the
// database check in Health.
func NewHandler(
	replies driven.ReplyStore,
	runs driven.SyncRunStore,
	actions ReplyActions,
	settings PolicySettings,
	credentials CredentialUpdater,
	db Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		replies:     replies,
		runs:        runs,
		actions:     actions,
		settings:    settings,
		credentials: credentials,
		db:          db,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request id, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/replies", h.ListReplies)
	mux.HandleFunc("POST /api/v1/replies/sync", h.SyncReplies)
	mux.HandleFunc("GET /api/v1/replies/{id}", h.GetReply)
	mux.HandleFunc("PATCH /api/v1/replies/{id}", h.UpdateReply)
	mux.HandleFunc("POST /api/v1/replies/{id}/send", h.SendReply)

	mux.HandleFunc("GET /api/v1/sync/runs", h.ListSyncRuns)

	mux.HandleFunc("GET /api/v1/settings/policy", h.GetPolicy)
	mux.HandleFunc("PUT /api/v1/settings/policy", h.UpdatePolicy)

	mux.HandleFunc("GET /api/v1/credentials", h.CredentialStatus)
	mux.HandleFunc("PUT /api/v1/credentials/{service}", h.UpdateCredential)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// ListReplies returns reply tasks newest first, optionally filtered by status.
func (h *Handler) ListReplies(w http.ResponseWriter, r *http.Request) {
	status := model.ReplyStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	tasks, err := h.replies.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("failed to list replies", "status", string(status), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ReplyResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, toReplyResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetReply returns a single reply task.
func (h *Handler) GetReply(w http.ResponseWriter, r *http.Request) {
	id, ok := parseReplyID(w, r)
	if !ok {
		return
	}

	task, err := h.replies.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "get reply", id, err)
		return
	}

	writeJSON(w, http.StatusOK, toReplyResponse(*task))
}

// UpdateReply edits the final reply text and/or moves the task to approved
// or skipped.
func (h *Handler) UpdateReply(w http.ResponseWriter, r *http.Request) {
	id, ok := parseReplyID(w, r)
	if !ok {
		return
	}

	var req UpdateReplyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	upd := application.TaskUpdate{FinalReply: req.FinalReply}
	if req.Status != nil {
		status := model.ReplyStatus(*req.Status)
		upd.Status = &status
	}

	task, err := h.actions.UpdateTask(r.Context(), id, upd)
	if err != nil {
		h.writeServiceError(w, "update reply", id, err)
		return
	}

	writeJSON(w, http.StatusOK, toReplyResponse(*task))
}

// SendReply dispatches a pending or approved reply on behalf of the user.
func (h *Handler) SendReply(w http.ResponseWriter, r *http.Request) {
	id, ok := parseReplyID(w, r)
	if !ok {
		return
	}

	task, err := h.actions.Send(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "send reply", id, err)
		return
	}

	writeJSON(w, http.StatusOK, toReplyResponse(*task))
}

// SyncReplies runs one sync-and-generate cycle and returns its counters.
// The cycle result is returned even when ingestion failed, with a 502 status.
func (h *Handler) SyncReplies(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if v := r.URL.Query().Get("dry_run"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dry_run value")
			return
		}
		dryRun = b
	}

	res, err := h.actions.TriggerCycle(r.Context(), dryRun)
	if err != nil {
		h.logger.Warn("sync cycle aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "sync cycle did not complete")
		return
	}

	status := http.StatusOK
	if res.Err != nil {
		h.logger.Error("sync cycle failed", "run_id", res.RunID, "error", res.Err)
		status = http.StatusBadGateway
	}

	writeJSON(w, status, toSyncResponse(res))
}

// ListSyncRuns returns the most recent cycle records.
func (h *Handler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	runs, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sync runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]SyncRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toSyncRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetPolicy returns the effective reply policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toPolicyResponse(h.settings.ReplyPolicy(r.Context())))
}

// UpdatePolicy replaces the reply policy.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req PolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AutoSendThreshold == nil || req.LearningMode == nil {
		writeError(w, http.StatusBadRequest, "auto_send_threshold and learning_mode are required")
		return
	}

	policy := model.ReplyPolicy{
		AutoSendThreshold: *req.AutoSendThreshold,
		LearningMode:      *req.LearningMode,
	}
	if err := h.settings.UpdateReplyPolicy(r.Context(), policy); err != nil {
		h.writeServiceError(w, "update policy", 0, err)
		return
	}

	writeJSON(w, http.StatusOK, toPolicyResponse(policy))
}

// CredentialStatus reports which services have an active client.
func (h *Handler) CredentialStatus(w http.ResponseWriter, _ *http.Request) {
	if h.credentials == nil {
		writeError(w, http.StatusServiceUnavailable, "credential storage is disabled: set REPLYPILOT_SECRET_KEY")
		return
	}
	writeJSON(w, http.StatusOK, h.credentials.Status())
}

// UpdateCredential stores and activates a credential for a service.
func (h *Handler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	if h.credentials == nil {
		writeError(w, http.StatusServiceUnavailable, "credential storage is disabled: set REPLYPILOT_SECRET_KEY")
		return
	}

	var req CredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	service := r.PathValue("service")
	if err := h.credentials.Update(r.Context(), service, req.Value); err != nil {
		h.writeServiceError(w, "update credential", 0, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health reports 200 when the database answers a ping and 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("health check: database ping failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Time: now})
			return
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: now})
}

// writeServiceError maps application and port errors to HTTP statuses.
// ErrDailyLimitReached wraps ErrConflict, so it is checked first.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, driven.ErrReplyNotFound):
		writeError(w, http.StatusNotFound, "reply not found")
	case errors.Is(err, application.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrDailyLimitReached):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, application.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, driven.ErrEncryptionKeyNotSet), errors.Is(err, driven.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, driven.ErrTransport):
		h.logger.Warn(op+" failed upstream", "reply_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "upstream request failed")
	default:
		h.logger.Error(op+" failed", "reply_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseReplyID reads the {id} path value, writing a 400 on failure.
func parseReplyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reply id")
		return 0, false
	}
	return id, true
}

// parseLimit reads the optional limit query parameter.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return min(limit, maxListLimit), true
}

// decodeBody decodes a bounded JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
