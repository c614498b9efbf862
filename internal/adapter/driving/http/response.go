package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/replypilot/internal/application"
	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ReplyResponse is the JSON representation of a reply task.
type ReplyResponse struct {
	ID              int64    `json:"id"`
	MentionID       string   `json:"mention_id"`
	MentionText     string   `json:"mention_text"`
	MentionAuthor   string   `json:"mention_author"`
	SuggestedReply  *string  `json:"suggested_reply"`
	FinalReply      *string  `json:"final_reply"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Status          string   `json:"status"`
	SentThreadID    *string  `json:"sent_thread_id,omitempty"`
	SentAt          *string  `json:"sent_at"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// UpdateReplyRequest is the JSON body for the reply PATCH endpoint.
type UpdateReplyRequest struct {
	FinalReply *string `json:"final_reply"`
	Status     *string `json:"status"`
}

// SyncResponse is the structured result of a sync cycle.
type SyncResponse struct {
	RunID     string `json:"run_id"`
	DryRun    bool   `json:"dry_run"`
	Found     int    `json:"found"`
	New       int    `json:"new"`
	Generated int    `json:"generated"`
	AutoSent  int    `json:"auto_sent"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SyncRunResponse is the JSON representation of a recorded cycle.
type SyncRunResponse struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	DryRun     bool   `json:"dry_run"`
	Found      int    `json:"found"`
	New        int    `json:"new"`
	Generated  int    `json:"generated"`
	AutoSent   int    `json:"auto_sent"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PolicyResponse is the JSON representation of the reply policy.
type PolicyResponse struct {
	AutoSendThreshold float64 `json:"auto_send_threshold"`
	LearningMode      bool    `json:"learning_mode"`
}

// PolicyRequest is the JSON body for the policy PUT endpoint. Both fields
// are required.
type PolicyRequest struct {
	AutoSendThreshold *float64 `json:"auto_send_threshold"`
	LearningMode      *bool    `json:"learning_mode"`
}

// CredentialRequest is the JSON body for the credential PUT endpoint.
type CredentialRequest struct {
	Value string `json:"value"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toReplyResponse converts a domain ReplyTask to its JSON response representation.
func toReplyResponse(t model.ReplyTask) ReplyResponse {
	resp := ReplyResponse{
		ID:              t.ID,
		MentionID:       t.MentionID,
		MentionText:     t.MentionContent,
		MentionAuthor:   t.MentionAuthor,
		SuggestedReply:  t.SuggestedReply,
		FinalReply:      t.FinalReply,
		ConfidenceScore: t.ConfidenceScore,
		Status:          string(t.Status),
		SentThreadID:    t.SentThreadID,
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.SentAt != nil {
		sentAt := t.SentAt.UTC().Format(time.RFC3339)
		resp.SentAt = &sentAt
	}
	return resp
}

// toSyncResponse converts a cycle result to its JSON representation.
func toSyncResponse(res application.CycleResult) SyncResponse {
	resp := SyncResponse{
		RunID:     res.RunID,
		DryRun:    res.DryRun,
		Found:     res.Found,
		New:       res.New,
		Generated: res.Generated,
		AutoSent:  res.AutoSent,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		Message:   res.Message,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

// toSyncRunResponse converts a stored SyncRun to its JSON representation.
func toSyncRunResponse(run model.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:         run.ID,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: run.FinishedAt.UTC().Format(time.RFC3339),
		DryRun:     run.DryRun,
		Found:      run.Found,
		New:        run.New,
		Generated:  run.Generated,
		AutoSent:   run.AutoSent,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		Message:    run.Message,
		Error:      run.Error,
	}
}

func toPolicyResponse(p model.ReplyPolicy) PolicyResponse {
	return PolicyResponse{
		AutoSendThreshold: p.AutoSendThreshold,
		LearningMode:      p.LearningMode,
	}
}
