package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lumopack/lumobot/internal/flow"
	"github.com/lumopack/lumobot/internal/models"
)

// DefaultHistoryLimit is used when GET /chat/session/{id}/history has no limit.
const DefaultHistoryLimit = 50

// ChatRequest is the body of POST /chat/message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// ChatResponse is the reply to one interview turn.
type ChatResponse struct {
	Response              string              `json:"response"`
	SessionID             string              `json:"session_id"`
	CurrentStep           models.Step         `json:"current_step"`
	StepName              string              `json:"step_name"`
	SubStep               models.SubStep      `json:"sub_step"`
	CollectedData         models.Requirements `json:"collected_data"`
	IsWaitingConfirmation bool                `json:"is_waiting_confirmation"`
	IsComplete            bool                `json:"is_complete"`
	QuickReplies          []string            `json:"quick_replies"`
}

func newChatResponse(reply flow.Reply) ChatResponse {
	resp := ChatResponse{
		Response:     reply.Text,
		SessionID:    reply.SessionID,
		CurrentStep:  reply.Step,
		StepName:     reply.Step.String(),
		IsComplete:   reply.Complete,
		QuickReplies: reply.QuickReplies,
	}
	if resp.QuickReplies == nil {
		resp.QuickReplies = []string{}
	}
	if reply.State != nil {
		resp.SubStep = reply.State.SubStep
		resp.CollectedData = reply.State.CollectedData
		resp.IsWaitingConfirmation = reply.State.WaitingForConfirmation
	}
	return resp
}

// chatMessageHandler handles POST /chat/message
func (s *Server) chatMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.chatMessageHandler: invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyMessage.Error()))
		return
	}

	reply, err := s.sessions.Handle(r.Context(), req.SessionID, req.UserID, req.Message)
	if err != nil {
		slog.Error("Server.chatMessageHandler: turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, err)
		return
	}
	slog.Debug("Server.chatMessageHandler: turn complete", "session_id", reply.SessionID, "step", reply.Step.String())
	writeJSONResponse(w, http.StatusOK, newChatResponse(reply))
}

// getSessionHandler handles GET /chat/session/{id}
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

// deleteSessionHandler handles DELETE /chat/session/{id}
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Server.deleteSessionHandler: session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// listSessionsHandler handles GET /chat/sessions
func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		slog.Error("Server.listSessionsHandler: list failed", "error", err)
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.SessionSummary{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sessions))
}

// resetSessionHandler handles POST /chat/session/{id}/reset
func (s *Server) resetSessionHandler(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset", state))
}

// historyHandler handles GET /chat/session/{id}/history
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be a positive integer"))
			return
		}
		limit = n
	}
	messages, err := s.sessions.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(messages))
}
