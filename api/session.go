package api

import (
	"errors"
	"net/http"

	"github.com/oakhealth/aftercare/internal/assistant"
	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/session"
)

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	manager *assistant.Manager
	logger  log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(manager *assistant.Manager, logger log.Logger) *SessionHandler {
	return &SessionHandler{manager: manager, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("GET /api/sessions/{id}/history", h.history)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.end)
}

// StartSessionResponse is the payload for a newly started conversation.
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Agent     string `json:"agent"`
}

// create starts a new conversation and returns the greeting.
func (h *SessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	reply, err := h.manager.StartSession()
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		writeError(w, http.StatusInternalServerError, "session_start_failed", "could not start a conversation")
		return
	}

	writeJSON(w, http.StatusCreated, StartSessionResponse{
		SessionID: reply.SessionID,
		Message:   reply.Message,
		Agent:     string(reply.Agent),
	})
}

// history returns the conversation transcript.
func (h *SessionHandler) history(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	messages, err := h.manager.History(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "unknown or ended session")
			return
		}
		h.logger.Error("failed to load history", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "history_failed", "could not load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   messages,
		"total":      len(messages),
	})
}

// end removes the session.
func (h *SessionHandler) end(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.manager.EndSession(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "unknown or ended session")
			return
		}
		h.logger.Error("failed to end session", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "session_end_failed", "could not end session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
