package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oakhealth/aftercare/internal/assistant"
	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/retrieval"
	"github.com/oakhealth/aftercare/internal/session"
)

// MaxMessageBytes bounds one chat request body.
const MaxMessageBytes = 16 << 10 // 16 KiB

// ChatHandler handles the conversation endpoint.
type ChatHandler struct {
	manager *assistant.Manager
	logger  log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(manager *assistant.Manager, logger log.Logger) *ChatHandler {
	return &ChatHandler{manager: manager, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

// ChatRequest is one patient message within a session.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Citation is the API shape of one cited snippet.
type Citation struct {
	ID        int               `json:"id"`
	Preview   string            `json:"preview"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Relevance *float64          `json:"relevance,omitempty"`
}

// ChatResponse is the assistant's turn.
type ChatResponse struct {
	SessionID         string     `json:"session_id"`
	Message           string     `json:"message"`
	Agent             string     `json:"agent"`
	Citations         []Citation `json:"citations,omitempty"`
	UsedWebSearch     bool       `json:"used_web_search,omitempty"`
	Urgency           string     `json:"urgency,omitempty"`
	FollowUp          string     `json:"follow_up,omitempty"`
	PatientIdentified bool       `json:"patient_identified"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxMessageBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "session_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required")
		return
	}

	reply, err := h.manager.ProcessMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "session_not_found", "unknown or ended session")
		case errors.Is(err, retrieval.ErrRetrieval):
			h.logger.Error("retrieval failed", "error", err, "session_id", req.SessionID)
			writeError(w, http.StatusBadGateway, "retrieval_failed", "knowledge base is unavailable")
		default:
			h.logger.Error("chat failed", "error", err, "session_id", req.SessionID)
			writeError(w, http.StatusInternalServerError, "chat_failed", "could not process message")
		}
		return
	}

	writeJSON(w, http.StatusOK, toChatResponse(reply))
}

func toChatResponse(reply *assistant.Reply) ChatResponse {
	return ChatResponse{
		SessionID:         reply.SessionID,
		Message:           reply.Message,
		Agent:             string(reply.Agent),
		Citations:         toCitations(reply.Citations),
		UsedWebSearch:     reply.UsedWebSearch,
		Urgency:           string(reply.Urgency),
		FollowUp:          reply.FollowUp,
		PatientIdentified: reply.PatientIdentified,
	}
}

func toCitations(snippets []retrieval.Snippet) []Citation {
	if len(snippets) == 0 {
		return nil
	}

	citations := make([]Citation, 0, len(snippets))
	for _, s := range snippets {
		c := Citation{
			ID:       s.CitationID,
			Preview:  s.Preview,
			Source:   string(s.Source),
			Metadata: s.Metadata,
		}
		if s.HasRelevance {
			relevance := s.Relevance
			c.Relevance = &relevance
		}
		citations = append(citations, c)
	}
	return citations
}
