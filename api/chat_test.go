package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oakhealth/aftercare/internal/retrieval"
)

func postChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func chatJSON(t *testing.T, srv *Server, sessionID, message string) ChatResponse {
	t.Helper()
	body, _ := json.Marshal(ChatRequest{SessionID: sessionID, Message: message})
	rec := postChat(t, srv, string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestChat_Validation(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed json", body: "{", want: http.StatusBadRequest},
		{name: "missing session id", body: `{"message":"hi"}`, want: http.StatusBadRequest},
		{name: "missing message", body: `{"session_id":"abc"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postChat(t, srv, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestChat_UnknownSession(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})

	body, _ := json.Marshal(ChatRequest{SessionID: "no-such-session", Message: "hi"})
	if rec := postChat(t, srv, string(body)); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChat_FullConversation(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})
	sess := startSession(t, srv)

	// Identification turn.
	resp := chatJSON(t, srv, sess.SessionID, "Maria Santos")
	if !resp.PatientIdentified {
		t.Fatal("patient not identified")
	}
	if resp.Agent != "receptionist" {
		t.Errorf("agent = %q", resp.Agent)
	}

	// Clinical turn with a listed warning sign.
	resp = chatJSON(t, srv, sess.SessionID, "my legs show swelling")
	if resp.Agent != "clinical" {
		t.Errorf("agent = %q, want clinical", resp.Agent)
	}
	if resp.Urgency != "urgent" {
		t.Errorf("urgency = %q, want urgent", resp.Urgency)
	}
	if len(resp.Citations) != 1 {
		t.Fatalf("citations = %+v", resp.Citations)
	}
	c := resp.Citations[0]
	if c.ID != 1 || c.Source != "knowledge_base" {
		t.Errorf("citation = %+v", c)
	}
	if c.Relevance == nil || *c.Relevance != 0.9 {
		t.Errorf("relevance = %v, want 0.9", c.Relevance)
	}
}

func TestChat_RetrievalFailureIsBadGateway(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{err: retrieval.ErrRetrieval})
	sess := startSession(t, srv)
	chatJSON(t, srv, sess.SessionID, "Maria Santos")

	body, _ := json.Marshal(ChatRequest{SessionID: sess.SessionID, Message: "I feel dizzy"})
	rec := postChat(t, srv, string(body))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Error != "retrieval_failed" {
		t.Errorf("error code = %q", errResp.Error)
	}
}

func TestChat_OversizedBodyRejected(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})
	sess := startSession(t, srv)

	huge := strings.Repeat("x", MaxMessageBytes+1)
	body, _ := json.Marshal(ChatRequest{SessionID: sess.SessionID, Message: huge})
	if rec := postChat(t, srv, string(body)); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for oversized body", rec.Code)
	}
}
