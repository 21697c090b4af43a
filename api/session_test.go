package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func startSession(t *testing.T, srv *Server) StartSessionResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("start session status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp StartSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestSessions_Create(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})

	resp := startSession(t, srv)
	if resp.SessionID == "" {
		t.Error("empty session_id")
	}
	if !strings.Contains(resp.Message, "What's your name?") {
		t.Errorf("greeting = %q", resp.Message)
	}
	if resp.Agent != "receptionist" {
		t.Errorf("agent = %q", resp.Agent)
	}
}

func TestSessions_History(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})
	sess := startSession(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.SessionID+"/history", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SessionID string `json:"session_id"`
		Total     int    `json:"total"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Messages) != 1 {
		t.Fatalf("history = %+v", resp)
	}
	if resp.Messages[0].Role != "assistant" {
		t.Errorf("first message role = %q", resp.Messages[0].Role)
	}
}

func TestSessions_HistoryUnknown(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope/history", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessions_End(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})
	sess := startSession(t, srv)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.SessionID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	// Second delete: the session is gone.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sess.SessionID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestHealth_Liveness(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHealth_ReadinessWithoutPool(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{answer: defaultAnswer()})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without a database pool", rec.Code)
	}
}
