package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/retrieval"
	"github.com/oakhealth/aftercare/internal/session"
	"github.com/oakhealth/aftercare/internal/triage"
)

func newTestManager(t *testing.T, answerer Answerer) *Manager {
	t.Helper()
	store := newPatientStore(t)
	return NewManager(
		session.NewStore(),
		NewReceptionist(store, log.NewNop()),
		NewClinical(answerer, log.NewNop()),
		log.NewNop(),
	)
}

// identifiedSession starts a session and walks it past identification.
func identifiedSession(t *testing.T, m *Manager) string {
	t.Helper()
	start, err := m.StartSession()
	if err != nil {
		t.Fatal(err)
	}
	reply, err := m.ProcessMessage(context.Background(), start.SessionID, "Maria Santos")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.PatientIdentified {
		t.Fatal("identification failed in test setup")
	}
	return start.SessionID
}

func TestManager_StartSession(t *testing.T) {
	m := newTestManager(t, &stubAnswerer{answer: citedAnswer()})

	reply, err := m.StartSession()
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if reply.SessionID == "" {
		t.Fatal("empty session id")
	}
	if !strings.Contains(reply.Message, "What's your name?") {
		t.Errorf("greeting = %q", reply.Message)
	}

	history, err := m.History(reply.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Role != "assistant" {
		t.Errorf("history after start = %+v", history)
	}
}

func TestManager_IdentificationFlow(t *testing.T) {
	m := newTestManager(t, &stubAnswerer{answer: citedAnswer()})
	start, _ := m.StartSession()

	// Wrong name first: stays unidentified, asks again.
	reply, err := m.ProcessMessage(context.Background(), start.SessionID, "Nobody Real")
	if err != nil {
		t.Fatal(err)
	}
	if reply.PatientIdentified {
		t.Error("unknown name must not identify")
	}
	if !strings.Contains(reply.Message, "verify your full name") {
		t.Errorf("retry prompt = %q", reply.Message)
	}

	// Correct name second: identified with discharge summary teaser.
	reply, err = m.ProcessMessage(context.Background(), start.SessionID, "Maria Santos")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.PatientIdentified {
		t.Error("known name must identify")
	}
	if !strings.Contains(reply.Message, "Congestive heart failure") {
		t.Errorf("identification message = %q", reply.Message)
	}
}

func TestManager_GeneralQueryStaysWithReceptionist(t *testing.T) {
	answerer := &stubAnswerer{answer: citedAnswer()}
	m := newTestManager(t, answerer)
	id := identifiedSession(t, m)

	reply, err := m.ProcessMessage(context.Background(), id, "tell me about my medications")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Agent != session.AgentReceptionist {
		t.Errorf("agent = %q, want receptionist", reply.Agent)
	}
	if !strings.Contains(reply.Message, "Furosemide 40mg daily") {
		t.Errorf("medication reply = %q", reply.Message)
	}
	if answerer.calls != 0 {
		t.Error("general query must not call the answering pipeline")
	}
}

func TestManager_ClinicalRoutingWithTransition(t *testing.T) {
	m := newTestManager(t, &stubAnswerer{answer: citedAnswer()})
	id := identifiedSession(t, m)

	reply, err := m.ProcessMessage(context.Background(), id, "my legs show swelling")
	if err != nil {
		t.Fatal(err)
	}

	if reply.Agent != session.AgentClinical {
		t.Errorf("agent = %q, want clinical", reply.Agent)
	}
	if reply.Urgency != triage.UrgencyUrgent {
		t.Errorf("urgency = %q, want urgent (listed warning sign)", reply.Urgency)
	}
	if len(reply.Citations) != 1 {
		t.Errorf("citations = %d, want 1", len(reply.Citations))
	}

	// The one-time transition message lands in history before the answer.
	history, _ := m.History(id)
	var sawTransition bool
	for _, msg := range history {
		if strings.Contains(msg.Content, "clinical assistant") {
			sawTransition = true
		}
	}
	if !sawTransition {
		t.Error("transition message missing from history")
	}

	// Second clinical message: no repeated transition.
	before := len(history)
	if _, err := m.ProcessMessage(context.Background(), id, "the swelling got worse"); err != nil {
		t.Fatal(err)
	}
	history, _ = m.History(id)
	// user message + clinical answer only
	if len(history) != before+2 {
		t.Errorf("history grew by %d, want 2 (no repeated transition)", len(history)-before)
	}
}

func TestManager_RoutineClinicalGetsFollowUpPrompt(t *testing.T) {
	m := newTestManager(t, &stubAnswerer{answer: citedAnswer()})
	id := identifiedSession(t, m)

	reply, err := m.ProcessMessage(context.Background(), id, "should i keep walking daily?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Urgency != triage.UrgencyRoutine {
		t.Fatalf("urgency = %q", reply.Urgency)
	}
	if !strings.Contains(reply.FollowUp, "anything else") {
		t.Errorf("FollowUp = %q", reply.FollowUp)
	}
}

func TestManager_ReturnsToReceptionistAfterClinical(t *testing.T) {
	m := newTestManager(t, &stubAnswerer{answer: citedAnswer()})
	id := identifiedSession(t, m)

	if _, err := m.ProcessMessage(context.Background(), id, "I feel dizzy"); err != nil {
		t.Fatal(err)
	}
	reply, err := m.ProcessMessage(context.Background(), id, "thanks, show my discharge summary")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Agent != session.AgentReceptionist {
		t.Errorf("agent = %q, want receptionist after general query", reply.Agent)
	}
}

func TestManager_UnknownSession(t *testing.T) {
	m := newTestManager(t, &stubAnswerer{answer: citedAnswer()})

	_, err := m.ProcessMessage(context.Background(), "no-such-session", "hello")
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("error = %v, want session.ErrNotFound", err)
	}
}

func TestManager_ClinicalErrorPropagates(t *testing.T) {
	m := newTestManager(t, &stubAnswerer{err: retrieval.ErrRetrieval})
	id := identifiedSession(t, m)

	_, err := m.ProcessMessage(context.Background(), id, "I feel dizzy")
	if !errors.Is(err, retrieval.ErrRetrieval) {
		t.Errorf("error = %v, want ErrRetrieval", err)
	}
}

func TestManager_EndSession(t *testing.T) {
	m := newTestManager(t, &stubAnswerer{answer: citedAnswer()})
	id := identifiedSession(t, m)

	if err := m.EndSession(id); err != nil {
		t.Fatal(err)
	}
	if err := m.EndSession(id); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("double end error = %v, want ErrNotFound", err)
	}
}
