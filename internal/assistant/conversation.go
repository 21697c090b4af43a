package assistant

import (
	"context"
	"fmt"

	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/retrieval"
	"github.com/oakhealth/aftercare/internal/session"
	"github.com/oakhealth/aftercare/internal/triage"
)

// clinicalTransition is shown once when a conversation first moves to
// the clinical flow.
const clinicalTransition = "This sounds like a medical concern. " +
	"Let me connect you with our clinical assistant..."

// routineFollowUp invites the next question after a routine answer.
const routineFollowUp = "\nIs there anything else I can help you with regarding your care plan?"

// Reply is one assistant turn, ready for the API or CLI layer.
type Reply struct {
	SessionID string
	Message   string
	Agent     session.Agent

	// Clinical turns carry citations and urgency; zero otherwise.
	Citations     []retrieval.Snippet
	UsedWebSearch bool
	Urgency       triage.Urgency

	// FollowUp is an optional trailing prompt for the next turn.
	FollowUp string

	PatientIdentified bool
}

// Manager orchestrates multi-turn conversations, routing each message
// to the receptionist or clinical flow based on session state.
type Manager struct {
	sessions     *session.Store
	receptionist *Receptionist
	clinical     *Clinical
	logger       log.Logger
}

// NewManager wires the conversation manager.
func NewManager(sessions *session.Store, receptionist *Receptionist, clinical *Clinical, logger log.Logger) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		sessions:     sessions,
		receptionist: receptionist,
		clinical:     clinical,
		logger:       logger,
	}
}

// StartSession creates a session and returns the opening greeting.
func (m *Manager) StartSession() (*Reply, error) {
	id := m.sessions.Create()
	greeting := m.receptionist.Greet()

	if err := m.appendAssistant(id, greeting, session.AgentReceptionist, nil); err != nil {
		return nil, err
	}

	m.logger.Info("session started", "session_id", id)
	return &Reply{
		SessionID: id,
		Message:   greeting,
		Agent:     session.AgentReceptionist,
	}, nil
}

// ProcessMessage handles one patient message within a session.
// Unknown sessions return session.ErrNotFound.
func (m *Manager) ProcessMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	snap, err := m.sessions.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	if err := m.sessions.Append(sessionID, session.Message{Role: "user", Content: text}); err != nil {
		return nil, err
	}

	if !snap.PatientIdentified {
		return m.identify(sessionID, text)
	}

	decision := m.receptionist.Decide(text, snap.Patient, true)
	m.logger.Debug("message routed",
		"session_id", sessionID,
		"route_clinical", decision.Route,
		"reason", decision.Reason)

	if decision.Route {
		return m.handleClinical(ctx, sessionID, snap, text, decision.IsWarningSign)
	}
	return m.handleGeneral(sessionID, snap, text)
}

// History returns the session's message log.
func (m *Manager) History(sessionID string) ([]session.Message, error) {
	return m.sessions.History(sessionID)
}

// EndSession removes the session.
func (m *Manager) EndSession(sessionID string) error {
	if err := m.sessions.End(sessionID); err != nil {
		return err
	}
	m.logger.Info("session ended", "session_id", sessionID)
	return nil
}

func (m *Manager) identify(sessionID, name string) (*Reply, error) {
	rec, message, found := m.receptionist.Identify(name)

	if found {
		err := m.sessions.Update(sessionID, func(sess *session.Session) {
			sess.PatientIdentified = true
			sess.Patient = rec
		})
		if err != nil {
			return nil, err
		}
	}

	if err := m.appendAssistant(sessionID, message, session.AgentReceptionist, nil); err != nil {
		return nil, err
	}

	return &Reply{
		SessionID:         sessionID,
		Message:           message,
		Agent:             session.AgentReceptionist,
		PatientIdentified: found,
	}, nil
}

func (m *Manager) handleClinical(
	ctx context.Context,
	sessionID string,
	snap session.Session,
	text string,
	isWarningSign bool,
) (*Reply, error) {
	if snap.CurrentAgent != session.AgentClinical {
		if err := m.appendAssistant(sessionID, clinicalTransition, session.AgentReceptionist, nil); err != nil {
			return nil, err
		}
		err := m.sessions.Update(sessionID, func(sess *session.Session) {
			sess.CurrentAgent = session.AgentClinical
		})
		if err != nil {
			return nil, err
		}
	}

	resp, err := m.clinical.HandleQuery(ctx, text, snap.Patient, true, isWarningSign)
	if err != nil {
		return nil, fmt.Errorf("processing clinical message: %w", err)
	}

	if err := m.appendAssistant(sessionID, resp.Answer, session.AgentClinical, resp.Citations); err != nil {
		return nil, err
	}

	reply := &Reply{
		SessionID:         sessionID,
		Message:           resp.Answer,
		Agent:             session.AgentClinical,
		Citations:         resp.Citations,
		UsedWebSearch:     resp.UsedWebSearch,
		Urgency:           resp.Urgency,
		PatientIdentified: true,
	}
	if resp.Urgency == triage.UrgencyRoutine {
		reply.FollowUp = routineFollowUp
	}
	return reply, nil
}

func (m *Manager) handleGeneral(sessionID string, snap session.Session, text string) (*Reply, error) {
	if snap.CurrentAgent == session.AgentClinical {
		err := m.sessions.Update(sessionID, func(sess *session.Session) {
			sess.CurrentAgent = session.AgentReceptionist
		})
		if err != nil {
			return nil, err
		}
	}

	message := m.receptionist.HandleGeneral(text, snap.Patient, true)
	if err := m.appendAssistant(sessionID, message, session.AgentReceptionist, nil); err != nil {
		return nil, err
	}

	return &Reply{
		SessionID:         sessionID,
		Message:           message,
		Agent:             session.AgentReceptionist,
		PatientIdentified: true,
	}, nil
}

func (m *Manager) appendAssistant(sessionID, content string, agent session.Agent, citations []retrieval.Snippet) error {
	return m.sessions.Append(sessionID, session.Message{
		Role:      "assistant",
		Content:   content,
		Agent:     agent,
		Citations: citations,
	})
}
