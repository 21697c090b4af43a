// Package session keeps per-conversation state for the assistant.
//
// Sessions live in memory only. A restart drops them, which is
// acceptable for a conversational flow: the patient simply re-identifies.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakhealth/aftercare/internal/patient"
	"github.com/oakhealth/aftercare/internal/retrieval"
)

// ErrNotFound is returned for unknown or ended sessions.
var ErrNotFound = errors.New("session not found")

// Agent names the flow currently handling a session.
type Agent string

const (
	AgentReceptionist Agent = "receptionist"
	AgentClinical     Agent = "clinical"
)

// Message is one turn in the conversation history.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Agent     Agent     `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Citations accompany clinical answers.
	Citations []retrieval.Snippet `json:"citations,omitempty"`
}

// Session is one patient conversation.
type Session struct {
	ID        string
	CreatedAt time.Time
	Messages  []Message

	PatientIdentified bool
	Patient           patient.Record

	CurrentAgent Agent
}

// Store holds active sessions. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a new session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &Session{
		ID:           id,
		CreatedAt:    s.now(),
		CurrentAgent: AgentReceptionist,
	}
	return id
}

// Update applies fn to the session under the store lock. fn must not
// retain the *Session after returning.
func (s *Store) Update(id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(sess)
	return nil
}

// Snapshot returns a copy of the session safe to use without locking.
func (s *Store) Snapshot(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}

	snap := *sess
	snap.Messages = make([]Message, len(sess.Messages))
	copy(snap.Messages, sess.Messages)
	return snap, nil
}

// History returns a copy of the session's message log.
func (s *Store) History(id string) ([]Message, error) {
	snap, err := s.Snapshot(id)
	if err != nil {
		return nil, err
	}
	return snap.Messages, nil
}

// End removes the session. Ending an unknown session is an error so
// callers can distinguish expiry from double-close.
func (s *Store) End(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Append adds a message to the session's history.
func (s *Store) Append(id string, msg Message) error {
	return s.Update(id, func(sess *Session) {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = s.now()
		}
		sess.Messages = append(sess.Messages, msg)
	})
}
