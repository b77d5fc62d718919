// Package session holds per-conversation state and its storage backends.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id does not resolve.
var ErrNotFound = errors.New("session not found")

// Event is a pending notification waiting in a session's outbox until the
// client polls for it.
type Event struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is the state of one conversation. Sessions are independent of
// each other; a store never shares state between ids.
type Session struct {
	ID        string         `json:"id" db:"id"`
	Fields    map[string]any `json:"fields"`
	AskCounts map[string]int `json:"ask_counts"`
	CallID    string         `json:"call_id,omitempty" db:"call_id"`
	Outbox    []Event        `json:"outbox,omitempty"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// New returns an empty session with the given id.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Fields:    map[string]any{},
		AskCounts: map[string]int{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone deep-copies the session so callers can mutate freely and commit via
// Put.
func (s *Session) Clone() *Session {
	out := *s
	out.Fields = make(map[string]any, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	out.AskCounts = make(map[string]int, len(s.AskCounts))
	for k, v := range s.AskCounts {
		out.AskCounts[k] = v
	}
	out.Outbox = append([]Event(nil), s.Outbox...)
	return &out
}

// Reset clears collected state, ask counters, the active call reference,
// and the outbox.
func (s *Session) Reset() {
	s.Fields = map[string]any{}
	s.AskCounts = map[string]int{}
	s.CallID = ""
	s.Outbox = nil
}

// Store abstracts session persistence so the backend is swappable without
// touching the engine. Get returns a copy; mutations only take effect
// through Put.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error

	// FindByCallID resolves the session holding the given active call id,
	// used to correlate call-completion webhooks that carry no session id.
	FindByCallID(ctx context.Context, callID string) (*Session, error)
}
