package sessions

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("sessions: not found")
	ErrExists   = errors.New("sessions: already exists")
	ErrConflict = errors.New("sessions: concurrent update retries exhausted")
)

type Speaker string

const (
	SpeakerSystem    Speaker = "System"
	SpeakerUser      Speaker = "User"
	SpeakerAssistant Speaker = "Assistant"
)

// Turn is one line of the transcript.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Message string  `json:"message"`
}

// Session is the in-progress transcript of one live call.
// It lives only between call start and finalize.
type Session struct {
	CallID string `json:"call_id"`
	Turns  []Turn `json:"turns"`
}

func (s *Session) Append(speaker Speaker, message string) {
	s.Turns = append(s.Turns, Turn{Speaker: speaker, Message: message})
}

// UserTurns counts the turns spoken by the callee.
func (s Session) UserTurns() int {
	n := 0
	for _, t := range s.Turns {
		if t.Speaker == SpeakerUser {
			n++
		}
	}
	return n
}

// LastAssistant returns the most recent Assistant line, if any.
func (s Session) LastAssistant() (string, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Speaker == SpeakerAssistant {
			return s.Turns[i].Message, true
		}
	}
	return "", false
}

func (s Session) clone() Session {
	out := Session{CallID: s.CallID}
	if s.Turns != nil {
		out.Turns = make([]Turn, len(s.Turns))
		copy(out.Turns, s.Turns)
	}
	return out
}

// Store holds live sessions keyed by provider call id.
//
// Update must be atomic per key: fn sees the latest committed state and its
// result is written only if no other writer committed in between. fn may run
// more than once and must not perform I/O.
type Store interface {
	// Create stores a new session; ErrExists if the call id is already live.
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, callID string) (Session, error)
	Update(ctx context.Context, callID string, fn func(*Session) error) (Session, error)

	// Take removes and returns the session. Exactly one concurrent caller
	// observes ok=true for a given session.
	Take(ctx context.Context, callID string) (s Session, ok bool, err error)
}
