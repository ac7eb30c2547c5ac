package audit

import "time"

// Event is an immutable, append-only record of a call lifecycle step.
//
// Invariants:
// - Events are never updated or deleted.
// - Recording is best-effort; call flows never block on audit failures.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	MemberID       string `json:"member_id,omitempty" db:"member_id"`
	CallID         string `json:"call_id,omitempty" db:"call_id"`
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`
	ScheduleID     int64  `json:"schedule_id,omitempty" db:"schedule_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallQueued      EventType = "call_queued"
	EventTypeCallPlaced      EventType = "call_placed"
	EventTypePlacementFailed EventType = "placement_failed"
	EventTypeCallFinalized   EventType = "call_finalized"
)
