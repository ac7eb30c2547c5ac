package calls

import "time"

// CallRecord is the persisted outcome of one outbound wellness call.
//
// Invariants:
//   - ProviderCallID is empty until placement succeeds and unique once set.
//   - RequestedAt is set at creation and never changes.
//   - Transcript is written at most once; a non-nil Transcript means the
//     record is finalized and later terminal signals must not overwrite it.
type CallRecord struct {
	ID       string `json:"id" db:"id"`
	MemberID string `json:"member_id" db:"member_id"`
	Kind     Kind   `json:"kind" db:"kind"`
	Status   Status `json:"status" db:"status"`

	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	RequestedAt time.Time `json:"requested_at" db:"requested_at"`

	// Transcript is the JSON-encoded turn list (or an error payload).
	Transcript *string `json:"transcript,omitempty" db:"transcript"`

	// Result tags are derived after the call by content analysis.
	ResultSentiment *string `json:"result_sentiment,omitempty" db:"result_sentiment"`
	Summary         *string `json:"summary,omitempty" db:"summary"`
}

// Finalized reports whether a transcript has already been written.
func (r CallRecord) Finalized() bool { return r.Transcript != nil }

type Kind string

const (
	KindManual Kind = "MANUAL"
	KindAuto   Kind = "AUTO"
)

type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
