package reporting

// Call results shown on the member dashboard.
const (
	ResultCompleted = "completed"
	ResultMissed    = "missed"
	ResultNone      = "none"
)

// NoRecord fills fields a call has not produced yet.
const NoRecord = "none"

// LatestCallStatus is the outcome of the member's most recent automated call.
type LatestCallStatus struct {
	MemberID   string `json:"member_id"`
	CallResult string `json:"call_result"`
	// Time is the request time as HH:MM; empty when there is no call.
	Time string `json:"time"`
}

// CallHistoryEntry is one row of the recent-calls list.
type CallHistoryEntry struct {
	CallID    string `json:"call_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Date      string `json:"date"` // MM/dd
	Time      string `json:"time"` // HH:mm
	Sentiment string `json:"sentiment"`
	Summary   string `json:"summary"`
}
