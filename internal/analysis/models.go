package analysis

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("analysis: member status not found")

// Tag is a member's wellbeing classification.
type Tag string

const (
	TagSafe       Tag = "safe"
	TagCaution    Tag = "caution"
	TagNeedsCheck Tag = "needs_check"
)

// MemberStatus is the latest classification for a member.
type MemberStatus struct {
	MemberID   string    `json:"member_id"`
	Tag        Tag       `json:"status_tag"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// StatusRepository stores one current status per member.
type StatusRepository interface {
	Upsert(ctx context.Context, s MemberStatus) error
	Get(ctx context.Context, memberID string) (MemberStatus, error)
}
