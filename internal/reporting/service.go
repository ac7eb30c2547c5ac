package reporting

import (
	"context"
	"errors"
	"time"

	"carecall-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// HistoryLimit is the number of calls in a member's history.
const HistoryLimit = 3

// CallSource abstracts call record reads for reporting.
type CallSource interface {
	ListRecentByMember(ctx context.Context, memberID string, kind calls.Kind, limit int) ([]calls.CallRecord, error)
}

type Service struct {
	repo CallSource
	loc  *time.Location
}

// NewService formats times in loc (the scheduler's zone).
func NewService(repo CallSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, loc: loc}
}

// LatestAutoCallStatus reports whether the most recent AUTO call completed.
// Any other status, including a call still in flight, counts as missed.
func (s *Service) LatestAutoCallStatus(ctx context.Context, memberID string) (LatestCallStatus, error) {
	if memberID == "" {
		return LatestCallStatus{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return LatestCallStatus{}, errors.New("reporting: repository not configured")
	}

	recs, err := s.repo.ListRecentByMember(ctx, memberID, calls.KindAuto, 1)
	if err != nil {
		return LatestCallStatus{}, err
	}
	out := LatestCallStatus{MemberID: memberID, CallResult: ResultNone}
	if len(recs) == 0 {
		return out, nil
	}
	rec := recs[0]
	out.CallResult = ResultMissed
	if rec.Status == calls.StatusCompleted {
		out.CallResult = ResultCompleted
	}
	out.Time = rec.RequestedAt.In(s.loc).Format("15:04")
	return out, nil
}

// CallHistory returns the member's most recent calls of any kind, newest first.
func (s *Service) CallHistory(ctx context.Context, memberID string) ([]CallHistoryEntry, error) {
	if memberID == "" {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}

	recs, err := s.repo.ListRecentByMember(ctx, memberID, "", HistoryLimit)
	if err != nil {
		return nil, err
	}
	out := make([]CallHistoryEntry, 0, len(recs))
	for _, rec := range recs {
		at := rec.RequestedAt.In(s.loc)
		out = append(out, CallHistoryEntry{
			CallID:    rec.ID,
			Kind:      string(rec.Kind),
			Status:    string(rec.Status),
			Date:      at.Format("01/02"),
			Time:      at.Format("15:04"),
			Sentiment: orNone(rec.ResultSentiment),
			Summary:   orNone(rec.Summary),
		})
	}
	return out, nil
}

func orNone(s *string) string {
	if s == nil || *s == "" {
		return NoRecord
	}
	return *s
}
