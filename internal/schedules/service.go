package schedules

import (
	"context"
	"errors"
	"fmt"

	"carecall-platform/internal/calls"
)

// CreateInput is a new schedule request. Active defaults to true.
type CreateInput struct {
	StartDate Date
	Frequency Frequency
	CallTime  ClockTime
	Active    *bool
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	StartDate *Date
	Frequency *Frequency
	CallTime  *ClockTime
	Active    *bool
}

func (p Patch) apply(s *Schedule) error {
	if p.StartDate != nil {
		if p.StartDate.IsZero() {
			return fmt.Errorf("%w: start date", ErrInvalidArgument)
		}
		s.StartDate = *p.StartDate
	}
	if p.Frequency != nil {
		if !p.Frequency.Valid() {
			return fmt.Errorf("%w: frequency %q", ErrInvalidArgument, *p.Frequency)
		}
		s.Frequency = *p.Frequency
	}
	if p.CallTime != nil {
		s.CallTime = *p.CallTime
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	return nil
}

// Service manages a member's schedules.
type Service struct {
	repo    Repository
	members calls.MemberDirectory
}

// NewService checks new schedules against members when it is non-nil.
func NewService(repo Repository, members calls.MemberDirectory) *Service {
	return &Service{repo: repo, members: members}
}

func (s *Service) Create(ctx context.Context, memberID string, in CreateInput) (Schedule, error) {
	if memberID == "" {
		return Schedule{}, fmt.Errorf("%w: member id", ErrInvalidArgument)
	}
	if in.StartDate.IsZero() {
		return Schedule{}, fmt.Errorf("%w: start date", ErrInvalidArgument)
	}
	if !in.Frequency.Valid() {
		return Schedule{}, fmt.Errorf("%w: frequency %q", ErrInvalidArgument, in.Frequency)
	}
	if s.members != nil {
		if _, err := s.members.PhoneNumber(ctx, memberID); err != nil {
			if errors.Is(err, calls.ErrNotFound) {
				return Schedule{}, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
			}
			return Schedule{}, fmt.Errorf("schedules: lookup member: %w", err)
		}
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return s.repo.Create(ctx, Schedule{
		MemberID:  memberID,
		StartDate: in.StartDate,
		Frequency: in.Frequency,
		CallTime:  in.CallTime,
		Active:    active,
	})
}

// Update applies p to a schedule owned by memberID.
func (s *Service) Update(ctx context.Context, memberID string, scheduleID int64, p Patch) (Schedule, error) {
	if memberID == "" || scheduleID <= 0 {
		return Schedule{}, ErrInvalidArgument
	}
	return s.repo.Update(ctx, scheduleID, func(cur *Schedule) error {
		if cur.MemberID != memberID {
			return ErrForbidden
		}
		return p.apply(cur)
	})
}
