package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
	ErrDuplicate       = errors.New("calls: duplicate provider call id")
)

// Repository is the persistence contract for call records.
type Repository interface {
	Create(ctx context.Context, rec CallRecord) error
	SetProviderCallID(ctx context.Context, id, providerCallID string) error

	// MarkPlacementFailed moves a record that never reached the provider to FAILED.
	MarkPlacementFailed(ctx context.Context, id string) error

	FindByProviderCallID(ctx context.Context, providerCallID string) (CallRecord, error)

	// FinalizeTranscript writes status and transcript only while the stored
	// transcript is still empty. It reports false when another writer got there first.
	FinalizeTranscript(ctx context.Context, id string, status Status, transcript string) (bool, error)

	// ListByMemberBetween returns records requested in [from, to], oldest first.
	ListByMemberBetween(ctx context.Context, memberID string, from, to time.Time) ([]CallRecord, error)

	// ListRecentByMember returns up to limit records, newest first.
	// An empty kind matches every kind.
	ListRecentByMember(ctx context.Context, memberID string, kind Kind, limit int) ([]CallRecord, error)
}

// MemberDirectory resolves the phone number on file for a member.
type MemberDirectory interface {
	PhoneNumber(ctx context.Context, memberID string) (string, error)
}
