package schedules

import (
	"context"
	"testing"

	"carecall-platform/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CreateDefaultsActive(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	s, err := svc.Create(context.Background(), "m-1", CreateInput{
		StartDate: mustDate(t, "2025-11-15"),
		Frequency: FrequencyDaily,
		CallTime:  ClockTime{Hour: 19},
	})
	require.NoError(t, err)
	assert.NotZero(t, s.ID)
	assert.True(t, s.Active)
	assert.Equal(t, "m-1", s.MemberID)

	inactive := false
	s2, err := svc.Create(context.Background(), "m-1", CreateInput{
		StartDate: mustDate(t, "2025-11-15"),
		Frequency: FrequencyMonthly,
		Active:    &inactive,
	})
	require.NoError(t, err)
	assert.False(t, s2.Active)
	assert.NotEqual(t, s.ID, s2.ID)
}

func TestService_CreateValidates(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", CreateInput{StartDate: mustDate(t, "2025-01-01"), Frequency: FrequencyDaily})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.Create(ctx, "m-1", CreateInput{Frequency: FrequencyDaily})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.Create(ctx, "m-1", CreateInput{StartDate: mustDate(t, "2025-01-01"), Frequency: "YEARLY"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestService_UpdatePartial(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	s, err := svc.Create(ctx, "m-1", CreateInput{StartDate: mustDate(t, "2025-11-15"), Frequency: FrequencyDaily, CallTime: ClockTime{Hour: 19}})
	require.NoError(t, err)

	weekly := FrequencyWeekly
	off := false
	got, err := svc.Update(ctx, "m-1", s.ID, Patch{Frequency: &weekly, Active: &off})
	require.NoError(t, err)
	assert.Equal(t, FrequencyWeekly, got.Frequency)
	assert.False(t, got.Active)
	assert.Equal(t, ClockTime{Hour: 19}, got.CallTime)
	assert.Equal(t, mustDate(t, "2025-11-15"), got.StartDate)

	stored, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestService_UpdateChecksOwnership(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	s, err := svc.Create(ctx, "m-1", CreateInput{StartDate: mustDate(t, "2025-11-15"), Frequency: FrequencyDaily})
	require.NoError(t, err)

	off := false
	_, err = svc.Update(ctx, "m-2", s.ID, Patch{Active: &off})
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	_, err = svc.Update(ctx, "m-1", 999, Patch{Active: &off})
	assert.ErrorIs(t, err, ErrNotFound)

	bad := Frequency("HOURLY")
	_, err = svc.Update(ctx, "m-1", s.ID, Patch{Frequency: &bad})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestService_CreateRequiresKnownMember(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, calls.MemoryMemberDirectory{"m-1": "010-1234-5678"})
	ctx := context.Background()
	in := CreateInput{StartDate: mustDate(t, "2025-11-15"), Frequency: FrequencyDaily, CallTime: ClockTime{Hour: 19}}

	_, err := svc.Create(ctx, "ghost", in)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	s, err := svc.Create(ctx, "m-1", in)
	require.NoError(t, err)
	assert.Equal(t, "m-1", s.MemberID)
}
