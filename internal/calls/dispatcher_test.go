package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"carecall-platform/internal/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlacer struct {
	sid    string
	err    error
	gotTo  string
	gotURL string
	calls  int
}

func (f *fakePlacer) PlaceCall(_ context.Context, to, base string) (string, error) {
	f.calls++
	f.gotTo = to
	f.gotURL = base
	return f.sid, f.err
}

func newTestDispatcher(repo Repository, placer Placer, auditRepo *audit.MemoryRepo) *Dispatcher {
	d := NewDispatcher(repo, placer, DispatcherOptions{
		CallbackBaseURL: "https://calls.example.com",
		Members:         MemoryMemberDirectory{"m-1": "010-1234-5678"},
		Audit:           audit.NewService(auditRepo),
	})
	d.clock = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	d.newID = func() string { return "rec-1" }
	return d
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct{ in, want string }{
		{"010-1234-5678", "+821012345678"},
		{"01012345678", "+821012345678"},
		{"+82 10 1234", "82101234"},
		{"(555) 000-1111", "5550001111"},
		{"", ""},
		{"0", "+82"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePhone(tc.in, "+82"), "input %q", tc.in)
	}
}

func TestDispatch_SuccessLinksProviderID(t *testing.T) {
	repo := NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	placer := &fakePlacer{sid: "CA100"}
	d := newTestDispatcher(repo, placer, auditRepo)

	rec, err := d.Dispatch(context.Background(), DispatchRequest{MemberID: "m-1", PhoneNumber: "010-1234-5678", Kind: KindManual})
	require.NoError(t, err)

	assert.Equal(t, "+821012345678", placer.gotTo)
	assert.Equal(t, "https://calls.example.com", placer.gotURL)
	assert.Equal(t, "CA100", rec.ProviderCallID)
	assert.Equal(t, StatusQueued, rec.Status)

	stored, ok := repo.Get("rec-1")
	require.True(t, ok)
	assert.Equal(t, "CA100", stored.ProviderCallID)
	assert.Equal(t, StatusQueued, stored.Status)
	assert.Equal(t, KindManual, stored.Kind)
	assert.Nil(t, stored.Transcript)

	assert.Len(t, auditRepo.OfType(audit.EventTypeCallQueued), 1)
	assert.Len(t, auditRepo.OfType(audit.EventTypeCallPlaced), 1)
}

func TestDispatch_PlacementFailureMarksFailed(t *testing.T) {
	repo := NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	placer := &fakePlacer{err: errors.New("provider down")}
	d := newTestDispatcher(repo, placer, auditRepo)

	rec, err := d.Dispatch(context.Background(), DispatchRequest{MemberID: "m-1", PhoneNumber: "01012345678", Kind: KindAuto, ScheduleID: 7})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, rec.Status)

	stored, ok := repo.Get("rec-1")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Empty(t, stored.ProviderCallID)

	evs := auditRepo.OfType(audit.EventTypePlacementFailed)
	require.Len(t, evs, 1)
	assert.Equal(t, int64(7), evs[0].ScheduleID)
}

func TestDispatch_RejectsInvalidRequest(t *testing.T) {
	d := newTestDispatcher(NewMemoryRepo(), &fakePlacer{sid: "CA1"}, audit.NewMemoryRepo())

	_, err := d.Dispatch(context.Background(), DispatchRequest{PhoneNumber: "010", Kind: KindManual})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = d.Dispatch(context.Background(), DispatchRequest{MemberID: "m-1", PhoneNumber: "  ", Kind: KindManual})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = d.Dispatch(context.Background(), DispatchRequest{MemberID: "m-1", PhoneNumber: "010", Kind: "OTHER"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDispatchMember_UsesDirectory(t *testing.T) {
	repo := NewMemoryRepo()
	placer := &fakePlacer{sid: "CA200"}
	d := newTestDispatcher(repo, placer, audit.NewMemoryRepo())

	rec, err := d.DispatchMember(context.Background(), "m-1", KindManual)
	require.NoError(t, err)
	assert.Equal(t, "CA200", rec.ProviderCallID)
	assert.Equal(t, "+821012345678", placer.gotTo)

	_, err = d.DispatchMember(context.Background(), "missing", KindManual)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, placer.calls)
}
