package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"carecall-platform/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	mu     sync.Mutex
	answer string
	err    error
	prompt string
	calls  int
}

func (f *fakeClassifier) Prompt(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompt = user
	return f.answer, f.err
}

var anchor = time.Date(2025, 11, 22, 19, 0, 0, 0, time.UTC)

func strptr(s string) *string { return &s }

func seedCalls(t *testing.T, repo *calls.MemoryRepo) {
	t.Helper()
	ctx := context.Background()
	recs := []calls.CallRecord{
		{ID: "in-window", MemberID: "m-1", Kind: calls.KindAuto, Status: calls.StatusQueued, RequestedAt: anchor.Add(-48 * time.Hour)},
		{ID: "too-old", MemberID: "m-1", Kind: calls.KindAuto, Status: calls.StatusQueued, RequestedAt: anchor.Add(-8 * 24 * time.Hour)},
		{ID: "other-member", MemberID: "m-2", Kind: calls.KindAuto, Status: calls.StatusQueued, RequestedAt: anchor.Add(-time.Hour)},
		{ID: "garbled", MemberID: "m-1", Kind: calls.KindManual, Status: calls.StatusQueued, RequestedAt: anchor.Add(-time.Hour)},
	}
	for _, r := range recs {
		require.NoError(t, repo.Create(ctx, r))
	}
	_, err := repo.FinalizeTranscript(ctx, "in-window", calls.StatusCompleted, `[{"speaker":"User","message":"요즘 외로워요"}]`)
	require.NoError(t, err)
	_, err = repo.FinalizeTranscript(ctx, "too-old", calls.StatusCompleted, `[{"speaker":"User","message":"오래된 대화"}]`)
	require.NoError(t, err)
	_, err = repo.FinalizeTranscript(ctx, "other-member", calls.StatusCompleted, `[{"speaker":"User","message":"다른 사람"}]`)
	require.NoError(t, err)
	_, err = repo.FinalizeTranscript(ctx, "garbled", calls.StatusFailed, `{"error":"failed to process conversation data"}`)
	require.NoError(t, err)
}

func TestAnalyze_ClassifiesWindow(t *testing.T) {
	repo := calls.NewMemoryRepo()
	seedCalls(t, repo)
	cls := &fakeClassifier{answer: "주의"}
	statuses := NewMemoryStatusRepo()
	a := NewStatusAnalyzer(repo, cls, statuses)

	require.NoError(t, a.Analyze(context.Background(), "m-1", anchor))

	assert.Contains(t, cls.prompt, "User: 요즘 외로워요")
	assert.NotContains(t, cls.prompt, "오래된 대화")
	assert.NotContains(t, cls.prompt, "다른 사람")
	assert.True(t, strings.HasPrefix(cls.prompt, statusRequestPrefix))

	got, err := statuses.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, TagCaution, got.Tag)
}

func TestAnalyze_NoDataIsSafe(t *testing.T) {
	cls := &fakeClassifier{answer: "확인 필요"}
	statuses := NewMemoryStatusRepo()
	a := NewStatusAnalyzer(calls.NewMemoryRepo(), cls, statuses)

	require.NoError(t, a.Analyze(context.Background(), "m-1", anchor))

	got, err := statuses.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, TagSafe, got.Tag)
	assert.Zero(t, cls.calls)
}

func TestAnalyze_UnexpectedAnswerNeedsCheck(t *testing.T) {
	repo := calls.NewMemoryRepo()
	seedCalls(t, repo)
	statuses := NewMemoryStatusRepo()
	a := NewStatusAnalyzer(repo, &fakeClassifier{answer: "잘 모르겠습니다"}, statuses)

	require.NoError(t, a.Analyze(context.Background(), "m-1", anchor))
	got, err := statuses.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, TagNeedsCheck, got.Tag)
}

func TestAnalyze_ClassifierErrorKeepsPreviousTag(t *testing.T) {
	repo := calls.NewMemoryRepo()
	seedCalls(t, repo)
	statuses := NewMemoryStatusRepo()
	require.NoError(t, statuses.Upsert(context.Background(), MemberStatus{MemberID: "m-1", Tag: TagSafe}))
	a := NewStatusAnalyzer(repo, &fakeClassifier{err: errors.New("timeout")}, statuses)

	assert.Error(t, a.Analyze(context.Background(), "m-1", anchor))
	got, err := statuses.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, TagSafe, got.Tag)
}

func TestParseModelTag(t *testing.T) {
	cases := []struct {
		in   string
		want Tag
		ok   bool
	}{
		{"안전", TagSafe, true},
		{" \"주의\" ", TagCaution, true},
		{"확인 필요.", TagNeedsCheck, true},
		{"", TagNeedsCheck, false},
		{"safe", TagNeedsCheck, false},
	}
	for _, tc := range cases {
		tag, ok := ParseModelTag(tc.in)
		assert.Equal(t, tc.want, tag, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

type blockingAnalyzer struct {
	release chan struct{}
	done    chan string
	err     error
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, memberID string, _ time.Time) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	b.done <- memberID
	return b.err
}

func TestAsync_ReturnsImmediatelyAndOutlivesRequest(t *testing.T) {
	inner := &blockingAnalyzer{release: make(chan struct{}), done: make(chan string, 1), err: errors.New("ignored")}
	a := NewAsync(inner, time.Minute)

	reqCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Analyze(reqCtx, "m-1", anchor))
	cancel()

	select {
	case <-inner.done:
		t.Fatal("analysis was canceled with the request context")
	case <-time.After(50 * time.Millisecond):
	}

	close(inner.release)
	a.Wait()
	assert.Equal(t, "m-1", <-inner.done)
}
