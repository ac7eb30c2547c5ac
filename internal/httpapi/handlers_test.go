package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carecall-platform/internal/analysis"
	"carecall-platform/internal/calls"
	"carecall-platform/internal/reporting"
	"carecall-platform/internal/schedules"
	"carecall-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	rec   calls.CallRecord
	err   error
	calls []string
}

func (f *fakeDispatcher) DispatchMember(_ context.Context, memberID string, kind calls.Kind) (calls.CallRecord, error) {
	f.calls = append(f.calls, memberID+"|"+string(kind))
	return f.rec, f.err
}

type fakeReports struct {
	latest  reporting.LatestCallStatus
	history []reporting.CallHistoryEntry
	err     error
}

func (f fakeReports) LatestAutoCallStatus(context.Context, string) (reporting.LatestCallStatus, error) {
	return f.latest, f.err
}

func (f fakeReports) CallHistory(context.Context, string) ([]reporting.CallHistoryEntry, error) {
	return f.history, f.err
}

type fakeSummaries struct {
	summary string
	err     error
}

func (f fakeSummaries) Summarize(context.Context, string) (string, error) {
	return f.summary, f.err
}

type fakeTopics []analysis.Topic

func (f fakeTopics) Recommend(context.Context) []analysis.Topic { return f }

func newRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(logger.Middleware(logger.Discard()))
	h.Register(r.Group("/v1"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPlaceManualCall(t *testing.T) {
	d := &fakeDispatcher{rec: calls.CallRecord{ID: "rec-1", MemberID: "m-1", Kind: calls.KindManual, Status: calls.StatusQueued, ProviderCallID: "CA1"}}
	w := do(newRouter(Handlers{Dispatcher: d}), http.MethodPost, "/v1/members/m-1/calls", "")

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"m-1|MANUAL"}, d.calls)

	var got calls.CallRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "CA1", got.ProviderCallID)
}

func TestPlaceManualCall_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		rec  calls.CallRecord
		err  error
		want int
	}{
		{"unknown member", calls.CallRecord{}, calls.ErrNotFound, http.StatusNotFound},
		{"no phone", calls.CallRecord{}, calls.ErrInvalidArgument, http.StatusBadRequest},
		{"provider refused", calls.CallRecord{ID: "rec-1", Status: calls.StatusFailed}, errors.New("calls: place call: 503"), http.StatusBadGateway},
		{"store down", calls.CallRecord{}, errors.New("calls: create record: conn refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDispatcher{rec: tc.rec, err: tc.err}
			w := do(newRouter(Handlers{Dispatcher: d}), http.MethodPost, "/v1/members/m-1/calls", "")
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestCreateSchedule(t *testing.T) {
	repo := schedules.NewMemoryRepo()
	r := newRouter(Handlers{Schedules: schedules.NewService(repo, nil)})

	w := do(r, http.MethodPost, "/v1/members/m-1/schedules", `{"start_date":"2024-01-01","frequency":"WEEKLY","call_time":"09:30"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got schedules.Schedule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "m-1", got.MemberID)
	assert.Equal(t, schedules.FrequencyWeekly, got.Frequency)
	assert.Equal(t, "09:30:00", got.CallTime.String())
	assert.True(t, got.Active)

	stored, err := repo.Get(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestCreateSchedule_Rejects(t *testing.T) {
	r := newRouter(Handlers{Schedules: schedules.NewService(schedules.NewMemoryRepo(), nil)})

	bodies := []string{
		`{"start_date":"2024-01-01","frequency":"HOURLY","call_time":"09:30"}`,
		`{"frequency":"DAILY","call_time":"09:30"}`,
		`{"start_date":"01/01/2024","frequency":"DAILY","call_time":"09:30"}`,
		`{"start_date":"2024-01-01","frequency":"DAILY","call_time":"25:00"}`,
		`not json`,
	}
	for _, b := range bodies {
		w := do(r, http.MethodPost, "/v1/members/m-1/schedules", b)
		assert.Equal(t, http.StatusBadRequest, w.Code, b)
	}
}

func TestCreateSchedule_UnknownMember(t *testing.T) {
	repo := schedules.NewMemoryRepo()
	r := newRouter(Handlers{Schedules: schedules.NewService(repo, calls.MemoryMemberDirectory{"m-1": "010-1234-5678"})})

	w := do(r, http.MethodPost, "/v1/members/ghost/schedules", `{"start_date":"2024-01-01","frequency":"DAILY","call_time":"09:30"}`)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.JSONEq(t, `{"error":"member not found"}`, w.Body.String())

	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, schedules.ErrNotFound)

	w = do(r, http.MethodPost, "/v1/members/m-1/schedules", `{"start_date":"2024-01-01","frequency":"DAILY","call_time":"09:30"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUpdateSchedule(t *testing.T) {
	repo := schedules.NewMemoryRepo()
	svc := schedules.NewService(repo, nil)
	r := newRouter(Handlers{Schedules: svc})

	start, _ := schedules.ParseDate("2024-01-01")
	at, _ := schedules.ParseClockTime("09:30")
	s, err := svc.Create(context.Background(), "m-1", schedules.CreateInput{StartDate: start, Frequency: schedules.FrequencyDaily, CallTime: at})
	require.NoError(t, err)

	w := do(r, http.MethodPatch, "/v1/members/m-1/schedules/1", `{"is_active":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := repo.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, schedules.FrequencyDaily, got.Frequency)
	assert.Equal(t, at, got.CallTime)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPatch, "/v1/members/m-2/schedules/1", `{"is_active":true}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/v1/members/m-1/schedules/99", `{"is_active":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/v1/members/m-1/schedules/abc", `{}`).Code)

	got, err = repo.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.False(t, got.Active, "forbidden update must not change the schedule")
}

func TestReports(t *testing.T) {
	rep := fakeReports{
		latest:  reporting.LatestCallStatus{MemberID: "m-1", CallResult: reporting.ResultCompleted, Time: "19:00"},
		history: []reporting.CallHistoryEntry{{CallID: "rec-1", Date: "01/02", Time: "19:00", Sentiment: reporting.NoRecord, Summary: reporting.NoRecord}},
	}
	r := newRouter(Handlers{Reports: rep})

	w := do(r, http.MethodGet, "/v1/members/m-1/calls/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"member_id":"m-1","call_result":"completed","time":"19:00"}`, w.Body.String())

	w = do(r, http.MethodGet, "/v1/members/m-1/calls", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Calls []reporting.CallHistoryEntry `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Calls, 1)
	assert.Equal(t, "rec-1", body.Calls[0].CallID)
}

func TestCallHistory_EmptyIsArray(t *testing.T) {
	w := do(newRouter(Handlers{Reports: fakeReports{}}), http.MethodGet, "/v1/members/m-1/calls", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"calls":[]}`, w.Body.String())
}

func TestMemberStatus(t *testing.T) {
	statuses := analysis.NewMemoryStatusRepo()
	at := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, statuses.Upsert(context.Background(), analysis.MemberStatus{MemberID: "m-1", Tag: analysis.TagCaution, AnalyzedAt: at}))
	r := newRouter(Handlers{Statuses: statuses})

	w := do(r, http.MethodGet, "/v1/members/m-1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got analysis.MemberStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, analysis.TagCaution, got.Tag)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/members/m-2/status", "").Code)
}

func TestConversationSummary(t *testing.T) {
	w := do(newRouter(Handlers{Summaries: fakeSummaries{summary: "산책을 즐기며 잘 지냄"}}), http.MethodGet, "/v1/members/m-1/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summary":"산책을 즐기며 잘 지냄"}`, w.Body.String())

	w = do(newRouter(Handlers{Summaries: fakeSummaries{err: errors.New("analysis: summarize: 429")}}), http.MethodGet, "/v1/members/m-1/summary", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestConversationSummary_NoCalls(t *testing.T) {
	s := analysis.NewSummarizer(calls.NewMemoryRepo(), nil)
	w := do(newRouter(Handlers{Summaries: s}), http.MethodGet, "/v1/members/m-1/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, analysis.NoRecentCallsSummary, body.Summary)
}

func TestRecommendTopics(t *testing.T) {
	w := do(newRouter(Handlers{Topics: fakeTopics(analysis.DefaultTopics())}), http.MethodGet, "/v1/topics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Topics []analysis.Topic `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Topics, 3)
	assert.Equal(t, "뉴스", body.Topics[0].MainKeyword)
}

func TestHandlers_NotConfigured(t *testing.T) {
	r := newRouter(Handlers{})
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/v1/members/m-1/calls", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/v1/members/m-1/calls", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/v1/members/m-1/summary", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/v1/topics", "").Code)
}
