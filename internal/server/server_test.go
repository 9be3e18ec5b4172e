package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/booking"
	"github.com/jonathan/hiring-orchestrator/internal/calendar"
	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/memstore"
	"github.com/jonathan/hiring-orchestrator/internal/metrics"
	"github.com/jonathan/hiring-orchestrator/internal/notify"
	"github.com/jonathan/hiring-orchestrator/internal/risk"
	"github.com/jonathan/hiring-orchestrator/internal/shortlist"
	"github.com/jonathan/hiring-orchestrator/internal/types"
)

type downProvider struct{}

func (downProvider) GetAvailableSlots(context.Context, uuid.UUID, time.Time, time.Time) ([]calendar.Slot, error) {
	return nil, errors.New("provider down")
}

func (downProvider) CreateEvent(context.Context, uuid.UUID) (*calendar.EventResult, error) {
	return nil, errors.New("provider down")
}

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	logger := zap.NewNop()
	collector := metrics.NewCollector(time.Hour)
	machine := interview.NewMachine(store, logger)
	gateway := calendar.NewGateway(downProvider{}, collector, logger, calendar.DefaultConfig())
	mailer := notify.NewLogQueuer(logger)
	manager := shortlist.NewManager(store, machine, store, nil, collector, logger, shortlist.DefaultConfig())
	bookingSvc := booking.NewService(machine, gateway, store, mailer, collector, logger)
	analyzer := risk.NewAnalyzer(store, logger)

	srv := New(Config{Port: 0, Thresholds: metrics.DefaultThresholds()},
		machine, manager, bookingSvc, analyzer, collector, store, logger)

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateAndGetInterview(t *testing.T) {
	ts, _ := newTestServer(t)

	req := types.CreateInterviewRequest{
		ApplicationID: uuid.New(),
		JobID:         uuid.New(),
		RecruiterID:   uuid.New(),
		CandidateID:   uuid.New(),
		RankAtTime:    1,
	}
	resp := postJSON(t, ts.URL+"/interviews", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[types.Interview](t, resp)
	assert.Equal(t, types.StatusInvitationSent, created.Status)

	getResp, err := http.Get(ts.URL + "/interviews/" + created.ID.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	fetched := decode[types.Interview](t, getResp)
	assert.Equal(t, created.ID, fetched.ID)
}

func TestCreateInterview_ValidationError(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/interviews", types.CreateInterviewRequest{RankAtTime: 1})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetInterview_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/interviews/" + uuid.New().String())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateInterview_IllegalTransitionIsConflict(t *testing.T) {
	ts, store := newTestServer(t)

	iv := types.Interview{ID: uuid.New(), Status: types.StatusInvitationSent}
	store.PutInterview(iv)

	body, err := json.Marshal(map[string]string{"status": "completed"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/interviews/"+iv.ID.String(), bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBookingFlow(t *testing.T) {
	ts, store := newTestServer(t)

	iv := types.Interview{
		ID:          uuid.New(),
		JobID:       uuid.New(),
		RecruiterID: uuid.New(),
		CandidateID: uuid.New(),
		Status:      types.StatusInvitationSent,
	}
	store.PutInterview(iv)

	resp := postJSON(t, ts.URL+"/interviews/"+iv.ID.String()+"/accept", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decode[types.Interview](t, resp)
	assert.Equal(t, types.StatusSlotPending, accepted.Status)

	scheduled := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	resp = postJSON(t, ts.URL+"/interviews/"+iv.ID.String()+"/confirm",
		map[string]any{"scheduled_time": scheduled})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	confirmed := decode[types.Interview](t, resp)
	assert.Equal(t, types.StatusConfirmed, confirmed.Status)

	// The calendar provider is down, so the sync method degrades to manual.
	assert.Equal(t, types.SyncManual, confirmed.CalendarSyncMethod)
}

func TestConfirmSlot_MissingScheduledTime(t *testing.T) {
	ts, store := newTestServer(t)
	iv := types.Interview{ID: uuid.New(), Status: types.StatusSlotPending}
	store.PutInterview(iv)

	resp := postJSON(t, ts.URL+"/interviews/"+iv.ID.String()+"/confirm", map[string]any{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAutoShortlistEndpoint(t *testing.T) {
	ts, store := newTestServer(t)

	job := types.Job{
		ID:                uuid.New(),
		RecruiterID:       uuid.New(),
		NumberOfOpenings:  2,
		ShortlistBuffer:   1,
		ApplicationsOpen:  true,
		AutomationEnabled: true,
	}
	store.PutJob(job)
	for i := 0; i < 5; i++ {
		store.PutApplication(types.Application{
			ID:          uuid.New(),
			JobID:       job.ID,
			CandidateID: uuid.New(),
			FitScore:    float64(90 - i),
			Shortlist:   types.ShortlistPending,
			SubmittedAt: time.Now().UTC(),
		})
	}

	resp := postJSON(t, ts.URL+"/jobs/"+job.ID.String()+"/auto-shortlist", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counts := decode[types.ShortlistCounts](t, resp)
	assert.Equal(t, 2, counts.Shortlisted)
	assert.Equal(t, 1, counts.Buffer)
	assert.Equal(t, 2, counts.Pending)
}

func TestAutoShortlistEndpoint_UnknownJob(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/jobs/"+uuid.New().String()+"/auto-shortlist", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPromoteEndpoint_RequiresPositiveRank(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/jobs/"+uuid.New().String()+"/promote", map[string]int{"vacated_rank": 0})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAutomationLogsEndpoint(t *testing.T) {
	ts, store := newTestServer(t)

	jobID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendLog(context.Background(), &types.AutomationLogEntry{
			ID:        uuid.New(),
			JobID:     jobID,
			Action:    types.ActionAutoShortlist,
			Trigger:   types.TriggerAuto,
			CreatedAt: time.Now().UTC(),
		}))
	}

	resp, err := http.Get(fmt.Sprintf("%s/jobs/%s/automation-logs?limit=2", ts.URL, jobID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string][]types.AutomationLogEntry](t, resp)
	assert.Len(t, body["entries"], 2)
}

func TestMetricsEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{
		"/metrics/response-times",
		"/metrics/errors",
		"/metrics/automation",
		"/metrics/scheduler",
		"/metrics/deliveries",
		"/metrics/alerts",
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(&interview.ErrValidation{Field: "rank"}))
	assert.Equal(t, http.StatusConflict, HTTPStatus(&interview.ErrStateTransition{}))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(&interview.ErrNotFound{}))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(&shortlist.ErrJobNotFound{}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))

	assert.Equal(t, "validation", ErrorType(&interview.ErrValidation{}))
	assert.Equal(t, "state_transition", ErrorType(&interview.ErrStateTransition{}))
	assert.Equal(t, "not_found", ErrorType(&interview.ErrNotFound{}))
	assert.Equal(t, "internal", ErrorType(errors.New("boom")))
}
