package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/calendar"
	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/memstore"
	"github.com/jonathan/hiring-orchestrator/internal/metrics"
	"github.com/jonathan/hiring-orchestrator/internal/notify"
	"github.com/jonathan/hiring-orchestrator/internal/types"
)

type stubProvider struct {
	fail  bool
	slots []calendar.Slot
}

func (p *stubProvider) GetAvailableSlots(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]calendar.Slot, error) {
	if p.fail {
		return nil, errors.New("provider down")
	}
	return p.slots, nil
}

func (p *stubProvider) CreateEvent(_ context.Context, _ uuid.UUID) (*calendar.EventResult, error) {
	if p.fail {
		return nil, errors.New("provider down")
	}
	return &calendar.EventResult{Success: true, EventID: "evt_42", Method: "api"}, nil
}

func newTestService(provider calendar.Provider) (*Service, *memstore.Store) {
	store := memstore.New()
	logger := zap.NewNop()
	collector := metrics.NewCollector(time.Hour)
	machine := interview.NewMachine(store, logger)
	gateway := calendar.NewGateway(provider, collector, logger, calendar.DefaultConfig())
	mailer := notify.NewLogQueuer(logger)
	return NewService(machine, gateway, store, mailer, collector, logger), store
}

func seedInterview(store *memstore.Store, status types.InterviewStatus) types.Interview {
	iv := types.Interview{
		ID:            uuid.New(),
		ApplicationID: uuid.New(),
		JobID:         uuid.New(),
		RecruiterID:   uuid.New(),
		CandidateID:   uuid.New(),
		RankAtTime:    1,
		Status:        status,
	}
	store.PutInterview(iv)
	return iv
}

func TestAcceptInvitation(t *testing.T) {
	svc, store := newTestService(&stubProvider{})
	iv := seedInterview(store, types.StatusInvitationSent)

	updated, err := svc.AcceptInvitation(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSlotPending, updated.Status)
}

func TestAcceptInvitation_WrongState(t *testing.T) {
	svc, store := newTestService(&stubProvider{})
	iv := seedInterview(store, types.StatusCompleted)

	_, err := svc.AcceptInvitation(context.Background(), iv.ID)
	var terr *interview.ErrStateTransition
	require.ErrorAs(t, err, &terr)
}

func TestAvailableSlots(t *testing.T) {
	start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	provider := &stubProvider{slots: []calendar.Slot{{Start: start, End: start.Add(time.Hour)}}}
	svc, store := newTestService(provider)
	iv := seedInterview(store, types.StatusSlotPending)

	slots, err := svc.AvailableSlots(context.Background(), iv.ID, start, start.Add(8*time.Hour))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, start, slots[0].Start)
}

func TestConfirmSlot_CreatesCalendarEvent(t *testing.T) {
	svc, store := newTestService(&stubProvider{})
	iv := seedInterview(store, types.StatusSlotPending)
	scheduled := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	confirmed, err := svc.ConfirmSlot(context.Background(), iv.ID, scheduled)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, confirmed.Status)
	assert.Equal(t, scheduled, *confirmed.ScheduledTime)
	assert.Equal(t, "evt_42", confirmed.CalendarEventID)
	assert.Equal(t, types.SyncAPI, confirmed.CalendarSyncMethod)
}

func TestConfirmSlot_CalendarFailureFallsBackToManual(t *testing.T) {
	svc, store := newTestService(&stubProvider{fail: true})
	iv := seedInterview(store, types.StatusSlotPending)
	scheduled := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	// The confirmation stands even though event creation failed.
	confirmed, err := svc.ConfirmSlot(context.Background(), iv.ID, scheduled)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, confirmed.Status)
	assert.Equal(t, types.SyncManual, confirmed.CalendarSyncMethod)
	assert.Empty(t, confirmed.CalendarEventID)

	entries := store.LogsByAction(types.ActionCalendarCreationFailed)
	require.Len(t, entries, 1)
	assert.Equal(t, iv.ID.String(), entries[0].Details["interview_id"])
}

type failMailer struct{}

func (failMailer) QueueEmail(context.Context, notify.Message) error {
	return errors.New("queue down")
}

func newTestServiceWithMailer(mailer notify.Queuer) (*Service, *memstore.Store, *metrics.Collector) {
	store := memstore.New()
	logger := zap.NewNop()
	collector := metrics.NewCollector(time.Hour)
	machine := interview.NewMachine(store, logger)
	gateway := calendar.NewGateway(&stubProvider{}, collector, logger, calendar.DefaultConfig())
	return NewService(machine, gateway, store, mailer, collector, logger), store, collector
}

func TestConfirmSlot_RecordsEmailDeliveryOutcome(t *testing.T) {
	scheduled := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	svc, store, collector := newTestServiceWithMailer(notify.NewLogQueuer(zap.NewNop()))
	iv := seedInterview(store, types.StatusSlotPending)
	_, err := svc.ConfirmSlot(context.Background(), iv.ID, scheduled)
	require.NoError(t, err)

	d := collector.Deliveries(60).ByKind["email"]
	assert.Equal(t, 1, d.Total)
	assert.Equal(t, 1, d.Successes)

	// A failed queue is non-fatal and lands as a failure sample.
	svc, store, collector = newTestServiceWithMailer(failMailer{})
	iv = seedInterview(store, types.StatusSlotPending)
	_, err = svc.ConfirmSlot(context.Background(), iv.ID, scheduled)
	require.NoError(t, err)

	d = collector.Deliveries(60).ByKind["email"]
	assert.Equal(t, 1, d.Total)
	assert.Equal(t, 0, d.Successes)
}

func TestConfirmSlot_WrongState(t *testing.T) {
	svc, store := newTestService(&stubProvider{})
	iv := seedInterview(store, types.StatusInvitationSent)

	_, err := svc.ConfirmSlot(context.Background(), iv.ID, time.Now().UTC().Add(24*time.Hour))
	var terr *interview.ErrStateTransition
	require.ErrorAs(t, err, &terr)

	stored, err := store.GetInterview(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvitationSent, stored.Status)
	assert.Nil(t, stored.ScheduledTime)
}
