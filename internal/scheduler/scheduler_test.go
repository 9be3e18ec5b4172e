package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/memstore"
	"github.com/jonathan/hiring-orchestrator/internal/metrics"
	"github.com/jonathan/hiring-orchestrator/internal/notify"
	"github.com/jonathan/hiring-orchestrator/internal/shortlist"
	"github.com/jonathan/hiring-orchestrator/internal/types"
)

type testHarness struct {
	scheduler *Scheduler
	machine   *interview.Machine
	manager   *shortlist.Manager
	store     *memstore.Store
	collector *metrics.Collector
	mailer    *captureMailer
}

// captureMailer records queued messages instead of delivering them.
type captureMailer struct {
	messages []notify.Message
	fail     bool
}

func (m *captureMailer) QueueEmail(_ context.Context, msg notify.Message) error {
	if m.fail {
		return assert.AnError
	}
	m.messages = append(m.messages, msg)
	return nil
}

func newHarness() *testHarness {
	store := memstore.New()
	logger := zap.NewNop()
	machine := interview.NewMachine(store, logger)
	collector := metrics.NewCollector(time.Hour)
	manager := shortlist.NewManager(store, machine, store, nil, collector, logger, shortlist.DefaultConfig())
	mailer := &captureMailer{}
	sched := New(machine, manager, store, store, mailer, collector, logger, DefaultConfig())
	return &testHarness{
		scheduler: sched,
		machine:   machine,
		manager:   manager,
		store:     store,
		collector: collector,
		mailer:    mailer,
	}
}

func (h *testHarness) seedJob(openings, buffer int) types.Job {
	job := types.Job{
		ID:                uuid.New(),
		RecruiterID:       uuid.New(),
		NumberOfOpenings:  openings,
		ShortlistBuffer:   buffer,
		ApplicationsOpen:  true,
		AutomationEnabled: true,
	}
	h.store.PutJob(job)
	return job
}

func (h *testHarness) seedApplication(jobID uuid.UUID, fit float64, status types.ShortlistStatus, rank int) types.Application {
	app := types.Application{
		ID:          uuid.New(),
		JobID:       jobID,
		CandidateID: uuid.New(),
		FitScore:    fit,
		Shortlist:   status,
		Rank:        rank,
		SubmittedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	h.store.PutApplication(app)
	return app
}

func TestRunCycle_ExpiresAndPromotes(t *testing.T) {
	h := newHarness()
	job := h.seedJob(2, 2)

	held := h.seedApplication(job.ID, 95, types.ShortlistShortlisted, 1)
	buffered := h.seedApplication(job.ID, 85, types.ShortlistBuffer, 3)
	pending := h.seedApplication(job.ID, 75, types.ShortlistPending, 0)

	deadline := time.Now().UTC().Add(-time.Hour)
	iv := types.Interview{
		ID:                   uuid.New(),
		ApplicationID:        held.ID,
		JobID:                job.ID,
		RecruiterID:          job.RecruiterID,
		CandidateID:          held.CandidateID,
		RankAtTime:           1,
		Status:               types.StatusInvitationSent,
		ConfirmationDeadline: &deadline,
	}
	h.store.PutInterview(iv)

	h.scheduler.RunCycle(context.Background())

	// The breached invitation is expired.
	expired, err := h.store.GetInterview(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExpired, expired.Status)

	// The holder is vacated and the buffer candidate takes the rank.
	vacated, err := h.store.GetApplication(context.Background(), held.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ShortlistRejected, vacated.Shortlist)

	promoted, err := h.store.GetApplication(context.Background(), buffered.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ShortlistShortlisted, promoted.Shortlist)
	assert.Equal(t, 1, promoted.Rank)

	// The pending candidate backfills the buffer.
	backfilled, err := h.store.GetApplication(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ShortlistBuffer, backfilled.Shortlist)

	// Exactly one promotion and one backfill, plus the expiry record.
	assert.Len(t, h.store.LogsByAction(types.ActionInterviewExpired), 1)
	assert.Len(t, h.store.LogsByAction(types.ActionBufferPromotion), 1)
	assert.Len(t, h.store.LogsByAction(types.ActionBufferBackfill), 1)

	// The promoted candidate received a fresh invitation.
	ivs, err := h.store.ListInterviewsByApplication(context.Background(), buffered.ID)
	require.NoError(t, err)
	require.Len(t, ivs, 1)
	assert.Equal(t, types.StatusInvitationSent, ivs[0].Status)

	report := h.collector.SchedulerCycles(60)
	assert.Equal(t, 1, report.Cycles)
	assert.Equal(t, 1, report.Successes)
}

func TestRunCycle_ExpiredSlotSelection(t *testing.T) {
	h := newHarness()
	job := h.seedJob(1, 0)
	app := h.seedApplication(job.ID, 90, types.ShortlistShortlisted, 1)

	deadline := time.Now().UTC().Add(-time.Minute)
	iv := types.Interview{
		ID:                    uuid.New(),
		ApplicationID:         app.ID,
		JobID:                 job.ID,
		CandidateID:           app.CandidateID,
		RankAtTime:            1,
		Status:                types.StatusSlotPending,
		SlotSelectionDeadline: &deadline,
	}
	h.store.PutInterview(iv)

	h.scheduler.RunCycle(context.Background())

	expired, err := h.store.GetInterview(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExpired, expired.Status)

	// Empty buffer: the vacancy stays open, recorded as a skip.
	assert.Len(t, h.store.LogsByAction(types.ActionPromotionSkipped), 1)
}

func TestRunCycle_NonShortlistedExpiryDoesNotPromote(t *testing.T) {
	h := newHarness()
	job := h.seedJob(2, 2)
	app := h.seedApplication(job.ID, 60, types.ShortlistRejected, 0)
	h.seedApplication(job.ID, 85, types.ShortlistBuffer, 3)

	deadline := time.Now().UTC().Add(-time.Hour)
	iv := types.Interview{
		ID:                   uuid.New(),
		ApplicationID:        app.ID,
		JobID:                job.ID,
		CandidateID:          app.CandidateID,
		RankAtTime:           1,
		Status:               types.StatusInvitationSent,
		ConfirmationDeadline: &deadline,
	}
	h.store.PutInterview(iv)

	h.scheduler.RunCycle(context.Background())

	assert.Len(t, h.store.LogsByAction(types.ActionInterviewExpired), 1)
	assert.Empty(t, h.store.LogsByAction(types.ActionBufferPromotion))
}

func TestRunCycle_SendsRemindersOnce(t *testing.T) {
	h := newHarness()
	job := h.seedJob(1, 0)

	scheduled := time.Now().UTC().Add(6 * time.Hour)
	iv := types.Interview{
		ID:            uuid.New(),
		ApplicationID: uuid.New(),
		JobID:         job.ID,
		CandidateID:   uuid.New(),
		RankAtTime:    1,
		Status:        types.StatusConfirmed,
		ScheduledTime: &scheduled,
	}
	h.store.PutInterview(iv)

	h.scheduler.RunCycle(context.Background())
	require.Len(t, h.mailer.messages, 1)
	assert.Equal(t, notify.TemplateReminder, h.mailer.messages[0].Template)

	reminded, err := h.store.GetInterview(context.Background(), iv.ID)
	require.NoError(t, err)
	require.NotNil(t, reminded.ReminderSentAt)

	// A second cycle must not remind again.
	h.scheduler.RunCycle(context.Background())
	assert.Len(t, h.mailer.messages, 1)
	assert.Len(t, h.store.LogsByAction(types.ActionReminderSent), 1)

	// The delivery metric reflects the queuer-independent success sample.
	deliveries := h.collector.Deliveries(60).ByKind["email"]
	assert.Equal(t, 1, deliveries.Total)
	assert.Equal(t, 1, deliveries.Successes)
}

func TestRunCycle_ReminderOutsideWindowSkipped(t *testing.T) {
	h := newHarness()
	job := h.seedJob(1, 0)

	scheduled := time.Now().UTC().Add(72 * time.Hour)
	iv := types.Interview{
		ID:            uuid.New(),
		ApplicationID: uuid.New(),
		JobID:         job.ID,
		CandidateID:   uuid.New(),
		Status:        types.StatusConfirmed,
		ScheduledTime: &scheduled,
	}
	h.store.PutInterview(iv)

	h.scheduler.RunCycle(context.Background())
	assert.Empty(t, h.mailer.messages)
}

func TestRunCycle_SubHourReminderWindow(t *testing.T) {
	h := newHarness()
	h.scheduler.cfg.ReminderWindow = 30 * time.Minute
	job := h.seedJob(1, 0)

	scheduled := time.Now().UTC().Add(20 * time.Minute)
	iv := types.Interview{
		ID:            uuid.New(),
		ApplicationID: uuid.New(),
		JobID:         job.ID,
		CandidateID:   uuid.New(),
		Status:        types.StatusConfirmed,
		ScheduledTime: &scheduled,
	}
	h.store.PutInterview(iv)

	// The window rounds up to a full hour instead of collapsing to zero.
	h.scheduler.RunCycle(context.Background())
	require.Len(t, h.mailer.messages, 1)
	assert.Equal(t, 1, h.collector.SchedulerCycles(60).Successes)
}

func TestRunCycle_ReminderSendFailureIsNonFatal(t *testing.T) {
	h := newHarness()
	h.mailer.fail = true
	job := h.seedJob(1, 0)

	scheduled := time.Now().UTC().Add(6 * time.Hour)
	iv := types.Interview{
		ID:            uuid.New(),
		ApplicationID: uuid.New(),
		JobID:         job.ID,
		CandidateID:   uuid.New(),
		Status:        types.StatusConfirmed,
		ScheduledTime: &scheduled,
	}
	h.store.PutInterview(iv)

	h.scheduler.RunCycle(context.Background())

	// The failed send leaves the interview unmarked so a later cycle retries.
	stored, err := h.store.GetInterview(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReminderSentAt)

	report := h.collector.SchedulerCycles(60)
	assert.Equal(t, 1, report.Successes)

	deliveries := h.collector.Deliveries(60).ByKind["email"]
	assert.Equal(t, 1, deliveries.Total)
	assert.Equal(t, 0, deliveries.Successes)
}

func TestTick_SkipsWhenCycleInFlight(t *testing.T) {
	h := newHarness()

	// Hold the in-flight marker to simulate a long-running cycle.
	require.True(t, h.scheduler.running.CompareAndSwap(false, true))
	h.scheduler.tick(context.Background())
	h.scheduler.running.Store(false)

	entries := h.store.LogsByAction(types.ActionCycleSkipped)
	require.Len(t, entries, 1)
	assert.Equal(t, "cycle_in_flight", entries[0].Details["reason"])
	assert.Equal(t, 0, h.collector.SchedulerCycles(60).Cycles)
}

// gateStore blocks the expiry read until released, holding a cycle in flight.
type gateStore struct {
	*memstore.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gateStore) ListExpiredInvitations(ctx context.Context, now time.Time) ([]types.Interview, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Store.ListExpiredInvitations(ctx, now)
}

func TestTick_OverlappingTickSkippedWhileCycleRuns(t *testing.T) {
	store := memstore.New()
	gate := &gateStore{Store: store, entered: make(chan struct{}, 2), release: make(chan struct{})}
	logger := zap.NewNop()
	machine := interview.NewMachine(gate, logger)
	collector := metrics.NewCollector(time.Hour)
	manager := shortlist.NewManager(store, machine, store, nil, collector, logger, shortlist.DefaultConfig())
	sched := New(machine, manager, store, store, &captureMailer{}, collector, logger, DefaultConfig())

	ctx := context.Background()
	sched.tick(ctx)
	<-gate.entered // first cycle is now in flight

	// A tick arriving mid-cycle must be skipped and logged, not queued.
	sched.tick(ctx)
	entries := store.LogsByAction(types.ActionCycleSkipped)
	require.Len(t, entries, 1)
	assert.Equal(t, "cycle_in_flight", entries[0].Details["reason"])

	close(gate.release)
	sched.done.Wait()
	assert.Equal(t, 1, collector.SchedulerCycles(60).Cycles)

	// With the first cycle finished, the next tick runs again.
	sched.tick(ctx)
	sched.done.Wait()
	assert.Equal(t, 2, collector.SchedulerCycles(60).Cycles)
}

func TestScheduler_StartStop(t *testing.T) {
	h := newHarness()
	h.scheduler.cfg.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.scheduler.Start(ctx)
	time.Sleep(35 * time.Millisecond)
	h.scheduler.Stop()

	assert.Greater(t, h.collector.SchedulerCycles(60).Cycles, 0)

	// Stop is idempotent.
	h.scheduler.Stop()
}
