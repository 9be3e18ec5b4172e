package interview

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/memstore"
	"github.com/jonathan/hiring-orchestrator/internal/types"
)

func newTestMachine() (*Machine, *memstore.Store) {
	store := memstore.New()
	return NewMachine(store, zap.NewNop()), store
}

func validCreateRequest() *types.CreateInterviewRequest {
	return &types.CreateInterviewRequest{
		ApplicationID: uuid.New(),
		JobID:         uuid.New(),
		RecruiterID:   uuid.New(),
		CandidateID:   uuid.New(),
		RankAtTime:    1,
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to types.InterviewStatus
		want     bool
	}{
		{types.StatusInvitationSent, types.StatusSlotPending, true},
		{types.StatusInvitationSent, types.StatusCancelled, true},
		{types.StatusInvitationSent, types.StatusExpired, true},
		{types.StatusInvitationSent, types.StatusConfirmed, false},
		{types.StatusSlotPending, types.StatusConfirmed, true},
		{types.StatusSlotPending, types.StatusExpired, true},
		{types.StatusSlotPending, types.StatusCancelled, false},
		{types.StatusConfirmed, types.StatusCompleted, true},
		{types.StatusConfirmed, types.StatusNoShow, true},
		{types.StatusConfirmed, types.StatusCancelled, true},
		{types.StatusConfirmed, types.StatusInvitationSent, false},
		{types.StatusCompleted, types.StatusConfirmed, false},
		{types.StatusExpired, types.StatusInvitationSent, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransition_SelfTransitionAllowed(t *testing.T) {
	for from := range transitions {
		assert.True(t, CanTransition(from, from), "%s -> %s", from, from)
	}
}

func TestTerminalStatuses_HaveNoOutgoingEdges(t *testing.T) {
	for from, next := range transitions {
		if from.IsTerminal() {
			assert.Empty(t, next, "terminal status %s", from)
		} else {
			assert.NotEmpty(t, next, "non-terminal status %s", from)
		}
	}
}

func TestCreate_Defaults(t *testing.T) {
	m, _ := newTestMachine()

	iv, err := m.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvitationSent, iv.Status)
	assert.Equal(t, types.SyncAPI, iv.CalendarSyncMethod)
	assert.Equal(t, 0.5, iv.NoShowRisk)
	assert.NotEqual(t, uuid.Nil, iv.ID)
}

func TestCreate_ExplicitRiskStored(t *testing.T) {
	m, _ := newTestMachine()

	req := validCreateRequest()
	risk := 0.3
	req.NoShowRisk = &risk

	iv, err := m.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0.3, iv.NoShowRisk)
}

func TestCreate_RiskOutOfRange(t *testing.T) {
	m, _ := newTestMachine()

	for _, risk := range []float64{-0.1, 1.5} {
		req := validCreateRequest()
		req.NoShowRisk = &risk

		_, err := m.Create(context.Background(), req)
		var verr *ErrValidation
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "no_show_risk", verr.Field)
	}
}

func TestCreate_MissingReferences(t *testing.T) {
	m, _ := newTestMachine()

	req := validCreateRequest()
	req.CandidateID = uuid.Nil

	_, err := m.Create(context.Background(), req)
	var verr *ErrValidation
	require.ErrorAs(t, err, &verr)
}

func TestUpdate_LegalTransition(t *testing.T) {
	m, _ := newTestMachine()

	iv, err := m.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	status := types.StatusSlotPending
	updated, err := m.Update(context.Background(), iv.ID, &types.UpdateInterviewRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSlotPending, updated.Status)
}

func TestUpdate_IllegalTransitionLeavesRecordUntouched(t *testing.T) {
	m, store := newTestMachine()

	iv, err := m.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	status := types.StatusCompleted
	_, err = m.Update(context.Background(), iv.ID, &types.UpdateInterviewRequest{Status: &status})

	var terr *ErrStateTransition
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, types.StatusInvitationSent, terr.Current)
	assert.Equal(t, types.StatusCompleted, terr.Requested)
	assert.Contains(t, terr.Error(), "allowed next states")

	stored, err := store.GetInterview(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvitationSent, stored.Status)
	assert.Equal(t, iv.UpdatedAt, stored.UpdatedAt)
}

func TestUpdate_TerminalStatusRejectsAll(t *testing.T) {
	m, store := newTestMachine()

	iv, err := m.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	iv.Status = types.StatusCompleted
	store.PutInterview(*iv)

	status := types.StatusConfirmed
	_, err = m.Update(context.Background(), iv.ID, &types.UpdateInterviewRequest{Status: &status})

	var terr *ErrStateTransition
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, terr.Error(), "none (terminal)")
}

func TestUpdate_SelfTransitionIsNoOp(t *testing.T) {
	m, _ := newTestMachine()

	iv, err := m.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	status := types.StatusInvitationSent
	updated, err := m.Update(context.Background(), iv.ID, &types.UpdateInterviewRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInvitationSent, updated.Status)
}

func TestUpdate_NonStatusFields(t *testing.T) {
	m, _ := newTestMachine()

	iv, err := m.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	scheduled := time.Now().UTC().Add(48 * time.Hour)
	eventID := "evt_123"
	risk := 0.8
	updated, err := m.Update(context.Background(), iv.ID, &types.UpdateInterviewRequest{
		ScheduledTime:   &scheduled,
		CalendarEventID: &eventID,
		NoShowRisk:      &risk,
	})
	require.NoError(t, err)
	assert.Equal(t, scheduled, *updated.ScheduledTime)
	assert.Equal(t, "evt_123", updated.CalendarEventID)
	assert.Equal(t, 0.8, updated.NoShowRisk)
}

func TestUpdate_RiskOutOfRange(t *testing.T) {
	m, _ := newTestMachine()

	iv, err := m.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	risk := 1.2
	_, err = m.Update(context.Background(), iv.ID, &types.UpdateInterviewRequest{NoShowRisk: &risk})
	var verr *ErrValidation
	require.ErrorAs(t, err, &verr)
}

func TestGet_NotFound(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.Get(context.Background(), uuid.New())
	var nerr *ErrNotFound
	require.ErrorAs(t, err, &nerr)
}

func TestGetExpiredInterviews(t *testing.T) {
	m, store := newTestMachine()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m.WithClock(func() time.Time { return now })

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expiredInvite := types.Interview{ID: uuid.New(), Status: types.StatusInvitationSent, ConfirmationDeadline: &past}
	liveInvite := types.Interview{ID: uuid.New(), Status: types.StatusInvitationSent, ConfirmationDeadline: &future}
	expiredSelection := types.Interview{ID: uuid.New(), Status: types.StatusSlotPending, SlotSelectionDeadline: &past}
	confirmed := types.Interview{ID: uuid.New(), Status: types.StatusConfirmed, ConfirmationDeadline: &past}
	store.PutInterview(expiredInvite)
	store.PutInterview(liveInvite)
	store.PutInterview(expiredSelection)
	store.PutInterview(confirmed)

	expired, err := m.GetExpiredInterviews(context.Background())
	require.NoError(t, err)
	require.Len(t, expired.Invitations, 1)
	require.Len(t, expired.SlotSelections, 1)
	assert.Equal(t, expiredInvite.ID, expired.Invitations[0].ID)
	assert.Equal(t, expiredSelection.ID, expired.SlotSelections[0].ID)
}

func TestGetUpcomingInterviews(t *testing.T) {
	m, store := newTestMachine()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m.WithClock(func() time.Time { return now })

	soon := now.Add(6 * time.Hour)
	later := now.Add(48 * time.Hour)
	soonIv := types.Interview{ID: uuid.New(), Status: types.StatusConfirmed, ScheduledTime: &soon}
	laterIv := types.Interview{ID: uuid.New(), Status: types.StatusConfirmed, ScheduledTime: &later}
	store.PutInterview(soonIv)
	store.PutInterview(laterIv)

	upcoming, err := m.GetUpcomingInterviews(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, soonIv.ID, upcoming[0].ID)
}

func TestGetUpcomingInterviews_InvalidWindow(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.GetUpcomingInterviews(context.Background(), 0)
	var verr *ErrValidation
	require.ErrorAs(t, err, &verr)
}

func TestGetByStatus_UnknownStatus(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.GetByStatus(context.Background(), types.InterviewStatus("bogus"))
	var verr *ErrValidation
	require.ErrorAs(t, err, &verr)
}
