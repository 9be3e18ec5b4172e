package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// transitions is the allowed-edges table for interview statuses. A status
// missing from the map, or mapped to an empty slice, is terminal.
var transitions = map[types.InterviewStatus][]types.InterviewStatus{
	types.StatusInvitationSent: {types.StatusSlotPending, types.StatusCancelled, types.StatusExpired},
	types.StatusSlotPending:    {types.StatusConfirmed, types.StatusExpired},
	types.StatusConfirmed:      {types.StatusCompleted, types.StatusNoShow, types.StatusCancelled},
	types.StatusCompleted:      {},
	types.StatusCancelled:      {},
	types.StatusNoShow:         {},
	types.StatusExpired:        {},
}

// AllowedNext returns the legal next statuses from the given status.
func AllowedNext(from types.InterviewStatus) []types.InterviewStatus {
	return transitions[from]
}

// CanTransition reports whether moving from one status to another is legal.
// A self-transition is always allowed as a no-op.
func CanTransition(from, to types.InterviewStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Store is the persistence surface the state machine requires.
type Store interface {
	CreateInterview(ctx context.Context, iv *types.Interview) error
	GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error)
	UpdateInterview(ctx context.Context, iv *types.Interview) error
	ListInterviewsByStatus(ctx context.Context, status types.InterviewStatus) ([]types.Interview, error)
	ListInterviewsByJob(ctx context.Context, jobID uuid.UUID) ([]types.Interview, error)
	ListInterviewsByCandidate(ctx context.Context, candidateID uuid.UUID) ([]types.Interview, error)
	ListInterviewsByApplication(ctx context.Context, applicationID uuid.UUID) ([]types.Interview, error)
	ListExpiredInvitations(ctx context.Context, now time.Time) ([]types.Interview, error)
	ListExpiredSlotSelections(ctx context.Context, now time.Time) ([]types.Interview, error)
	ListUpcomingConfirmed(ctx context.Context, from, to time.Time) ([]types.Interview, error)
}

// Machine validates interview mutations and serves the read paths the
// scheduler and shortlisting manager depend on.
type Machine struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewMachine creates a state machine backed by the given store.
func NewMachine(store Store, logger *zap.Logger) *Machine {
	return &Machine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the machine's clock. Intended for tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Create validates the request and persists a new interview in
// invitation_sent with the provider's default sync method.
func (m *Machine) Create(ctx context.Context, req *types.CreateInterviewRequest) (*types.Interview, error) {
	if err := req.Validate(); err != nil {
		return nil, &ErrValidation{Field: "request", Message: err.Error()}
	}

	risk := 0.5
	if req.NoShowRisk != nil {
		if *req.NoShowRisk < 0 || *req.NoShowRisk > 1 {
			return nil, &ErrValidation{
				Field:   "no_show_risk",
				Message: fmt.Sprintf("must be between 0 and 1, got %v", *req.NoShowRisk),
			}
		}
		risk = *req.NoShowRisk
	}

	now := m.now().UTC()
	iv := &types.Interview{
		ID:                    uuid.New(),
		ApplicationID:         req.ApplicationID,
		JobID:                 req.JobID,
		RecruiterID:           req.RecruiterID,
		CandidateID:           req.CandidateID,
		RankAtTime:            req.RankAtTime,
		Status:                types.StatusInvitationSent,
		ConfirmationDeadline:  req.ConfirmationDeadline,
		SlotSelectionDeadline: req.SlotSelectionDeadline,
		CalendarSyncMethod:    types.SyncAPI,
		NoShowRisk:            risk,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := m.store.CreateInterview(ctx, iv); err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}

	m.logger.Info("interview created",
		zap.String("interview_id", iv.ID.String()),
		zap.String("job_id", iv.JobID.String()),
		zap.Int("rank", iv.RankAtTime))
	return iv, nil
}

// Get retrieves an interview by id.
func (m *Machine) Get(ctx context.Context, id uuid.UUID) (*types.Interview, error) {
	iv, err := m.store.GetInterview(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	if iv == nil {
		return nil, &ErrNotFound{ID: id}
	}
	return iv, nil
}

// Update applies a partial update. A status change must appear in the
// transition table; other fields are updated unconditionally, each subject to
// its own validation. The stored record is never mutated on rejection.
func (m *Machine) Update(ctx context.Context, id uuid.UUID, req *types.UpdateInterviewRequest) (*types.Interview, error) {
	iv, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.NoShowRisk != nil && (*req.NoShowRisk < 0 || *req.NoShowRisk > 1) {
		return nil, &ErrValidation{
			Field:   "no_show_risk",
			Message: fmt.Sprintf("must be between 0 and 1, got %v", *req.NoShowRisk),
		}
	}

	if req.Status != nil && *req.Status != iv.Status {
		if !CanTransition(iv.Status, *req.Status) {
			return nil, &ErrStateTransition{
				Current:   iv.Status,
				Requested: *req.Status,
				Allowed:   AllowedNext(iv.Status),
			}
		}
		m.logger.Info("interview status change",
			zap.String("interview_id", iv.ID.String()),
			zap.String("from", string(iv.Status)),
			zap.String("to", string(*req.Status)))
		iv.Status = *req.Status
	}

	if req.ConfirmationDeadline != nil {
		iv.ConfirmationDeadline = req.ConfirmationDeadline
	}
	if req.SlotSelectionDeadline != nil {
		iv.SlotSelectionDeadline = req.SlotSelectionDeadline
	}
	if req.ScheduledTime != nil {
		iv.ScheduledTime = req.ScheduledTime
	}
	if req.ReminderSentAt != nil {
		iv.ReminderSentAt = req.ReminderSentAt
	}
	if req.CalendarEventID != nil {
		iv.CalendarEventID = *req.CalendarEventID
	}
	if req.CalendarSyncMethod != nil {
		iv.CalendarSyncMethod = *req.CalendarSyncMethod
	}
	if req.NoShowRisk != nil {
		iv.NoShowRisk = *req.NoShowRisk
	}
	iv.UpdatedAt = m.now().UTC()

	if err := m.store.UpdateInterview(ctx, iv); err != nil {
		return nil, fmt.Errorf("failed to update interview: %w", err)
	}
	return iv, nil
}

// ExpiredInterviews holds the two disjoint sets of deadline breaches the
// scheduler sweeps each cycle.
type ExpiredInterviews struct {
	Invitations    []types.Interview // invitation_sent past confirmation_deadline
	SlotSelections []types.Interview // slot_pending past slot_selection_deadline
}

// GetExpiredInterviews returns invitations whose confirmation deadline has
// passed and slot selections whose selection deadline has passed.
func (m *Machine) GetExpiredInterviews(ctx context.Context) (*ExpiredInterviews, error) {
	now := m.now().UTC()

	invitations, err := m.store.ListExpiredInvitations(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired invitations: %w", err)
	}
	selections, err := m.store.ListExpiredSlotSelections(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired slot selections: %w", err)
	}

	return &ExpiredInterviews{Invitations: invitations, SlotSelections: selections}, nil
}

// GetUpcomingInterviews returns confirmed interviews scheduled within
// [now, now+hoursAhead], ordered ascending by scheduled time.
func (m *Machine) GetUpcomingInterviews(ctx context.Context, hoursAhead int) ([]types.Interview, error) {
	if hoursAhead <= 0 {
		return nil, &ErrValidation{Field: "hours_ahead", Message: "must be positive"}
	}
	now := m.now().UTC()
	upcoming, err := m.store.ListUpcomingConfirmed(ctx, now, now.Add(time.Duration(hoursAhead)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming interviews: %w", err)
	}
	return upcoming, nil
}

// GetByStatus returns interviews in the given status, most recent first.
func (m *Machine) GetByStatus(ctx context.Context, status types.InterviewStatus) ([]types.Interview, error) {
	if _, ok := transitions[status]; !ok {
		return nil, &ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status: %s", status)}
	}
	ivs, err := m.store.ListInterviewsByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews by status: %w", err)
	}
	return ivs, nil
}

// GetByJobID returns a job's interviews, most recent first.
func (m *Machine) GetByJobID(ctx context.Context, jobID uuid.UUID) ([]types.Interview, error) {
	ivs, err := m.store.ListInterviewsByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews by job: %w", err)
	}
	return ivs, nil
}

// GetByCandidateID returns a candidate's interviews, most recent first.
func (m *Machine) GetByCandidateID(ctx context.Context, candidateID uuid.UUID) ([]types.Interview, error) {
	ivs, err := m.store.ListInterviewsByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews by candidate: %w", err)
	}
	return ivs, nil
}

// GetByApplicationID returns an application's interviews, most recent first.
func (m *Machine) GetByApplicationID(ctx context.Context, applicationID uuid.UUID) ([]types.Interview, error) {
	ivs, err := m.store.ListInterviewsByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews by application: %w", err)
	}
	return ivs, nil
}
