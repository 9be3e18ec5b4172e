// Package booking drives the candidate-facing steps of the interview
// negotiation: accepting an invitation, selecting a slot, and confirming.
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/calendar"
	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/metrics"
	"github.com/jonathan/hiring-orchestrator/internal/notify"
	"github.com/jonathan/hiring-orchestrator/internal/shortlist"
	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// Service coordinates state machine transitions with the calendar gateway and
// outbound notifications. Calendar and email failures are absorbed here; a
// confirmation always succeeds once the status transition is valid.
type Service struct {
	machine   *interview.Machine
	gateway   *calendar.Gateway
	logs      shortlist.Logbook
	mailer    notify.Queuer
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewService creates a booking service with injected dependencies.
func NewService(machine *interview.Machine, gateway *calendar.Gateway, logs shortlist.Logbook, mailer notify.Queuer, collector *metrics.Collector, logger *zap.Logger) *Service {
	return &Service{
		machine:   machine,
		gateway:   gateway,
		logs:      logs,
		mailer:    mailer,
		collector: collector,
		logger:    logger,
	}
}

// AcceptInvitation moves an invitation to slot_pending.
func (s *Service) AcceptInvitation(ctx context.Context, interviewID uuid.UUID) (*types.Interview, error) {
	status := types.StatusSlotPending
	return s.machine.Update(ctx, interviewID, &types.UpdateInterviewRequest{Status: &status})
}

// AvailableSlots returns the recruiter's open slots for the interview's job
// via the protected gateway.
func (s *Service) AvailableSlots(ctx context.Context, interviewID uuid.UUID, from, to time.Time) ([]calendar.Slot, error) {
	iv, err := s.machine.Get(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetAvailableSlots(ctx, iv.RecruiterID, from, to)
}

// ConfirmSlot confirms an interview at the chosen time and creates the
// calendar event. Event creation going through the breaker is non-fatal: on
// failure the interview keeps a manual sync method and the confirmation
// stands, with the failure recorded in the automation log.
func (s *Service) ConfirmSlot(ctx context.Context, interviewID uuid.UUID, scheduledTime time.Time) (*types.Interview, error) {
	status := types.StatusConfirmed
	iv, err := s.machine.Update(ctx, interviewID, &types.UpdateInterviewRequest{
		Status:        &status,
		ScheduledTime: &scheduledTime,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.CreateEvent(ctx, interviewID)
	if err != nil || !result.Success {
		s.logger.Warn("calendar event creation failed, falling back to manual sync",
			zap.String("interview_id", interviewID.String()),
			zap.Error(err))
		s.appendLog(ctx, iv.JobID, types.ActionCalendarCreationFailed, map[string]any{
			"interview_id": interviewID.String(),
		})

		method := types.SyncManual
		iv, err = s.machine.Update(ctx, interviewID, &types.UpdateInterviewRequest{CalendarSyncMethod: &method})
		if err != nil {
			return nil, err
		}
	} else {
		method := types.SyncAPI
		iv, err = s.machine.Update(ctx, interviewID, &types.UpdateInterviewRequest{
			CalendarEventID:    &result.EventID,
			CalendarSyncMethod: &method,
		})
		if err != nil {
			return nil, err
		}
	}

	s.queueEmail(ctx, notify.Message{
		To:       iv.CandidateID.String(),
		Template: notify.TemplateConfirmation,
		Data: map[string]any{
			"interview_id":   interviewID.String(),
			"scheduled_time": scheduledTime,
		},
	})
	return iv, nil
}

// queueEmail is fire-and-forget; failures are logged, never propagated. The
// delivery sample is recorded here so every Queuer implementation feeds the
// same metrics.
func (s *Service) queueEmail(ctx context.Context, msg notify.Message) {
	if err := s.mailer.QueueEmail(ctx, msg); err != nil {
		s.logger.Error("failed to queue email",
			zap.String("template", msg.Template),
			zap.Error(err))
		s.collector.RecordDelivery("email", false)
		return
	}
	s.collector.RecordDelivery("email", true)
}

func (s *Service) appendLog(ctx context.Context, jobID uuid.UUID, action types.AutomationAction, details map[string]any) {
	entry := &types.AutomationLogEntry{
		ID:        uuid.New(),
		JobID:     jobID,
		Action:    action,
		Trigger:   types.TriggerAuto,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.logs.AppendLog(ctx, entry); err != nil {
		s.logger.Error("failed to append automation log", zap.Error(err))
	}
}
