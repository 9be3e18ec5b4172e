package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateInterviewRequest carries the fields required to issue an interview
// invitation. All references are mandatory; NoShowRisk must stay within [0, 1].
type CreateInterviewRequest struct {
	ApplicationID uuid.UUID `json:"application_id" validate:"required"`
	JobID         uuid.UUID `json:"job_id" validate:"required"`
	RecruiterID   uuid.UUID `json:"recruiter_id" validate:"required"`
	CandidateID   uuid.UUID `json:"candidate_id" validate:"required"`
	RankAtTime    int       `json:"rank_at_time" validate:"min=1"`

	ConfirmationDeadline  *time.Time `json:"confirmation_deadline,omitempty"`
	SlotSelectionDeadline *time.Time `json:"slot_selection_deadline,omitempty"`

	// NoShowRisk defaults to 0.5 when nil.
	NoShowRisk *float64 `json:"no_show_risk,omitempty"`
}

// UpdateInterviewRequest carries a partial update for an interview. Nil fields
// are left untouched; Status changes go through the state machine's
// transition table.
type UpdateInterviewRequest struct {
	Status                *InterviewStatus    `json:"status,omitempty"`
	ConfirmationDeadline  *time.Time          `json:"confirmation_deadline,omitempty"`
	SlotSelectionDeadline *time.Time          `json:"slot_selection_deadline,omitempty"`
	ScheduledTime         *time.Time          `json:"scheduled_time,omitempty"`
	ReminderSentAt        *time.Time          `json:"reminder_sent_at,omitempty"`
	CalendarEventID       *string             `json:"calendar_event_id,omitempty"`
	CalendarSyncMethod    *CalendarSyncMethod `json:"calendar_sync_method,omitempty"`
	NoShowRisk            *float64            `json:"no_show_risk,omitempty"`
}

// Validate validates the CreateInterviewRequest using the validator.
func (r *CreateInterviewRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
