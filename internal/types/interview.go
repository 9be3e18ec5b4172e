// Package types provides type definitions for structured data used throughout the hiring orchestrator.
package types

import (
	"time"

	"github.com/google/uuid"
)

// InterviewStatus represents the lifecycle state of an interview.
type InterviewStatus string

// InterviewStatus values enumerate the interview lifecycle states.
const (
	StatusInvitationSent InterviewStatus = "invitation_sent"
	StatusSlotPending    InterviewStatus = "slot_pending"
	StatusConfirmed      InterviewStatus = "confirmed"
	StatusCompleted      InterviewStatus = "completed"
	StatusCancelled      InterviewStatus = "cancelled"
	StatusNoShow         InterviewStatus = "no_show"
	StatusExpired        InterviewStatus = "expired"
)

// IsTerminal reports whether the status is a final state that allows no
// further transitions.
func (s InterviewStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow, StatusExpired:
		return true
	}
	return false
}

// CalendarSyncMethod records how an interview's calendar event was created.
type CalendarSyncMethod string

// CalendarSyncMethod values.
const (
	SyncAPI    CalendarSyncMethod = "api"
	SyncManual CalendarSyncMethod = "manual"
)

// Interview represents a single interview negotiation between a candidate
// and a recruiter for a job opening.
type Interview struct {
	ID            uuid.UUID `json:"id"`
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
	RecruiterID   uuid.UUID `json:"recruiter_id"`
	CandidateID   uuid.UUID `json:"candidate_id"`

	// RankAtTime is the candidate's rank when the invitation was issued.
	RankAtTime int             `json:"rank_at_time"`
	Status     InterviewStatus `json:"status"`

	ConfirmationDeadline  *time.Time `json:"confirmation_deadline,omitempty"`
	SlotSelectionDeadline *time.Time `json:"slot_selection_deadline,omitempty"`
	ScheduledTime         *time.Time `json:"scheduled_time,omitempty"`
	ReminderSentAt        *time.Time `json:"reminder_sent_at,omitempty"`

	CalendarEventID    string             `json:"calendar_event_id,omitempty"`
	CalendarSyncMethod CalendarSyncMethod `json:"calendar_sync_method"`

	// NoShowRisk is the estimated probability the candidate does not attend,
	// always within [0, 1].
	NoShowRisk float64 `json:"no_show_risk"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
