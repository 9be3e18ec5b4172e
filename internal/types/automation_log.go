package types

import (
	"time"

	"github.com/google/uuid"
)

// TriggerSource distinguishes automated actions from recruiter-initiated ones.
type TriggerSource string

// TriggerSource values.
const (
	TriggerAuto   TriggerSource = "auto"
	TriggerManual TriggerSource = "manual"
)

// AutomationAction names the kinds of actions recorded in the automation log.
type AutomationAction string

// AutomationAction values.
const (
	ActionAutoShortlist          AutomationAction = "auto_shortlist"
	ActionInvitationSent         AutomationAction = "invitation_sent"
	ActionInterviewExpired       AutomationAction = "interview_expired"
	ActionBufferPromotion        AutomationAction = "buffer_promotion"
	ActionPromotionSkipped       AutomationAction = "promotion_skipped"
	ActionBufferBackfill         AutomationAction = "buffer_backfill"
	ActionReminderSent           AutomationAction = "reminder_sent"
	ActionCalendarCreationFailed AutomationAction = "calendar_creation_failed"
	ActionCycleSkipped           AutomationAction = "cycle_skipped"
)

// AutomationLogEntry is an append-only audit record of one automation action.
// Entries are never mutated or deleted by the orchestrator.
type AutomationLogEntry struct {
	ID        uuid.UUID        `json:"id"`
	JobID     uuid.UUID        `json:"job_id"`
	Action    AutomationAction `json:"action"`
	Trigger   TriggerSource    `json:"trigger"`
	ActorID   uuid.UUID        `json:"actor_id,omitempty"`
	Details   map[string]any   `json:"details,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
