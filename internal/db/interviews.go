package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

const interviewColumns = `id, application_id, job_id, recruiter_id, candidate_id,
	rank_at_time, status, confirmation_deadline, slot_selection_deadline,
	scheduled_time, reminder_sent_at, calendar_event_id, calendar_sync_method,
	no_show_risk, created_at, updated_at`

func scanInterview(row pgx.Row) (*types.Interview, error) {
	var iv types.Interview
	var eventID *string
	err := row.Scan(
		&iv.ID, &iv.ApplicationID, &iv.JobID, &iv.RecruiterID, &iv.CandidateID,
		&iv.RankAtTime, &iv.Status, &iv.ConfirmationDeadline, &iv.SlotSelectionDeadline,
		&iv.ScheduledTime, &iv.ReminderSentAt, &eventID, &iv.CalendarSyncMethod,
		&iv.NoShowRisk, &iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if eventID != nil {
		iv.CalendarEventID = *eventID
	}
	return &iv, nil
}

func collectInterviews(rows pgx.Rows) ([]types.Interview, error) {
	defer rows.Close()
	var out []types.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}

// CreateInterview inserts a new interview record.
func (db *DB) CreateInterview(ctx context.Context, iv *types.Interview) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO interviews (id, application_id, job_id, recruiter_id, candidate_id,
			rank_at_time, status, confirmation_deadline, slot_selection_deadline,
			scheduled_time, reminder_sent_at, calendar_event_id, calendar_sync_method,
			no_show_risk, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		iv.ID, iv.ApplicationID, iv.JobID, iv.RecruiterID, iv.CandidateID,
		iv.RankAtTime, iv.Status, iv.ConfirmationDeadline, iv.SlotSelectionDeadline,
		iv.ScheduledTime, iv.ReminderSentAt, iv.CalendarEventID, iv.CalendarSyncMethod,
		iv.NoShowRisk, iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interview: %w", err)
	}
	return nil
}

// GetInterview retrieves an interview by id, or nil when absent.
func (db *DB) GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error) {
	iv, err := scanInterview(db.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return iv, nil
}

// UpdateInterview persists the mutable fields of an interview.
func (db *DB) UpdateInterview(ctx context.Context, iv *types.Interview) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE interviews SET status = $1, confirmation_deadline = $2,
			slot_selection_deadline = $3, scheduled_time = $4, reminder_sent_at = $5,
			calendar_event_id = $6, calendar_sync_method = $7, no_show_risk = $8,
			updated_at = $9
		 WHERE id = $10`,
		iv.Status, iv.ConfirmationDeadline, iv.SlotSelectionDeadline,
		iv.ScheduledTime, iv.ReminderSentAt, iv.CalendarEventID, iv.CalendarSyncMethod,
		iv.NoShowRisk, iv.UpdatedAt, iv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("interview not found: %s", iv.ID)
	}
	return nil
}

// ListInterviewsByStatus retrieves interviews in a status, most recent first.
func (db *DB) ListInterviewsByStatus(ctx context.Context, status types.InterviewStatus) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE status = $1 ORDER BY created_at DESC`,
		status)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews by status: %w", err)
	}
	return collectInterviews(rows)
}

// ListInterviewsByJob retrieves a job's interviews, most recent first.
func (db *DB) ListInterviewsByJob(ctx context.Context, jobID uuid.UUID) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE job_id = $1 ORDER BY created_at DESC`,
		jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews by job: %w", err)
	}
	return collectInterviews(rows)
}

// ListInterviewsByCandidate retrieves a candidate's interviews, most recent first.
func (db *DB) ListInterviewsByCandidate(ctx context.Context, candidateID uuid.UUID) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE candidate_id = $1 ORDER BY created_at DESC`,
		candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews by candidate: %w", err)
	}
	return collectInterviews(rows)
}

// ListInterviewsByApplication retrieves an application's interviews, most recent first.
func (db *DB) ListInterviewsByApplication(ctx context.Context, applicationID uuid.UUID) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE application_id = $1 ORDER BY created_at DESC`,
		applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews by application: %w", err)
	}
	return collectInterviews(rows)
}

// ListExpiredInvitations retrieves invitation_sent interviews whose
// confirmation deadline has passed.
func (db *DB) ListExpiredInvitations(ctx context.Context, now time.Time) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE status = $1 AND confirmation_deadline IS NOT NULL AND confirmation_deadline < $2
		 ORDER BY confirmation_deadline ASC`,
		types.StatusInvitationSent, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired invitations: %w", err)
	}
	return collectInterviews(rows)
}

// ListExpiredSlotSelections retrieves slot_pending interviews whose slot
// selection deadline has passed.
func (db *DB) ListExpiredSlotSelections(ctx context.Context, now time.Time) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE status = $1 AND slot_selection_deadline IS NOT NULL AND slot_selection_deadline < $2
		 ORDER BY slot_selection_deadline ASC`,
		types.StatusSlotPending, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired slot selections: %w", err)
	}
	return collectInterviews(rows)
}

// ListUpcomingConfirmed retrieves confirmed interviews scheduled within
// [from, to], ordered ascending by scheduled time.
func (db *DB) ListUpcomingConfirmed(ctx context.Context, from, to time.Time) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE status = $1 AND scheduled_time >= $2 AND scheduled_time <= $3
		 ORDER BY scheduled_time ASC`,
		types.StatusConfirmed, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming interviews: %w", err)
	}
	return collectInterviews(rows)
}
