package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// AppendLog inserts an automation log entry. The table is append-only; the
// orchestrator never updates or deletes entries.
func (db *DB) AppendLog(ctx context.Context, entry *types.AutomationLogEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal log details: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO automation_logs (id, job_id, action, trigger_source, actor_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.JobID, entry.Action, entry.Trigger, entry.ActorID, details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append automation log: %w", err)
	}
	return nil
}

// ListLogsByJob retrieves a job's automation log entries, most recent first.
func (db *DB) ListLogsByJob(ctx context.Context, jobID uuid.UUID, limit int) ([]types.AutomationLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_id, action, trigger_source, actor_id, details, created_at
		 FROM automation_logs WHERE job_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list automation logs: %w", err)
	}
	defer rows.Close()

	var entries []types.AutomationLogEntry
	for rows.Next() {
		var e types.AutomationLogEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.JobID, &e.Action, &e.Trigger, &e.ActorID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan automation log: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal log details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestNegotiationRound returns the round count of the most recent
// negotiation session for an interview, and whether one exists.
func (db *DB) LatestNegotiationRound(ctx context.Context, interviewID uuid.UUID) (int, bool, error) {
	var round int
	err := db.pool.QueryRow(ctx,
		`SELECT round FROM negotiation_sessions
		 WHERE interview_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		interviewID,
	).Scan(&round)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get negotiation round: %w", err)
	}
	return round, true, nil
}

// ListPastOutcomes returns the terminal statuses of a candidate's previous
// interviews, excluding the given one.
func (db *DB) ListPastOutcomes(ctx context.Context, candidateID, excludeInterviewID uuid.UUID) ([]types.InterviewStatus, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT status FROM interviews
		 WHERE candidate_id = $1 AND id != $2
		   AND status IN ('completed', 'no_show', 'cancelled')`,
		candidateID, excludeInterviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list past outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []types.InterviewStatus
	for rows.Next() {
		var status types.InterviewStatus
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, status)
	}
	return outcomes, rows.Err()
}
