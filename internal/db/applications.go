package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

const applicationColumns = `id, job_id, candidate_id, fit_score, rank,
	shortlist_status, cover_letter, address, resume_url, submitted_at`

func scanApplication(row pgx.Row) (*types.Application, error) {
	var app types.Application
	var coverLetter, address, resumeURL *string
	err := row.Scan(
		&app.ID, &app.JobID, &app.CandidateID, &app.FitScore, &app.Rank,
		&app.Shortlist, &coverLetter, &address, &resumeURL, &app.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	if coverLetter != nil {
		app.CoverLetter = *coverLetter
	}
	if address != nil {
		app.Address = *address
	}
	if resumeURL != nil {
		app.ResumeURL = *resumeURL
	}
	return &app, nil
}

// GetApplication retrieves an application by id, or nil when absent.
func (db *DB) GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error) {
	app, err := scanApplication(db.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// ListApplicationsByJob retrieves a job's applications ordered by fit score
// descending, earliest submission first on ties.
func (db *DB) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]types.Application, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE job_id = $1
		 ORDER BY fit_score DESC, submitted_at ASC`,
		jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []types.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// UpdateApplicationShortlist sets an application's shortlist status and rank.
func (db *DB) UpdateApplicationShortlist(ctx context.Context, applicationID uuid.UUID, status types.ShortlistStatus, rank int) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE applications SET shortlist_status = $1, rank = $2 WHERE id = $3`,
		status, rank, applicationID)
	if err != nil {
		return fmt.Errorf("failed to update application shortlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("application not found: %s", applicationID)
	}
	return nil
}

// GetJob retrieves a job's shortlisting configuration, or nil when absent.
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	var job types.Job
	err := db.pool.QueryRow(ctx,
		`SELECT id, recruiter_id, title, number_of_openings, shortlisting_buffer,
			applications_open, automation_enabled
		 FROM jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.RecruiterID, &job.Title, &job.NumberOfOpenings,
		&job.ShortlistBuffer, &job.ApplicationsOpen, &job.AutomationEnabled)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// GetCandidate retrieves the profile slice used by risk analysis, or nil
// when absent.
func (db *DB) GetCandidate(ctx context.Context, id uuid.UUID) (*types.Candidate, error) {
	var c types.Candidate
	var phone *string
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, phone FROM users WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &phone)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	if phone != nil {
		c.Phone = *phone
	}
	return &c, nil
}
