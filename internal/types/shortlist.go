package types

import (
	"time"

	"github.com/google/uuid"
)

// ShortlistStatus represents where an application sits in the shortlisting
// funnel for its job.
type ShortlistStatus string

// ShortlistStatus values.
const (
	ShortlistPending     ShortlistStatus = "pending"
	ShortlistShortlisted ShortlistStatus = "shortlisted"
	ShortlistBuffer      ShortlistStatus = "buffer"
	ShortlistRejected    ShortlistStatus = "rejected"
)

// Application represents a candidate's application to a job, carrying the
// externally computed fit score the orchestrator ranks by.
type Application struct {
	ID          uuid.UUID       `json:"id"`
	JobID       uuid.UUID       `json:"job_id"`
	CandidateID uuid.UUID       `json:"candidate_id"`
	FitScore    float64         `json:"fit_score"`
	Rank        int             `json:"rank"`
	Shortlist   ShortlistStatus `json:"shortlist_status"`

	CoverLetter string `json:"cover_letter,omitempty"`
	Address     string `json:"address,omitempty"`
	ResumeURL   string `json:"resume_url,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// Job holds the shortlisting configuration the automation reads for a posting.
type Job struct {
	ID                uuid.UUID `json:"id"`
	RecruiterID       uuid.UUID `json:"recruiter_id"`
	Title             string    `json:"title"`
	NumberOfOpenings  int       `json:"number_of_openings"`
	ShortlistBuffer   int       `json:"shortlisting_buffer"`
	ApplicationsOpen  bool      `json:"applications_open"`
	AutomationEnabled bool      `json:"automation_enabled"`
}

// ShortlistCounts summarizes a job's shortlisting funnel for dashboards.
type ShortlistCounts struct {
	Shortlisted int `json:"shortlisted"`
	Buffer      int `json:"buffer"`
	Pending     int `json:"pending"`
	Rejected    int `json:"rejected"`
	Total       int `json:"total"`
}
