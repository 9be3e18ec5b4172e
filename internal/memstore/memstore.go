// Package memstore provides an in-memory persistence implementation used in
// development mode and by tests. It mirrors the db package's read/write
// surface with the same nil-on-missing convention.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// Store keeps all orchestrator records in memory behind one mutex.
type Store struct {
	mu           sync.RWMutex
	interviews   map[uuid.UUID]types.Interview
	applications map[uuid.UUID]types.Application
	jobs         map[uuid.UUID]types.Job
	candidates   map[uuid.UUID]types.Candidate
	logs         []types.AutomationLogEntry
	negotiations map[uuid.UUID]int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		interviews:   make(map[uuid.UUID]types.Interview),
		applications: make(map[uuid.UUID]types.Application),
		jobs:         make(map[uuid.UUID]types.Job),
		candidates:   make(map[uuid.UUID]types.Candidate),
		negotiations: make(map[uuid.UUID]int),
	}
}

// PutJob seeds or replaces a job.
func (s *Store) PutJob(job types.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// PutApplication seeds or replaces an application.
func (s *Store) PutApplication(app types.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[app.ID] = app
}

// PutCandidate seeds or replaces a candidate profile.
func (s *Store) PutCandidate(c types.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[c.ID] = c
}

// PutInterview seeds or replaces an interview.
func (s *Store) PutInterview(iv types.Interview) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews[iv.ID] = iv
}

// SetNegotiationRound seeds a negotiation round count for an interview.
func (s *Store) SetNegotiationRound(interviewID uuid.UUID, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.negotiations[interviewID] = round
}

// CreateInterview implements the state machine's store surface.
func (s *Store) CreateInterview(_ context.Context, iv *types.Interview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews[iv.ID] = *iv
	return nil
}

// GetInterview returns an interview by id, or nil when absent.
func (s *Store) GetInterview(_ context.Context, id uuid.UUID) (*types.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iv, ok := s.interviews[id]
	if !ok {
		return nil, nil
	}
	return &iv, nil
}

// UpdateInterview replaces a stored interview.
func (s *Store) UpdateInterview(_ context.Context, iv *types.Interview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews[iv.ID] = *iv
	return nil
}

func (s *Store) listInterviews(filter func(types.Interview) bool, newestFirst bool) []types.Interview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Interview
	for _, iv := range s.interviews {
		if filter(iv) {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ListInterviewsByStatus returns interviews in a status, most recent first.
func (s *Store) ListInterviewsByStatus(_ context.Context, status types.InterviewStatus) ([]types.Interview, error) {
	return s.listInterviews(func(iv types.Interview) bool { return iv.Status == status }, true), nil
}

// ListInterviewsByJob returns a job's interviews, most recent first.
func (s *Store) ListInterviewsByJob(_ context.Context, jobID uuid.UUID) ([]types.Interview, error) {
	return s.listInterviews(func(iv types.Interview) bool { return iv.JobID == jobID }, true), nil
}

// ListInterviewsByCandidate returns a candidate's interviews, most recent first.
func (s *Store) ListInterviewsByCandidate(_ context.Context, candidateID uuid.UUID) ([]types.Interview, error) {
	return s.listInterviews(func(iv types.Interview) bool { return iv.CandidateID == candidateID }, true), nil
}

// ListInterviewsByApplication returns an application's interviews, most recent first.
func (s *Store) ListInterviewsByApplication(_ context.Context, applicationID uuid.UUID) ([]types.Interview, error) {
	return s.listInterviews(func(iv types.Interview) bool { return iv.ApplicationID == applicationID }, true), nil
}

// ListExpiredInvitations returns invitation_sent interviews past their
// confirmation deadline.
func (s *Store) ListExpiredInvitations(_ context.Context, now time.Time) ([]types.Interview, error) {
	return s.listInterviews(func(iv types.Interview) bool {
		return iv.Status == types.StatusInvitationSent &&
			iv.ConfirmationDeadline != nil && iv.ConfirmationDeadline.Before(now)
	}, false), nil
}

// ListExpiredSlotSelections returns slot_pending interviews past their
// selection deadline.
func (s *Store) ListExpiredSlotSelections(_ context.Context, now time.Time) ([]types.Interview, error) {
	return s.listInterviews(func(iv types.Interview) bool {
		return iv.Status == types.StatusSlotPending &&
			iv.SlotSelectionDeadline != nil && iv.SlotSelectionDeadline.Before(now)
	}, false), nil
}

// ListUpcomingConfirmed returns confirmed interviews scheduled within
// [from, to], ascending by scheduled time.
func (s *Store) ListUpcomingConfirmed(_ context.Context, from, to time.Time) ([]types.Interview, error) {
	out := s.listInterviews(func(iv types.Interview) bool {
		return iv.Status == types.StatusConfirmed && iv.ScheduledTime != nil &&
			!iv.ScheduledTime.Before(from) && !iv.ScheduledTime.After(to)
	}, false)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(*out[j].ScheduledTime)
	})
	return out, nil
}

// GetJob returns a job by id, or nil when absent.
func (s *Store) GetJob(_ context.Context, id uuid.UUID) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// GetApplication returns an application by id, or nil when absent.
func (s *Store) GetApplication(_ context.Context, id uuid.UUID) (*types.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	if !ok {
		return nil, nil
	}
	return &app, nil
}

// ListApplicationsByJob returns a job's applications ordered by fit score
// descending, earliest submission first on ties.
func (s *Store) ListApplicationsByJob(_ context.Context, jobID uuid.UUID) ([]types.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Application
	for _, app := range s.applications {
		if app.JobID == jobID {
			out = append(out, app)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FitScore != out[j].FitScore {
			return out[i].FitScore > out[j].FitScore
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// UpdateApplicationShortlist sets an application's shortlist status and rank.
func (s *Store) UpdateApplicationShortlist(_ context.Context, applicationID uuid.UUID, status types.ShortlistStatus, rank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[applicationID]
	if !ok {
		return nil
	}
	app.Shortlist = status
	app.Rank = rank
	s.applications[applicationID] = app
	return nil
}

// GetCandidate returns a candidate profile by id, or nil when absent.
func (s *Store) GetCandidate(_ context.Context, id uuid.UUID) (*types.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// AppendLog records an automation log entry.
func (s *Store) AppendLog(_ context.Context, entry *types.AutomationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *entry)
	return nil
}

// Logs returns a copy of the automation log, oldest first.
func (s *Store) Logs() []types.AutomationLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AutomationLogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// ListLogsByJob returns a job's log entries, newest first, capped at limit.
func (s *Store) ListLogsByJob(_ context.Context, jobID uuid.UUID, limit int) ([]types.AutomationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.AutomationLogEntry
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.logs[i].JobID == jobID {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

// LogsByAction returns the log entries with the given action, oldest first.
func (s *Store) LogsByAction(action types.AutomationAction) []types.AutomationLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.AutomationLogEntry
	for _, e := range s.logs {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// LatestNegotiationRound returns the seeded round count for an interview.
func (s *Store) LatestNegotiationRound(_ context.Context, interviewID uuid.UUID) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	round, ok := s.negotiations[interviewID]
	return round, ok, nil
}

// ListPastOutcomes returns terminal statuses of a candidate's previous
// interviews, excluding the given one.
func (s *Store) ListPastOutcomes(_ context.Context, candidateID, excludeInterviewID uuid.UUID) ([]types.InterviewStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.InterviewStatus
	for _, iv := range s.interviews {
		if iv.CandidateID != candidateID || iv.ID == excludeInterviewID {
			continue
		}
		switch iv.Status {
		case types.StatusCompleted, types.StatusNoShow, types.StatusCancelled:
			out = append(out, iv.Status)
		}
	}
	return out, nil
}
