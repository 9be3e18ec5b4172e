// Package shortlist decides who is shortlisted for a job, promotes buffer
// candidates into vacated slots, and keeps the buffer topped up.
package shortlist

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/flags"
	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/metrics"
	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// FlagAutoShortlisting gates the whole shortlisting automation per deployment.
const FlagAutoShortlisting = "auto_shortlisting"

// ErrJobNotFound indicates an unknown job id.
type ErrJobNotFound struct {
	JobID uuid.UUID
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// Store is the persistence surface the manager requires.
type Store interface {
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]types.Application, error)
	UpdateApplicationShortlist(ctx context.Context, applicationID uuid.UUID, status types.ShortlistStatus, rank int) error
}

// Logbook appends to the append-only automation audit trail.
type Logbook interface {
	AppendLog(ctx context.Context, entry *types.AutomationLogEntry) error
}

// Config holds the deadlines stamped onto issued invitations.
type Config struct {
	ConfirmationTTL  time.Duration
	SlotSelectionTTL time.Duration
}

// DefaultConfig returns the standard invitation deadlines.
func DefaultConfig() Config {
	return Config{
		ConfirmationTTL:  48 * time.Hour,
		SlotSelectionTTL: 72 * time.Hour,
	}
}

// Manager owns shortlist state for all jobs. Promotion and backfill for a
// given job are serialized through a per-job lock so a double-trigger cannot
// promote two candidates into one vacancy.
type Manager struct {
	store     Store
	machine   *interview.Machine
	logs      Logbook
	flags     flags.Source
	collector *metrics.Collector
	logger    *zap.Logger
	cfg       Config

	mu       sync.Mutex
	jobLocks map[uuid.UUID]*sync.Mutex
}

// NewManager creates a shortlisting manager with injected dependencies.
func NewManager(store Store, machine *interview.Machine, logs Logbook, src flags.Source, collector *metrics.Collector, logger *zap.Logger, cfg Config) *Manager {
	return &Manager{
		store:     store,
		machine:   machine,
		logs:      logs,
		flags:     src,
		collector: collector,
		logger:    logger,
		cfg:       cfg,
		jobLocks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockJob returns the mutex serializing mutations for one job.
func (m *Manager) lockJob(jobID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.jobLocks[jobID]
	if !ok {
		l = &sync.Mutex{}
		m.jobLocks[jobID] = l
	}
	return l
}

// rankApplications orders applications by fit score descending, tie-broken by
// earliest submission.
func rankApplications(apps []types.Application) []types.Application {
	ranked := make([]types.Application, len(apps))
	copy(ranked, apps)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FitScore != ranked[j].FitScore {
			return ranked[i].FitScore > ranked[j].FitScore
		}
		return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
	})
	return ranked
}

// AutoShortlist assigns the top-ranked applications to the shortlist, issues
// an invitation for each, and fills the buffer with the next candidates.
// Idempotent per job: candidates already shortlisted are left alone and only
// gaps are filled. The remainder stays pending; automation never auto-rejects.
func (m *Manager) AutoShortlist(ctx context.Context, jobID uuid.UUID, trigger types.TriggerSource, actorID uuid.UUID) error {
	lock := m.lockJob(jobID)
	lock.Lock()
	defer lock.Unlock()

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return &ErrJobNotFound{JobID: jobID}
	}
	if !flags.IsFeatureEnabled(m.flags, FlagAutoShortlisting) || !job.AutomationEnabled {
		m.logger.Debug("auto-shortlisting disabled", zap.String("job_id", jobID.String()))
		return nil
	}

	apps, err := m.store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}
	ranked := rankApplications(apps)

	shortlisted := 0
	buffered := 0
	for _, app := range ranked {
		if app.Shortlist == types.ShortlistShortlisted {
			shortlisted++
		}
		if app.Shortlist == types.ShortlistBuffer {
			buffered++
		}
	}

	invited := 0
	for i, app := range ranked {
		rank := i + 1
		switch {
		case app.Shortlist == types.ShortlistShortlisted || app.Shortlist == types.ShortlistRejected:
			// No-op for candidates already placed or rejected.
		case shortlisted < job.NumberOfOpenings:
			if err := m.shortlistAndInvite(ctx, job, app, rank, trigger, actorID); err != nil {
				m.collector.RecordAutomationAction(string(types.ActionAutoShortlist), false)
				return err
			}
			if app.Shortlist == types.ShortlistBuffer {
				buffered--
			}
			shortlisted++
			invited++
		case app.Shortlist == types.ShortlistPending && buffered < job.ShortlistBuffer:
			if err := m.store.UpdateApplicationShortlist(ctx, app.ID, types.ShortlistBuffer, rank); err != nil {
				m.collector.RecordAutomationAction(string(types.ActionAutoShortlist), false)
				return fmt.Errorf("failed to move application to buffer: %w", err)
			}
			buffered++
		}
	}

	m.appendLog(ctx, jobID, types.ActionAutoShortlist, trigger, actorID, map[string]any{
		"invited":     invited,
		"shortlisted": shortlisted,
		"buffer":      buffered,
	})
	m.collector.RecordAutomationAction(string(types.ActionAutoShortlist), true)
	m.logger.Info("auto-shortlist complete",
		zap.String("job_id", jobID.String()),
		zap.Int("invited", invited),
		zap.Int("shortlisted", shortlisted),
		zap.Int("buffer", buffered))
	return nil
}

// shortlistAndInvite marks the application shortlisted at the given rank and
// issues an interview invitation through the state machine.
func (m *Manager) shortlistAndInvite(ctx context.Context, job *types.Job, app types.Application, rank int, trigger types.TriggerSource, actorID uuid.UUID) error {
	if err := m.store.UpdateApplicationShortlist(ctx, app.ID, types.ShortlistShortlisted, rank); err != nil {
		return fmt.Errorf("failed to shortlist application: %w", err)
	}

	confirmBy := time.Now().UTC().Add(m.cfg.ConfirmationTTL)
	selectBy := time.Now().UTC().Add(m.cfg.SlotSelectionTTL)
	_, err := m.machine.Create(ctx, &types.CreateInterviewRequest{
		ApplicationID:         app.ID,
		JobID:                 job.ID,
		RecruiterID:           job.RecruiterID,
		CandidateID:           app.CandidateID,
		RankAtTime:            rank,
		ConfirmationDeadline:  &confirmBy,
		SlotSelectionDeadline: &selectBy,
	})
	if err != nil {
		return fmt.Errorf("failed to issue invitation: %w", err)
	}

	m.appendLog(ctx, job.ID, types.ActionInvitationSent, trigger, actorID, map[string]any{
		"application_id": app.ID.String(),
		"candidate_id":   app.CandidateID.String(),
		"rank":           rank,
	})
	return nil
}

// Vacate demotes a shortlisted application after its interview reached a
// terminal non-success state, freeing its rank for a buffer promotion.
func (m *Manager) Vacate(ctx context.Context, jobID, applicationID uuid.UUID) error {
	lock := m.lockJob(jobID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.UpdateApplicationShortlist(ctx, applicationID, types.ShortlistRejected, 0); err != nil {
		return fmt.Errorf("failed to vacate application: %w", err)
	}
	return nil
}

// PromoteFromBuffer promotes the highest-ranked buffer candidate into the
// vacated rank and issues a new invitation. A rank whose shortlisted holder's
// latest interview ended in cancelled, no_show, or expired counts as vacant:
// the holder is demoted first. At most one promotion happens per vacated
// rank: if the rank is held by a candidate whose interview is still live the
// call is a no-op. An empty buffer is an expected terminal condition, not a
// fault.
func (m *Manager) PromoteFromBuffer(ctx context.Context, jobID uuid.UUID, vacatedRank int, trigger types.TriggerSource, actorID uuid.UUID) error {
	lock := m.lockJob(jobID)
	lock.Lock()
	defer lock.Unlock()

	ok, err := m.canPromoteLocked(ctx, jobID)
	if err != nil {
		return err
	}
	if !ok {
		m.logger.Debug("promotion blocked by eligibility gate", zap.String("job_id", jobID.String()))
		return nil
	}

	apps, err := m.store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}

	for _, app := range apps {
		if app.Shortlist != types.ShortlistShortlisted || app.Rank != vacatedRank {
			continue
		}
		released, err := m.holderReleased(ctx, app.ID)
		if err != nil {
			return err
		}
		if !released {
			m.logger.Debug("rank already occupied, skipping promotion",
				zap.String("job_id", jobID.String()),
				zap.Int("rank", vacatedRank))
			return nil
		}
		// The holder's interview ended without success; demote them so the
		// rank is genuinely free before promoting.
		if err := m.store.UpdateApplicationShortlist(ctx, app.ID, types.ShortlistRejected, 0); err != nil {
			return fmt.Errorf("failed to vacate application: %w", err)
		}
		apps, err = m.store.ListApplicationsByJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to list applications: %w", err)
		}
		break
	}

	var candidate *types.Application
	for _, app := range rankApplications(apps) {
		if app.Shortlist == types.ShortlistBuffer {
			candidate = &app
			break
		}
	}
	if candidate == nil {
		m.appendLog(ctx, jobID, types.ActionPromotionSkipped, trigger, actorID, map[string]any{
			"reason":       "buffer_empty",
			"vacated_rank": vacatedRank,
		})
		m.collector.RecordAutomationAction(string(types.ActionPromotionSkipped), true)
		m.logger.Info("buffer empty, promotion skipped",
			zap.String("job_id", jobID.String()),
			zap.Int("rank", vacatedRank))
		return nil
	}

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return &ErrJobNotFound{JobID: jobID}
	}

	if err := m.shortlistAndInvite(ctx, job, *candidate, vacatedRank, trigger, actorID); err != nil {
		m.collector.RecordAutomationAction(string(types.ActionBufferPromotion), false)
		return err
	}

	m.appendLog(ctx, jobID, types.ActionBufferPromotion, trigger, actorID, map[string]any{
		"application_id": candidate.ID.String(),
		"vacated_rank":   vacatedRank,
	})
	m.collector.RecordAutomationAction(string(types.ActionBufferPromotion), true)
	return nil
}

// holderReleased reports whether a shortlisted rank holder no longer blocks
// their rank: true when the holder's latest interview reached a terminal
// state other than completed (cancelled, no_show, expired). A holder with no
// interview on record, or one still in flight, keeps the rank.
func (m *Manager) holderReleased(ctx context.Context, applicationID uuid.UUID) (bool, error) {
	ivs, err := m.machine.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return false, fmt.Errorf("failed to list holder interviews: %w", err)
	}
	if len(ivs) == 0 {
		return false, nil
	}
	latest := ivs[0].Status
	return latest.IsTerminal() && latest != types.StatusCompleted, nil
}

// BackfillBuffer pulls the next-highest pending candidate into the buffer to
// restore the configured buffer size. No-op when no pending candidates remain.
func (m *Manager) BackfillBuffer(ctx context.Context, jobID uuid.UUID, trigger types.TriggerSource, actorID uuid.UUID) error {
	lock := m.lockJob(jobID)
	lock.Lock()
	defer lock.Unlock()

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return &ErrJobNotFound{JobID: jobID}
	}

	apps, err := m.store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}

	buffered := 0
	for _, app := range apps {
		if app.Shortlist == types.ShortlistBuffer {
			buffered++
		}
	}
	if buffered >= job.ShortlistBuffer {
		return nil
	}

	ranked := rankApplications(apps)
	for i, app := range ranked {
		if app.Shortlist != types.ShortlistPending {
			continue
		}
		if err := m.store.UpdateApplicationShortlist(ctx, app.ID, types.ShortlistBuffer, i+1); err != nil {
			m.collector.RecordAutomationAction(string(types.ActionBufferBackfill), false)
			return fmt.Errorf("failed to backfill buffer: %w", err)
		}
		m.appendLog(ctx, jobID, types.ActionBufferBackfill, trigger, actorID, map[string]any{
			"application_id": app.ID.String(),
		})
		m.collector.RecordAutomationAction(string(types.ActionBufferBackfill), true)
		return nil
	}
	return nil
}

// CanPromote reports whether the job is eligible for buffer promotions.
func (m *Manager) CanPromote(ctx context.Context, jobID uuid.UUID) (bool, error) {
	lock := m.lockJob(jobID)
	lock.Lock()
	defer lock.Unlock()
	return m.canPromoteLocked(ctx, jobID)
}

func (m *Manager) canPromoteLocked(ctx context.Context, jobID uuid.UUID) (bool, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return false, &ErrJobNotFound{JobID: jobID}
	}
	if !job.ApplicationsOpen || !job.AutomationEnabled || job.NumberOfOpenings <= 0 {
		return false, nil
	}
	return true, nil
}

// GetShortlistStatus returns current funnel counts for a job.
func (m *Manager) GetShortlistStatus(ctx context.Context, jobID uuid.UUID) (*types.ShortlistCounts, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, &ErrJobNotFound{JobID: jobID}
	}

	apps, err := m.store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	counts := &types.ShortlistCounts{Total: len(apps)}
	for _, app := range apps {
		switch app.Shortlist {
		case types.ShortlistShortlisted:
			counts.Shortlisted++
		case types.ShortlistBuffer:
			counts.Buffer++
		case types.ShortlistRejected:
			counts.Rejected++
		default:
			counts.Pending++
		}
	}
	return counts, nil
}

// appendLog writes an audit entry. Log failures are recorded but never fail
// the action that produced them.
func (m *Manager) appendLog(ctx context.Context, jobID uuid.UUID, action types.AutomationAction, trigger types.TriggerSource, actorID uuid.UUID, details map[string]any) {
	entry := &types.AutomationLogEntry{
		ID:        uuid.New(),
		JobID:     jobID,
		Action:    action,
		Trigger:   trigger,
		ActorID:   actorID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.logs.AppendLog(ctx, entry); err != nil {
		m.logger.Error("failed to append automation log",
			zap.String("job_id", jobID.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
