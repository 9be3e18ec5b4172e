// Package scheduler runs the recurring automation cycle: sweeping expired
// deadlines, driving buffer promotions, and queueing interview reminders.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/metrics"
	"github.com/jonathan/hiring-orchestrator/internal/notify"
	"github.com/jonathan/hiring-orchestrator/internal/shortlist"
	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// Config holds the scheduler's timing parameters.
type Config struct {
	Interval       time.Duration
	ReminderWindow time.Duration
	// ReminderParallelism bounds concurrent reminder sends per cycle.
	ReminderParallelism int
}

// DefaultConfig returns the standard cycle timing.
func DefaultConfig() Config {
	return Config{
		Interval:            60 * time.Second,
		ReminderWindow:      24 * time.Hour,
		ReminderParallelism: 4,
	}
}

// applicationLookup resolves the application behind an expired interview so
// the sweep can tell whether the candidate held a shortlist slot.
type applicationLookup interface {
	GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error)
}

// Scheduler drives the periodic automation cycle. At most one cycle runs at a
// time: a tick arriving while a cycle is in flight is skipped and logged, not
// queued.
type Scheduler struct {
	machine   *interview.Machine
	manager   *shortlist.Manager
	apps      applicationLookup
	logs      shortlist.Logbook
	mailer    notify.Queuer
	collector *metrics.Collector
	logger    *zap.Logger
	cfg       Config

	running atomic.Bool
	stop    chan struct{}
	done    sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// New creates a scheduler with injected dependencies.
func New(machine *interview.Machine, manager *shortlist.Manager, apps applicationLookup, logs shortlist.Logbook, mailer notify.Queuer, collector *metrics.Collector, logger *zap.Logger, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = DefaultConfig().ReminderWindow
	}
	if cfg.ReminderParallelism <= 0 {
		cfg.ReminderParallelism = DefaultConfig().ReminderParallelism
	}
	return &Scheduler{
		machine:   machine,
		manager:   manager,
		apps:      apps,
		logs:      logs,
		mailer:    mailer,
		collector: collector,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches the recurring cycle until Stop is called or the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stop = make(chan struct{})
	s.mu.Unlock()

	s.done.Add(1)
	go func() {
		defer s.done.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started", zap.Duration("interval", s.cfg.Interval))
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.stop:
				s.logger.Info("scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("scheduler context cancelled")
				return
			}
		}
	}()
}

// Stop halts the recurring cycle and waits for any in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	s.mu.Unlock()
	s.done.Wait()
}

// tick dispatches a cycle unless one is already in flight, in which case the
// tick is skipped and logged. The cycle runs off the ticker goroutine so a
// cycle outlasting the interval surfaces as skipped ticks rather than the
// ticker silently dropping them.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous cycle still running, tick skipped")
		s.appendLog(ctx, uuid.Nil, types.ActionCycleSkipped, map[string]any{"reason": "cycle_in_flight"})
		return
	}
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		defer s.running.Store(false)
		s.RunCycle(ctx)
	}()
}

// RunCycle executes one sweep. Per-item failures are contained: one failing
// interview never aborts the rest of the sweep, and the cycle always
// completes and reports its outcome to metrics.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := time.Now()
	failures := 0

	expired, err := s.machine.GetExpiredInterviews(ctx)
	if err != nil {
		s.logger.Error("failed to fetch expired interviews", zap.Error(err))
		s.collector.RecordSchedulerCycle(time.Since(start), false)
		return
	}

	for _, iv := range expired.Invitations {
		if err := s.expireAndPromote(ctx, iv); err != nil {
			failures++
			s.logger.Error("failed to process expired invitation",
				zap.String("interview_id", iv.ID.String()),
				zap.Error(err))
		}
	}
	for _, iv := range expired.SlotSelections {
		if err := s.expireAndPromote(ctx, iv); err != nil {
			failures++
			s.logger.Error("failed to process expired slot selection",
				zap.String("interview_id", iv.ID.String()),
				zap.Error(err))
		}
	}

	if err := s.sendReminders(ctx); err != nil {
		failures++
		s.logger.Error("reminder pass failed", zap.Error(err))
	}

	duration := time.Since(start)
	s.collector.RecordSchedulerCycle(duration, failures == 0)
	s.logger.Info("scheduler cycle complete",
		zap.Duration("duration", duration),
		zap.Int("expired_invitations", len(expired.Invitations)),
		zap.Int("expired_selections", len(expired.SlotSelections)),
		zap.Int("failures", failures))
}

// expireAndPromote transitions one deadline-breached interview to expired,
// then, when the candidate held a shortlist slot, promotes from the buffer
// into the vacated rank and backfills the buffer.
func (s *Scheduler) expireAndPromote(ctx context.Context, iv types.Interview) error {
	status := types.StatusExpired
	if _, err := s.machine.Update(ctx, iv.ID, &types.UpdateInterviewRequest{Status: &status}); err != nil {
		return fmt.Errorf("failed to expire interview: %w", err)
	}
	s.appendLog(ctx, iv.JobID, types.ActionInterviewExpired, map[string]any{
		"interview_id": iv.ID.String(),
		"rank":         iv.RankAtTime,
	})

	app, err := s.apps.GetApplication(ctx, iv.ApplicationID)
	if err != nil {
		return fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil || app.Shortlist != types.ShortlistShortlisted {
		return nil
	}

	ok, err := s.manager.CanPromote(ctx, iv.JobID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := s.manager.Vacate(ctx, iv.JobID, iv.ApplicationID); err != nil {
		return err
	}
	if err := s.manager.PromoteFromBuffer(ctx, iv.JobID, iv.RankAtTime, types.TriggerAuto, uuid.Nil); err != nil {
		return err
	}
	return s.manager.BackfillBuffer(ctx, iv.JobID, types.TriggerAuto, uuid.Nil)
}

// sendReminders queues reminder emails for confirmed interviews inside the
// reminder window that have not been reminded yet.
func (s *Scheduler) sendReminders(ctx context.Context) error {
	// Round up so a sub-hour window still yields a usable horizon.
	hours := int((s.cfg.ReminderWindow + time.Hour - 1) / time.Hour)
	upcoming, err := s.machine.GetUpcomingInterviews(ctx, hours)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ReminderParallelism)
	for _, iv := range upcoming {
		if iv.ReminderSentAt != nil {
			continue
		}
		g.Go(func() error {
			return s.remind(gctx, iv)
		})
	}
	return g.Wait()
}

func (s *Scheduler) remind(ctx context.Context, iv types.Interview) error {
	msg := notify.Message{
		To:       iv.CandidateID.String(),
		Template: notify.TemplateReminder,
		Data: map[string]any{
			"interview_id":   iv.ID.String(),
			"scheduled_time": iv.ScheduledTime,
		},
	}
	if err := s.mailer.QueueEmail(ctx, msg); err != nil {
		// Fire-and-forget: reminder failure is logged, never fatal.
		s.logger.Error("failed to queue reminder",
			zap.String("interview_id", iv.ID.String()),
			zap.Error(err))
		s.collector.RecordDelivery("email", false)
		return nil
	}
	s.collector.RecordDelivery("email", true)

	now := time.Now().UTC()
	if _, err := s.machine.Update(ctx, iv.ID, &types.UpdateInterviewRequest{ReminderSentAt: &now}); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	s.appendLog(ctx, iv.JobID, types.ActionReminderSent, map[string]any{
		"interview_id": iv.ID.String(),
	})
	return nil
}

func (s *Scheduler) appendLog(ctx context.Context, jobID uuid.UUID, action types.AutomationAction, details map[string]any) {
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
