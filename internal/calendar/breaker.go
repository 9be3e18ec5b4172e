// Package calendar wraps the external calendar provider behind a circuit
// breaker so provider outages never break the hiring pipeline.
package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/metrics"
)

// BreakerState is the circuit breaker's position.
type BreakerState string

// BreakerState values.
const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// Slot is one bookable interval returned by the provider.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventResult is the outcome of a calendar event creation.
type EventResult struct {
	Success bool   `json:"success"`
	EventID string `json:"event_id,omitempty"`
	Method  string `json:"method"`
}

// Provider is the external calendar surface. Token acquisition happens
// outside this package; implementations receive an authenticated client.
type Provider interface {
	GetAvailableSlots(ctx context.Context, recruiterID uuid.UUID, start, end time.Time) ([]Slot, error)
	CreateEvent(ctx context.Context, interviewID uuid.UUID) (*EventResult, error)
}

// ErrCircuitOpen indicates the breaker short-circuited the call without
// reaching the provider.
type ErrCircuitOpen struct {
	RetryAfter time.Duration
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("calendar circuit open, retry after %s", e.RetryAfter)
}

// Config holds the breaker's trip parameters.
type Config struct {
	Threshold   int
	Cooldown    time.Duration
	CallTimeout time.Duration
}

// DefaultConfig returns the standard breaker parameters.
func DefaultConfig() Config {
	return Config{
		Threshold:   5,
		Cooldown:    60 * time.Second,
		CallTimeout: 10 * time.Second,
	}
}

// Gateway protects a Provider with a circuit breaker. The breaker state is
// shared across all concurrent calls; every read-modify-write happens under
// the mutex so concurrent failures cannot lose transitions.
type Gateway struct {
	provider  Provider
	collector *metrics.Collector
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time

	mu           sync.Mutex
	state        BreakerState
	failureCount int
	lastFailure  time.Time
}

// NewGateway creates a closed-circuit gateway around the provider.
func NewGateway(provider Provider, collector *metrics.Collector, logger *zap.Logger, cfg Config) *Gateway {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Gateway{
		provider:  provider,
		collector: collector,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		state:     StateClosed,
	}
}

// WithClock overrides the gateway's clock. Intended for tests.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// State returns the breaker's current position, accounting for cooldown expiry.
func (g *Gateway) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateOpen && g.now().Sub(g.lastFailure) >= g.cfg.Cooldown {
		return StateHalfOpen
	}
	return g.state
}

// allow decides whether a call may proceed. In open state it short-circuits
// until the cooldown elapses, then admits a single half-open trial.
func (g *Gateway) allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case StateClosed:
		return nil
	case StateOpen:
		elapsed := g.now().Sub(g.lastFailure)
		if elapsed < g.cfg.Cooldown {
			return &ErrCircuitOpen{RetryAfter: g.cfg.Cooldown - elapsed}
		}
		g.state = StateHalfOpen
		g.logger.Info("calendar circuit half-open, trial call permitted")
		return nil
	case StateHalfOpen:
		// Only one trial call at a time; others short-circuit.
		return &ErrCircuitOpen{RetryAfter: g.cfg.Cooldown}
	}
	return nil
}

// recordSuccess resets the breaker after a successful call.
func (g *Gateway) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateHalfOpen {
		g.logger.Info("calendar circuit closed after successful trial")
	}
	g.state = StateClosed
	g.failureCount = 0
}

// recordFailure counts a failure and trips the breaker at the threshold. A
// half-open failure reopens immediately with a refreshed timestamp.
func (g *Gateway) recordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastFailure = g.now()
	if g.state == StateHalfOpen {
		g.state = StateOpen
		g.logger.Warn("calendar circuit reopened after failed trial")
		return
	}

	g.failureCount++
	if g.failureCount >= g.cfg.Threshold {
		g.state = StateOpen
		g.logger.Warn("calendar circuit tripped open",
			zap.Int("failures", g.failureCount),
			zap.Duration("cooldown", g.cfg.Cooldown))
	}
}

// GetAvailableSlots fetches a recruiter's free slots through the breaker.
// When the circuit is open it returns an empty slot list as the fallback.
func (g *Gateway) GetAvailableSlots(ctx context.Context, recruiterID uuid.UUID, start, end time.Time) ([]Slot, error) {
	if err := g.allow(); err != nil {
		g.logger.Debug("availability call short-circuited", zap.Error(err))
		return []Slot{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	slots, err := g.provider.GetAvailableSlots(callCtx, recruiterID, start, end)
	if err != nil {
		g.recordFailure()
		g.collector.RecordDelivery("calendar", false)
		return nil, fmt.Errorf("calendar availability call failed: %w", err)
	}
	g.recordSuccess()
	g.collector.RecordDelivery("calendar", true)
	return slots, nil
}

// CreateEvent creates a calendar event through the breaker. When the circuit
// is open it returns a manual-sync fallback result without a network call.
func (g *Gateway) CreateEvent(ctx context.Context, interviewID uuid.UUID) (*EventResult, error) {
	if err := g.allow(); err != nil {
		g.logger.Debug("event creation short-circuited", zap.Error(err))
		return &EventResult{Success: false, Method: "manual"}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	result, err := g.provider.CreateEvent(callCtx, interviewID)
	if err != nil {
		g.recordFailure()
		g.collector.RecordDelivery("calendar", false)
		return &EventResult{Success: false, Method: "manual"}, fmt.Errorf("calendar event creation failed: %w", err)
	}
	g.recordSuccess()
	g.collector.RecordDelivery("calendar", true)
	return result, nil
}
