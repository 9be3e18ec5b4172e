// Package metrics aggregates operational samples from every orchestrator
// component and raises alerts when windowed statistics breach thresholds.
package metrics

import (
	"sync"
	"time"
)

// Category classifies a metric sample.
type Category string

// Category values.
const (
	CategoryResponseTime   Category = "response_time"
	CategoryError          Category = "error"
	CategoryAutomation     Category = "automation_action"
	CategorySchedulerCycle Category = "scheduler_cycle"
	CategoryDelivery       Category = "delivery"
)

// Sample is one timestamped metric event.
type Sample struct {
	Category  Category
	Endpoint  string
	ErrorType string
	Action    string
	Kind      string
	Duration  time.Duration
	Success   bool
	At        time.Time
}

// DefaultRetention bounds how long samples are kept before eviction.
const DefaultRetention = 24 * time.Hour

// Collector is an append-only, multi-writer sample buffer. Aggregation copies
// the in-window samples under the lock so concurrent appends never corrupt an
// in-flight computation.
type Collector struct {
	mu        sync.Mutex
	samples   []Sample
	retention time.Duration
	now       func() time.Time

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
}

// NewCollector creates a collector with the given retention window.
func NewCollector(retention time.Duration) *Collector {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Collector{
		retention: retention,
		now:       time.Now,
	}
}

// WithClock overrides the collector's clock. Intended for tests.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

func (c *Collector) append(s Sample) {
	if s.At.IsZero() {
		s.At = c.now().UTC()
	}
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

// RecordResponseTime records an endpoint response time.
func (c *Collector) RecordResponseTime(endpoint string, d time.Duration) {
	c.append(Sample{Category: CategoryResponseTime, Endpoint: endpoint, Duration: d})
}

// RecordError records an error occurrence for an endpoint.
func (c *Collector) RecordError(endpoint, errorType string) {
	c.append(Sample{Category: CategoryError, Endpoint: endpoint, ErrorType: errorType})
}

// RecordAutomationAction records the outcome of one automation action.
func (c *Collector) RecordAutomationAction(action string, success bool) {
	c.append(Sample{Category: CategoryAutomation, Action: action, Success: success})
}

// RecordSchedulerCycle records one scheduler cycle's duration and outcome.
func (c *Collector) RecordSchedulerCycle(d time.Duration, success bool) {
	c.append(Sample{Category: CategorySchedulerCycle, Duration: d, Success: success})
}

// RecordDelivery records an email or calendar delivery attempt.
func (c *Collector) RecordDelivery(kind string, success bool) {
	c.append(Sample{Category: CategoryDelivery, Kind: kind, Success: success})
}

// inWindow returns a copy of the samples of one category inside the window.
func (c *Collector) inWindow(category Category, window time.Duration) []Sample {
	cutoff := c.now().UTC().Add(-window)
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Sample
	for _, s := range c.samples {
		if s.Category == category && !s.At.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Cleanup evicts samples older than the retention window and returns the
// number evicted.
func (c *Collector) Cleanup() int {
	cutoff := c.now().UTC().Add(-c.retention)
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.samples[:0]
	for _, s := range c.samples {
		if !s.At.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	evicted := len(c.samples) - len(kept)
	c.samples = kept
	return evicted
}

// StartCleanup begins periodic eviction, independent of aggregation calls.
func (c *Collector) StartCleanup(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleanupTicker != nil {
		return
	}
	c.cleanupTicker = time.NewTicker(interval)
	c.cleanupStop = make(chan struct{})

	go func() {
		for {
			select {
			case <-c.cleanupTicker.C:
				c.Cleanup()
			case <-c.cleanupStop:
				return
			}
		}
	}()
}

// StopCleanup stops the periodic eviction loop.
func (c *Collector) StopCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleanupTicker == nil {
		return
	}
	c.cleanupTicker.Stop()
	close(c.cleanupStop)
	c.cleanupTicker = nil
	c.cleanupStop = nil
}
