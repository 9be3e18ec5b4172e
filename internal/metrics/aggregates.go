package metrics

import (
	"math"
	"sort"
	"time"
)

// Window bounds for aggregation queries, in minutes.
const (
	MinWindowMinutes = 1
	MaxWindowMinutes = 1440
)

// clampWindow normalizes a caller-supplied window to the supported range.
func clampWindow(minutes int) time.Duration {
	if minutes < MinWindowMinutes {
		minutes = MinWindowMinutes
	}
	if minutes > MaxWindowMinutes {
		minutes = MaxWindowMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ResponseTimeStats summarizes response-time samples.
type ResponseTimeStats struct {
	Count   int           `json:"count"`
	Average time.Duration `json:"average"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	P50     time.Duration `json:"p50"`
	P95     time.Duration `json:"p95"`
	P99     time.Duration `json:"p99"`
}

// ResponseTimeReport groups response-time stats overall and per endpoint.
type ResponseTimeReport struct {
	Overall    ResponseTimeStats            `json:"overall"`
	ByEndpoint map[string]ResponseTimeStats `json:"by_endpoint"`
}

// percentile returns the nearest-rank percentile of sorted durations:
// the element at index ceil(p*n)-1.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func summarize(durations []time.Duration) ResponseTimeStats {
	stats := ResponseTimeStats{Count: len(durations)}
	if stats.Count == 0 {
		return stats
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	stats.Average = total / time.Duration(stats.Count)
	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.P50 = percentile(sorted, 0.50)
	stats.P95 = percentile(sorted, 0.95)
	stats.P99 = percentile(sorted, 0.99)
	return stats
}

// ResponseTimes aggregates response-time samples over the window (minutes).
func (c *Collector) ResponseTimes(windowMinutes int) ResponseTimeReport {
	samples := c.inWindow(CategoryResponseTime, clampWindow(windowMinutes))

	all := make([]time.Duration, 0, len(samples))
	perEndpoint := make(map[string][]time.Duration)
	for _, s := range samples {
		all = append(all, s.Duration)
		perEndpoint[s.Endpoint] = append(perEndpoint[s.Endpoint], s.Duration)
	}

	report := ResponseTimeReport{
		Overall:    summarize(all),
		ByEndpoint: make(map[string]ResponseTimeStats, len(perEndpoint)),
	}
	for endpoint, durations := range perEndpoint {
		report.ByEndpoint[endpoint] = summarize(durations)
	}
	return report
}

// ErrorReport summarizes error samples against request volume.
type ErrorReport struct {
	Count      int            `json:"count"`
	Rate       float64        `json:"rate"`
	ByEndpoint map[string]int `json:"by_endpoint"`
	ByType     map[string]int `json:"by_type"`
}

// Errors aggregates error samples over the window. The rate is errors divided
// by the requests observed in the same window, as a percentage; with zero
// requests the rate is 0 even when errors were recorded outside any request.
func (c *Collector) Errors(windowMinutes int) ErrorReport {
	window := clampWindow(windowMinutes)
	errSamples := c.inWindow(CategoryError, window)
	requests := len(c.inWindow(CategoryResponseTime, window))

	report := ErrorReport{
		Count:      len(errSamples),
		ByEndpoint: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for _, s := range errSamples {
		report.ByEndpoint[s.Endpoint]++
		report.ByType[s.ErrorType]++
	}
	if requests > 0 {
		report.Rate = float64(report.Count) / float64(requests) * 100
	}
	return report
}

// ActionStats summarizes one automation action type.
type ActionStats struct {
	Total       int     `json:"total"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

// AutomationReport summarizes automation actions over a window.
type AutomationReport struct {
	Total       int                    `json:"total"`
	Successes   int                    `json:"successes"`
	SuccessRate float64                `json:"success_rate"`
	ByAction    map[string]ActionStats `json:"by_action"`
}

func successRate(successes, total int) float64 {
	// An empty action set is healthy by convention.
	if total == 0 {
		return 100
	}
	return float64(successes) / float64(total) * 100
}

// AutomationActions aggregates automation-action samples over the window.
func (c *Collector) AutomationActions(windowMinutes int) AutomationReport {
	samples := c.inWindow(CategoryAutomation, clampWindow(windowMinutes))

	report := AutomationReport{ByAction: make(map[string]ActionStats)}
	for _, s := range samples {
		report.Total++
		stats := report.ByAction[s.Action]
		stats.Total++
		if s.Success {
			report.Successes++
			stats.Successes++
		}
		report.ByAction[s.Action] = stats
	}
	report.SuccessRate = successRate(report.Successes, report.Total)
	for action, stats := range report.ByAction {
		stats.SuccessRate = successRate(stats.Successes, stats.Total)
		report.ByAction[action] = stats
	}
	return report
}

// SchedulerReport summarizes scheduler cycles over a window.
type SchedulerReport struct {
	Cycles          int           `json:"cycles"`
	Successes       int           `json:"successes"`
	Failures        int           `json:"failures"`
	AverageDuration time.Duration `json:"average_duration"`
}

// SchedulerCycles aggregates scheduler-cycle samples over the window.
func (c *Collector) SchedulerCycles(windowMinutes int) SchedulerReport {
	samples := c.inWindow(CategorySchedulerCycle, clampWindow(windowMinutes))

	var report SchedulerReport
	var total time.Duration
	for _, s := range samples {
		report.Cycles++
		total += s.Duration
		if s.Success {
			report.Successes++
		} else {
			report.Failures++
		}
	}
	if report.Cycles > 0 {
		report.AverageDuration = total / time.Duration(report.Cycles)
	}
	return report
}

// DeliveryReport summarizes email/calendar delivery attempts per kind.
type DeliveryReport struct {
	ByKind map[string]ActionStats `json:"by_kind"`
}

// Deliveries aggregates delivery samples over the window.
func (c *Collector) Deliveries(windowMinutes int) DeliveryReport {
	samples := c.inWindow(CategoryDelivery, clampWindow(windowMinutes))

	report := DeliveryReport{ByKind: make(map[string]ActionStats)}
	for _, s := range samples {
		stats := report.ByKind[s.Kind]
		stats.Total++
		if s.Success {
			stats.Successes++
		}
		report.ByKind[s.Kind] = stats
	}
	for kind, stats := range report.ByKind {
		stats.SuccessRate = successRate(stats.Successes, stats.Total)
		report.ByKind[kind] = stats
	}
	return report
}
