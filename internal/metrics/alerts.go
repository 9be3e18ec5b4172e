package metrics

import "time"

// AlertSeverity grades how urgent a breach is.
type AlertSeverity string

// AlertSeverity values.
const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType names the threshold categories.
type AlertType string

// AlertType values.
const (
	AlertHighResponseTime     AlertType = "high_response_time"
	AlertHighErrorRate        AlertType = "high_error_rate"
	AlertLowAutomationSuccess AlertType = "low_automation_success"
	AlertSlowSchedulerCycle   AlertType = "slow_scheduler_cycle"
	AlertLowDeliveryRate      AlertType = "low_delivery_rate"
)

// Alert is one threshold breach.
type Alert struct {
	Type     AlertType     `json:"type"`
	Severity AlertSeverity `json:"severity"`
	Value    float64       `json:"value"`
}

// Thresholds configures the alert boundaries. Zero values disable a check.
type Thresholds struct {
	P95ResponseTime    time.Duration
	ErrorRatePercent   float64
	AutomationFloor    float64
	SchedulerCycleTime time.Duration
	DeliveryRateFloor  float64
	WindowMinutes      int
}

// DefaultThresholds returns production alert boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		P95ResponseTime:    2 * time.Second,
		ErrorRatePercent:   5,
		AutomationFloor:    90,
		SchedulerCycleTime: 30 * time.Second,
		DeliveryRateFloor:  95,
		WindowMinutes:      60,
	}
}

// SystemHealth folds outstanding alerts into one status.
type SystemHealth string

// SystemHealth values.
const (
	HealthHealthy  SystemHealth = "healthy"
	HealthDegraded SystemHealth = "degraded"
	HealthCritical SystemHealth = "critical"
)

// CheckAlertThresholds evaluates each category against the thresholds and
// returns one alert per breach. An error-rate breach is critical; all other
// breaches are warnings.
func (c *Collector) CheckAlertThresholds(t Thresholds) []Alert {
	window := t.WindowMinutes
	if window == 0 {
		window = 60
	}

	var alerts []Alert

	if t.P95ResponseTime > 0 {
		rt := c.ResponseTimes(window)
		if rt.Overall.Count > 0 && rt.Overall.P95 > t.P95ResponseTime {
			alerts = append(alerts, Alert{
				Type:     AlertHighResponseTime,
				Severity: SeverityWarning,
				Value:    float64(rt.Overall.P95.Milliseconds()),
			})
		}
	}

	if t.ErrorRatePercent > 0 {
		errs := c.Errors(window)
		if errs.Rate > t.ErrorRatePercent {
			alerts = append(alerts, Alert{
				Type:     AlertHighErrorRate,
				Severity: SeverityCritical,
				Value:    errs.Rate,
			})
		}
	}

	if t.AutomationFloor > 0 {
		auto := c.AutomationActions(window)
		if auto.SuccessRate < t.AutomationFloor {
			alerts = append(alerts, Alert{
				Type:     AlertLowAutomationSuccess,
				Severity: SeverityWarning,
				Value:    auto.SuccessRate,
			})
		}
	}

	if t.SchedulerCycleTime > 0 {
		sched := c.SchedulerCycles(window)
		if sched.Cycles > 0 && sched.AverageDuration > t.SchedulerCycleTime {
			alerts = append(alerts, Alert{
				Type:     AlertSlowSchedulerCycle,
				Severity: SeverityWarning,
				Value:    float64(sched.AverageDuration.Milliseconds()),
			})
		}
	}

	if t.DeliveryRateFloor > 0 {
		deliveries := c.Deliveries(window)
		for _, stats := range deliveries.ByKind {
			if stats.SuccessRate < t.DeliveryRateFloor {
				alerts = append(alerts, Alert{
					Type:     AlertLowDeliveryRate,
					Severity: SeverityWarning,
					Value:    stats.SuccessRate,
				})
				break
			}
		}
	}

	return alerts
}

// GetSystemHealth folds alerts into healthy, degraded (warnings only), or
// critical (any critical alert).
func (c *Collector) GetSystemHealth(t Thresholds) (SystemHealth, []Alert) {
	alerts := c.CheckAlertThresholds(t)
	if len(alerts) == 0 {
		return HealthHealthy, alerts
	}
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			return HealthCritical, alerts
		}
	}
	return HealthDegraded, alerts
}
