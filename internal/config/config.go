// Package config provides configuration loading and validation for the orchestrator.
package config

import (
	"fmt"
	"time"
)

// Config is the orchestrator's runtime configuration, populated from a config
// file and environment via viper. Missing values fall back to defaults.
type Config struct {
	Port        int    `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database-url"`

	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Shortlist ShortlistConfig `mapstructure:"shortlist"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// SchedulerConfig holds the background cycle timing.
type SchedulerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	ReminderWindow time.Duration `mapstructure:"reminder-window"`
}

// CalendarConfig holds the circuit breaker parameters.
type CalendarConfig struct {
	Threshold   int           `mapstructure:"threshold"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	CallTimeout time.Duration `mapstructure:"timeout"`
}

// ShortlistConfig holds the invitation deadlines.
type ShortlistConfig struct {
	ConfirmationTTL  time.Duration `mapstructure:"confirmation-ttl"`
	SlotSelectionTTL time.Duration `mapstructure:"slot-selection-ttl"`
}

// MetricsConfig holds retention and alert thresholds.
type MetricsConfig struct {
	Retention          time.Duration `mapstructure:"retention"`
	CleanupInterval    time.Duration `mapstructure:"cleanup-interval"`
	P95ResponseTime    time.Duration `mapstructure:"p95-response-time"`
	ErrorRatePercent   float64       `mapstructure:"error-rate-percent"`
	AutomationFloor    float64       `mapstructure:"automation-floor"`
	SchedulerCycleTime time.Duration `mapstructure:"scheduler-cycle-time"`
	AlertWindowMinutes int           `mapstructure:"alert-window-minutes"`
}

// LogConfig selects the logger's encoding and level.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// Default returns the configuration used when no file overrides are present.
func Default() Config {
	return Config{
		Port: 8080,
		Scheduler: SchedulerConfig{
			Interval:       60 * time.Second,
			ReminderWindow: 24 * time.Hour,
		},
		Calendar: CalendarConfig{
			Threshold:   5,
			Cooldown:    60 * time.Second,
			CallTimeout: 10 * time.Second,
		},
		Shortlist: ShortlistConfig{
			ConfirmationTTL:  48 * time.Hour,
			SlotSelectionTTL: 72 * time.Hour,
		},
		Metrics: MetricsConfig{
			Retention:          24 * time.Hour,
			CleanupInterval:    time.Hour,
			P95ResponseTime:    2 * time.Second,
			ErrorRatePercent:   5,
			AutomationFloor:    90,
			SchedulerCycleTime: 30 * time.Second,
			AlertWindowMinutes: 60,
		},
	}
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be within 1-65535, got %d", c.Port)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("config error: 'scheduler.interval' must be positive")
	}
	if c.Scheduler.ReminderWindow <= 0 {
		return fmt.Errorf("config error: 'scheduler.reminder-window' must be positive")
	}
	if c.Calendar.Threshold <= 0 {
		return fmt.Errorf("config error: 'calendar.threshold' must be positive")
	}
	if c.Calendar.Cooldown <= 0 {
		return fmt.Errorf("config error: 'calendar.cooldown' must be positive")
	}
	if c.Metrics.Retention <= 0 {
		return fmt.Errorf("config error: 'metrics.retention' must be positive")
	}
	if c.Metrics.AlertWindowMinutes < 1 || c.Metrics.AlertWindowMinutes > 1440 {
		return fmt.Errorf("config error: 'metrics.alert-window-minutes' must be within 1-1440")
	}
	return nil
}
