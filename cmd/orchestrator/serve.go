package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/booking"
	"github.com/jonathan/hiring-orchestrator/internal/calendar"
	"github.com/jonathan/hiring-orchestrator/internal/db"
	"github.com/jonathan/hiring-orchestrator/internal/flags"
	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/logger"
	"github.com/jonathan/hiring-orchestrator/internal/metrics"
	"github.com/jonathan/hiring-orchestrator/internal/notify"
	"github.com/jonathan/hiring-orchestrator/internal/risk"
	"github.com/jonathan/hiring-orchestrator/internal/scheduler"
	"github.com/jonathan/hiring-orchestrator/internal/server"
	"github.com/jonathan/hiring-orchestrator/internal/shortlist"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestrator service",
	Long:  "Start the HTTP API and the background scheduler that sweeps deadlines, drives buffer promotions, and sends reminders.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database-url is required (set DATABASE_URL or the config file)")
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	collector := metrics.NewCollector(cfg.Metrics.Retention)
	collector.StartCleanup(cfg.Metrics.CleanupInterval)
	defer collector.StopCleanup()

	machine := interview.NewMachine(store, log)

	provider, err := calendar.NewGoogleProvider(ctx, http.DefaultClient, store)
	if err != nil {
		return err
	}
	gateway := calendar.NewGateway(provider, collector, log, calendar.Config{
		Threshold:   cfg.Calendar.Threshold,
		Cooldown:    cfg.Calendar.Cooldown,
		CallTimeout: cfg.Calendar.CallTimeout,
	})

	mailer := notify.NewLogQueuer(log)
	flagSource := flags.NewStaticSource(nil)

	manager := shortlist.NewManager(store, machine, store, flagSource, collector, log, shortlist.Config{
		ConfirmationTTL:  cfg.Shortlist.ConfirmationTTL,
		SlotSelectionTTL: cfg.Shortlist.SlotSelectionTTL,
	})
	bookingSvc := booking.NewService(machine, gateway, store, mailer, collector, log)
	analyzer := risk.NewAnalyzer(store, log)

	sched := scheduler.New(machine, manager, store, store, mailer, collector, log, scheduler.Config{
		Interval:       cfg.Scheduler.Interval,
		ReminderWindow: cfg.Scheduler.ReminderWindow,
	})
	sched.Start(ctx)
	defer sched.Stop()

	thresholds := metrics.Thresholds{
		P95ResponseTime:    cfg.Metrics.P95ResponseTime,
		ErrorRatePercent:   cfg.Metrics.ErrorRatePercent,
		AutomationFloor:    cfg.Metrics.AutomationFloor,
		SchedulerCycleTime: cfg.Metrics.SchedulerCycleTime,
		WindowMinutes:      cfg.Metrics.AlertWindowMinutes,
	}

	srv := server.New(server.Config{Port: cfg.Port, Thresholds: thresholds},
		machine, manager, bookingSvc, analyzer, collector, store, log)

	log.Info("orchestrator ready", zap.Int("port", cfg.Port))
	return srv.Start()
}
