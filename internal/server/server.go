package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/booking"
	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/metrics"
	"github.com/jonathan/hiring-orchestrator/internal/risk"
	"github.com/jonathan/hiring-orchestrator/internal/server/ratelimit"
	"github.com/jonathan/hiring-orchestrator/internal/shortlist"
	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// LogReader serves the automation-log read endpoint.
type LogReader interface {
	ListLogsByJob(ctx context.Context, jobID uuid.UUID, limit int) ([]types.AutomationLogEntry, error)
}

// Server is the HTTP surface over the orchestrator core. It forwards inbound
// triggers verbatim and serializes the core's result/error values.
type Server struct {
	httpServer  *http.Server
	machine     *interview.Machine
	manager     *shortlist.Manager
	booking     *booking.Service
	analyzer    *risk.Analyzer
	collector   *metrics.Collector
	thresholds  metrics.Thresholds
	logReader   LogReader
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Port       int
	Thresholds metrics.Thresholds
}

// New creates a server instance over the orchestrator core.
func New(cfg Config, machine *interview.Machine, manager *shortlist.Manager, bookingSvc *booking.Service, analyzer *risk.Analyzer, collector *metrics.Collector, logReader LogReader, logger *zap.Logger) *Server {
	s := &Server{
		machine:     machine,
		manager:     manager,
		booking:     bookingSvc,
		analyzer:    analyzer,
		collector:   collector,
		thresholds:  cfg.Thresholds,
		logReader:   logReader,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /interviews", s.handleCreateInterview)
	mux.HandleFunc("GET /interviews/{id}", s.handleGetInterview)
	mux.HandleFunc("PATCH /interviews/{id}", s.handleUpdateInterview)
	mux.HandleFunc("POST /interviews/{id}/accept", s.handleAcceptInvitation)
	mux.HandleFunc("GET /interviews/{id}/slots", s.handleAvailableSlots)
	mux.HandleFunc("POST /interviews/{id}/confirm", s.handleConfirmSlot)
	mux.HandleFunc("GET /interviews/{id}/risk", s.handleRiskAnalysis)

	mux.HandleFunc("POST /jobs/{id}/auto-shortlist", s.handleAutoShortlist)
	mux.HandleFunc("POST /jobs/{id}/promote", s.handlePromote)
	mux.HandleFunc("GET /jobs/{id}/shortlist", s.handleShortlistStatus)
	mux.HandleFunc("GET /jobs/{id}/automation-logs", s.handleAutomationLogs)

	mux.HandleFunc("GET /metrics/response-times", s.handleResponseTimes)
	mux.HandleFunc("GET /metrics/errors", s.handleErrorStats)
	mux.HandleFunc("GET /metrics/automation", s.handleAutomationStats)
	mux.HandleFunc("GET /metrics/scheduler", s.handleSchedulerStats)
	mux.HandleFunc("GET /metrics/deliveries", s.handleDeliveryStats)
	mux.HandleFunc("GET /metrics/alerts", s.handleAlerts)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withMetrics(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start listens for requests until an interrupt arrives, then shuts down
// gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// withMetrics records a response-time sample per request under the route path.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.collector.RecordResponseTime(r.URL.Path, time.Since(start))
	})
}

// withRateLimit rejects clients that exceed their endpoint limit.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		if !s.rateLimiter.Allow(clientID, r.URL.Path, r.Method) {
			s.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID identifies the caller by forwarded address or remote IP.
func (s *Server) extractClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response and records an error sample.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.collector.RecordError(r.URL.Path, fmt.Sprintf("http_%d", status))
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// coreError maps a core error onto the response and metrics.
func (s *Server) coreError(w http.ResponseWriter, r *http.Request, err error) {
	s.collector.RecordError(r.URL.Path, ErrorType(err))
	s.jsonResponse(w, HTTPStatus(err), map[string]string{"error": err.Error()})
}

// handleHealth folds current alerts into one health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health, alerts := s.collector.GetSystemHealth(s.thresholds)
	status := http.StatusOK
	if health == metrics.HealthCritical {
		status = http.StatusServiceUnavailable
	}
	s.jsonResponse(w, status, map[string]any{
		"status": health,
		"alerts": alerts,
	})
}
