package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// pathUUID parses the {id} path segment.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

// windowParam reads the ?window= query parameter in minutes, defaulting to 60.
func windowParam(r *http.Request) int {
	if v := r.URL.Query().Get("window"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil {
			return minutes
		}
	}
	return 60
}

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var req types.CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	iv, err := s.machine.Create(r.Context(), &req)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, iv)
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid interview id")
		return
	}

	iv, err := s.machine.Get(r.Context(), id)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}

func (s *Server) handleUpdateInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid interview id")
		return
	}

	var req types.UpdateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	iv, err := s.machine.Update(r.Context(), id, &req)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid interview id")
		return
	}

	iv, err := s.booking.AcceptInvitation(r.Context(), id)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}

func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid interview id")
		return
	}

	from := time.Now().UTC()
	to := from.Add(7 * 24 * time.Hour)
	slots, err := s.booking.AvailableSlots(r.Context(), id, from, to)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"slots": slots})
}

// confirmRequest is the body for slot confirmation.
type confirmRequest struct {
	ScheduledTime time.Time `json:"scheduled_time"`
}

func (s *Server) handleConfirmSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid interview id")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ScheduledTime.IsZero() {
		s.errorResponse(w, r, http.StatusBadRequest, "scheduled_time is required")
		return
	}

	iv, err := s.booking.ConfirmSlot(r.Context(), id, req.ScheduledTime)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}

func (s *Server) handleRiskAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid interview id")
		return
	}

	iv, err := s.machine.Get(r.Context(), id)
	if err != nil {
		s.coreError(w, r, err)
		return
	}

	assessment, err := s.analyzer.Analyze(r.Context(), iv.ID, iv.CandidateID)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, assessment)
}

func (s *Server) handleAutoShortlist(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := s.manager.AutoShortlist(r.Context(), jobID, types.TriggerManual, actorID(r)); err != nil {
		s.coreError(w, r, err)
		return
	}

	counts, err := s.manager.GetShortlistStatus(r.Context(), jobID)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, counts)
}

// promoteRequest is the body for a manual buffer promotion.
type promoteRequest struct {
	VacatedRank int `json:"vacated_rank"`
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.VacatedRank < 1 {
		s.errorResponse(w, r, http.StatusBadRequest, "vacated_rank must be positive")
		return
	}

	if err := s.manager.PromoteFromBuffer(r.Context(), jobID, req.VacatedRank, types.TriggerManual, actorID(r)); err != nil {
		s.coreError(w, r, err)
		return
	}
	if err := s.manager.BackfillBuffer(r.Context(), jobID, types.TriggerManual, actorID(r)); err != nil {
		s.coreError(w, r, err)
		return
	}

	counts, err := s.manager.GetShortlistStatus(r.Context(), jobID)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, counts)
}

func (s *Server) handleShortlistStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	counts, err := s.manager.GetShortlistStatus(r.Context(), jobID)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, counts)
}

func (s *Server) handleAutomationLogs(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(r, "id")
	if !ok {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.logReader.ListLogsByJob(r.Context(), jobID, limit)
	if err != nil {
		s.coreError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleResponseTimes(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.collector.ResponseTimes(windowParam(r)))
}

func (s *Server) handleErrorStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.collector.Errors(windowParam(r)))
}

func (s *Server) handleAutomationStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.collector.AutomationActions(windowParam(r)))
}

func (s *Server) handleSchedulerStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.collector.SchedulerCycles(windowParam(r)))
}

func (s *Server) handleDeliveryStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.collector.Deliveries(windowParam(r)))
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.collector.CheckAlertThresholds(s.thresholds)
	s.jsonResponse(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// actorID reads the acting recruiter's id forwarded by the auth layer.
func actorID(r *http.Request) uuid.UUID {
	if v := r.Header.Get("X-Actor-ID"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			return id
		}
	}
	return uuid.Nil
}
