package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/savegress/melawatch/internal/insights"
	"github.com/savegress/melawatch/internal/reports"
	"github.com/savegress/melawatch/internal/simulation"
	"github.com/savegress/melawatch/pkg/models"
)

// Health check
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "melawatch",
		"time":    time.Now().UTC(),
	})
}

// Device handlers

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	if t := r.URL.Query().Get("type"); t != "" {
		deviceType := models.DeviceType(t)
		if !knownDeviceType(deviceType) {
			respondError(w, http.StatusBadRequest, "Unknown device type")
			return
		}
		respondJSON(w, http.StatusOK, s.store.DevicesByType(deviceType))
		return
	}
	respondJSON(w, http.StatusOK, s.store.AllDevices())
}

func knownDeviceType(t models.DeviceType) bool {
	for _, dt := range models.DeviceTypes {
		if dt == t {
			return true
		}
	}
	return false
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	device, ok := s.store.DeviceByID(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Device not found")
		return
	}
	respondJSON(w, http.StatusOK, device)
}

// deviceUpdateRequest is the admin edit payload. Both fields are
// optional; omitted fields are left unchanged.
type deviceUpdateRequest struct {
	Status   models.DeviceStatus `json:"status"`
	Metadata *models.Metadata    `json:"metadata"`
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req deviceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.store.UpdateDevice(id, req.Status, req.Metadata); err != nil {
		switch {
		case errors.Is(err, simulation.ErrDeviceNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, simulation.ErrInvalidStatus):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	device, _ := s.store.DeviceByID(id)
	respondJSON(w, http.StatusOK, device)
}

type rfidRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) assignRFID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req rfidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tag == "" {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.store.AssignRFID(id, req.Tag); err != nil {
		if errors.Is(err, simulation.ErrDeviceNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	device, _ := s.store.DeviceByID(id)
	respondJSON(w, http.StatusOK, device)
}

func (s *Server) clearRFID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.ClearRFID(id); err != nil {
		if errors.Is(err, simulation.ErrDeviceNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Simulation handlers

func (s *Server) forceRefresh(w http.ResponseWriter, r *http.Request) {
	s.store.ForceRefresh()
	respondJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Stats())
}

// Insight handlers

func (s *Server) listInsights(w http.ResponseWriter, r *http.Request) {
	if p := r.URL.Query().Get("priority"); p != "" {
		respondJSON(w, http.StatusOK, s.insights.InsightsByPriority(models.Priority(p)))
		return
	}
	respondJSON(w, http.StatusOK, s.insights.Insights())
}

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	if role := r.URL.Query().Get("role"); role != "" {
		respondJSON(w, http.StatusOK, s.insights.AssignmentsByRole(models.Role(role)))
		return
	}
	respondJSON(w, http.StatusOK, s.insights.Assignments())
}

type recommendationRequest struct {
	Context string `json:"context"`
}

// generateRecommendation never fails toward the client: any internal
// error is converted to the fixed fallback string.
func (s *Server) generateRecommendation(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	recommendation, err := s.insights.GenerateRecommendation(r.Context(), req.Context)
	if err != nil {
		recommendation = insights.FallbackRecommendation
	}

	respondJSON(w, http.StatusOK, map[string]string{"recommendation": recommendation})
}

// Report handlers

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	filter := reports.ReportFilter{
		Category: models.ReportCategory(r.URL.Query().Get("category")),
		Status:   models.ReportStatus(r.URL.Query().Get("status")),
		Severity: models.Priority(r.URL.Query().Get("severity")),
	}
	respondJSON(w, http.StatusOK, s.reports.List(filter))
}

func (s *Server) submitReport(w http.ResponseWriter, r *http.Request) {
	var report models.IssueReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.reports.Submit(&report); err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, report)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, ok := s.reports.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) acknowledgeReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.reports.Acknowledge(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (s *Server) resolveReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.reports.Resolve(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (s *Server) getReportStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.reports.Stats())
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
