package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"wattscope/analytics"
)

// Alert workflow statuses accepted from operators
var validAlertStatuses = map[string]bool{
	"open":     true,
	"ack":      true,
	"resolved": true,
	"muted":    true,
}

// handleAlertScan triggers a portfolio scan and returns the generated alerts
func (s *Server) handleAlertScan(w http.ResponseWriter, r *http.Request) {
	maxWindow := 168
	windowHours := getIntParam(r, "window_hours", 24, nil, &maxWindow)
	persist := r.URL.Query().Get("persist") != "false"
	orgID := r.URL.Query().Get("organization_id")
	userID := r.URL.Query().Get("user_id")
	allowed := getCSVParam(r, "allowed_site_ids")

	alerts, err := s.deps.Alerts.GenerateAlertsForWindow(analytics.AlertScanOptions{
		WindowHours:    windowHours,
		AllowedSiteIDs: allowed,
		PersistEvents:  persist,
		OrganizationID: orgID,
		UserID:         userID,
	})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "alert scan failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window_hours": windowHours,
		"count":        len(alerts),
		"alerts":       alerts,
	})
}

// handleListAlerts lists persisted alert events, newest first
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	maxLimit := 500
	limit := getIntParam(r, "limit", 100, nil, &maxLimit)
	orgID := r.URL.Query().Get("organization_id")
	siteID := r.URL.Query().Get("site_id")
	status := r.URL.Query().Get("status")

	alerts, err := s.deps.EventsRepo.ListAlertEvents(orgID, siteID, status, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list alerts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// handleUpdateAlert applies an operator workflow action to one alert event
func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid alert id", err)
		return
	}

	var body struct {
		Status      string  `json:"status"`
		OwnerUserID *string `json:"owner_user_id,omitempty"`
		Note        *string `json:"note,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !validAlertStatuses[body.Status] {
		respondWithError(w, http.StatusBadRequest, "invalid status", nil)
		return
	}

	existing, err := s.deps.EventsRepo.GetAlertEvent(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load alert", err)
		return
	}
	if existing == nil {
		respondWithError(w, http.StatusNotFound, "alert not found", nil)
		return
	}

	if err := s.deps.EventsRepo.UpdateAlertStatus(id, body.Status, body.OwnerUserID, body.Note); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to update alert", err)
		return
	}

	updated, err := s.deps.EventsRepo.GetAlertEvent(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to reload alert", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
