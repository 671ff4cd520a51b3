package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	models "wattscope/database/models_pkg"
	"wattscope/metrics"
)

// handleIngestCSV bulk-loads meter readings from the request body.
// Expected rows: site_id,meter_id,timestamp,value,unit (RFC3339 timestamps).
func (s *Server) handleIngestCSV(w http.ResponseWriter, r *http.Request) {
	if s.deps.Loader == nil {
		respondWithError(w, http.StatusServiceUnavailable, "bulk ingestion is unavailable", nil)
		return
	}

	result, err := s.deps.Loader.LoadCSV(r.Body)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "CSV ingestion failed", err)
		return
	}

	metrics.ReadingsIngestedTotal.Add(float64(result.Inserted))
	for _, siteID := range result.SiteIDs {
		s.deps.Cache.InvalidateSite(r.Context(), siteID)
	}
	writeJSON(w, http.StatusOK, result)
}

// handleIngestReading appends one reading (ad-hoc ingest for integrations
// that do not batch)
func (s *Server) handleIngestReading(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SiteID    string    `json:"site_id"`
		MeterID   string    `json:"meter_id"`
		Timestamp time.Time `json:"timestamp"`
		ValueKWH  float64   `json:"value_kwh"`
		Unit      string    `json:"unit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(body.SiteID) == "" || body.Timestamp.IsZero() {
		respondWithError(w, http.StatusBadRequest, "site_id and timestamp are required", nil)
		return
	}

	unit := body.Unit
	if unit == "" {
		unit = "kwh"
	}
	reading := &models.MeterReading{
		SiteID:    body.SiteID,
		MeterID:   body.MeterID,
		Timestamp: body.Timestamp,
		ValueKWH:  body.ValueKWH,
		Unit:      strings.ToLower(unit),
	}
	if err := s.deps.ReadingsRepo.SaveReading(reading); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to save reading", err)
		return
	}

	metrics.ReadingsIngestedTotal.Inc()
	s.deps.Cache.InvalidateSite(r.Context(), body.SiteID)
	writeJSON(w, http.StatusCreated, reading)
}
