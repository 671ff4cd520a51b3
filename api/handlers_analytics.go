package api

import (
	"net/http"

	"wattscope/analytics"
)

// handleListSites returns the distinct site ids present in the readings store
func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	allowed := getCSVParam(r, "allowed_site_ids")

	siteIDs, err := s.deps.ReadingsRepo.QueryDistinctSiteIDs(allowed)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list sites", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"site_ids": siteIDs})
}

// handleGetBaseline returns the bucketed statistical baseline profile
func (s *Server) handleGetBaseline(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("id")
	maxLookback := 365
	lookbackDays := getIntParam(r, "lookback_days", 30, nil, &maxLookback)
	meterID := r.URL.Query().Get("meter_id")
	asOf := getTimeParam(r, "as_of")
	allowed := getCSVParam(r, "allowed_site_ids")

	profile, err := s.deps.Profiler.ComputeBaselineProfile(siteID, meterID, lookbackDays, asOf, allowed)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute baseline", err)
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusOK, warmingUpResponse(siteID))
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// handleGetInsights returns the recent-window deviation snapshot
func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("id")
	maxWindow := 168
	windowHours := getIntParam(r, "window_hours", 24, nil, &maxWindow)
	maxLookback := 365
	lookbackDays := getIntParam(r, "lookback_days", 30, nil, &maxLookback)
	asOf := getTimeParam(r, "as_of")

	// Cache only the default "now" view; historical as_of queries are rare
	cacheable := asOf.IsZero()
	if cacheable {
		var cached analytics.SiteInsights
		if s.deps.Cache.GetInsights(r.Context(), siteID, windowHours, lookbackDays, &cached) {
			writeJSON(w, http.StatusOK, &cached)
			return
		}
	}

	insights, err := s.deps.Insights.ComputeSiteInsights(siteID, windowHours, lookbackDays, asOf)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute insights", err)
		return
	}
	if insights == nil {
		writeJSON(w, http.StatusOK, warmingUpResponse(siteID))
		return
	}

	if cacheable {
		s.deps.Cache.SetInsights(r.Context(), siteID, windowHours, lookbackDays, insights)
	}
	writeJSON(w, http.StatusOK, insights)
}

// handleGetForecast returns the baseline-extrapolated projection
func (s *Server) handleGetForecast(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("id")
	maxWindow := 168
	historyWindowHours := getIntParam(r, "history_window_hours", 24, nil, &maxWindow)
	maxHorizon := 168
	horizonHours := getIntParam(r, "horizon_hours", 24, nil, &maxHorizon)
	maxLookback := 365
	lookbackDays := getIntParam(r, "lookback_days", 30, nil, &maxLookback)
	asOf := getTimeParam(r, "as_of")

	forecast, err := s.deps.Forecast.ComputeSiteForecastStub(siteID, historyWindowHours, horizonHours, lookbackDays, asOf)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute forecast", err)
		return
	}
	if forecast == nil {
		writeJSON(w, http.StatusOK, warmingUpResponse(siteID))
		return
	}

	writeJSON(w, http.StatusOK, forecast)
}
