package api

import (
	"encoding/json"
	"net/http"
	"strings"

	models "wattscope/database/models_pkg"
)

// handleListSiteEvents returns the deduplicated site timeline
func (s *Server) handleListSiteEvents(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("id")
	maxLimit := 200
	limit := getIntParam(r, "limit", 50, nil, &maxLimit)

	events, err := s.deps.EventsRepo.ListSiteEvents(siteID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list site events", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"site_id": siteID,
		"count":   len(events),
		"events":  events,
	})
}

// handleCreateSiteNote appends an operator-authored note to the timeline.
// Authored events are never deduplicated.
func (s *Server) handleCreateSiteNote(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("id")

	var body struct {
		Title          string `json:"title"`
		Body           string `json:"body"`
		UserID         string `json:"user_id"`
		OrganizationID string `json:"organization_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(body.UserID) == "" {
		respondWithError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	event := &models.SiteEvent{
		OrganizationID:  body.OrganizationID,
		SiteID:          siteID,
		EventType:       "note",
		Title:           body.Title,
		Body:            body.Body,
		CreatedByUserID: &body.UserID,
	}
	if err := s.deps.EventsRepo.SaveSiteEvent(event); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to save note", err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}
