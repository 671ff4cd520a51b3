// Package events implements the append-only alert and site-event log.
//
// Writes are unconditional: every scan that re-detects a condition appends
// another row. Idempotency is a read-side property — ListSiteEvents collapses
// repeated system-generated rows so the timeline a user sees does not grow
// when nothing changed, even though the underlying log does.
package events

import (
	"fmt"
	"time"

	models "wattscope/database/models_pkg"

	"gorm.io/gorm"
)

// Event types that the system writes on its own. Only these are candidates
// for read-side dedup; operator-authored rows are never collapsed.
var systemEventTypes = map[string]bool{
	"alert_triggered": true,
}

// Repository handles database operations for alert and site events
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new events repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveAlertEvent appends an alert event to the log
func (r *Repository) SaveAlertEvent(event *models.AlertEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("SaveAlertEvent: %w", err)
	}
	return nil
}

// SaveSiteEvent appends a site timeline event
func (r *Repository) SaveSiteEvent(event *models.SiteEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("SaveSiteEvent: %w", err)
	}
	return nil
}

// ListAlertEvents returns recent alert events, newest first. No dedup is
// applied here: the alert log is the audit trail and shows every detection.
func (r *Repository) ListAlertEvents(orgID, siteID, status string, limit int) ([]models.AlertEvent, error) {
	query := r.db.Order("triggered_at DESC")
	if orgID != "" {
		query = query.Where("organization_id = ?", orgID)
	}
	if siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []models.AlertEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("ListAlertEvents: %w", err)
	}
	return events, nil
}

// GetAlertEvent fetches one alert event by id
func (r *Repository) GetAlertEvent(id int64) (*models.AlertEvent, error) {
	var event models.AlertEvent
	err := r.db.First(&event, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("GetAlertEvent: %w", err)
	}
	return &event, nil
}

// UpdateAlertStatus applies an operator workflow action to an alert event
func (r *Repository) UpdateAlertStatus(id int64, status string, ownerUserID, note *string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if ownerUserID != nil {
		updates["owner_user_id"] = *ownerUserID
	}
	if note != nil {
		updates["note"] = *note
	}

	if err := r.db.Model(&models.AlertEvent{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("UpdateAlertStatus: %w", err)
	}
	return nil
}

// ListSiteEvents returns the deduplicated site timeline, newest first.
// The scan over-fetches so that collapsing duplicates can still fill the
// requested page.
func (r *Repository) ListSiteEvents(siteID string, limit int) ([]models.SiteEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Order("created_at DESC").Limit(limit * 4)
	if siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}

	var raw []models.SiteEvent
	if err := query.Find(&raw).Error; err != nil {
		return nil, fmt.Errorf("ListSiteEvents: %w", err)
	}

	deduped := DedupSystemEvents(raw)
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped, nil
}

// DedupSystemEvents collapses system-generated rows that share an identical
// (site_id, event_type, title, body) tuple, keeping the first occurrence in
// the given newest-first order. Rows with an author pass through untouched.
func DedupSystemEvents(events []models.SiteEvent) []models.SiteEvent {
	seen := make(map[string]bool)
	result := make([]models.SiteEvent, 0, len(events))

	for _, event := range events {
		if !systemEventTypes[event.EventType] || event.CreatedByUserID != nil {
			result = append(result, event)
			continue
		}

		key := event.SiteID + "\x00" + event.EventType + "\x00" + event.Title + "\x00" + event.Body
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, event)
	}
	return result
}

// SiteNames resolves site ids to display names, best-effort
func (r *Repository) SiteNames(siteIDs []string) (map[string]string, error) {
	if len(siteIDs) == 0 {
		return map[string]string{}, nil
	}

	var sites []models.Site
	if err := r.db.Where("id IN ?", siteIDs).Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("SiteNames: %w", err)
	}

	names := make(map[string]string, len(sites))
	for _, site := range sites {
		names[site.ID] = site.Name
	}
	return names, nil
}
