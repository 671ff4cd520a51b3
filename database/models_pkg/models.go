package models

import "time"

// MeterReading represents a single metered consumption sample for a site.
// Readings are append-only: once ingested they are never mutated, and the
// (site_id, meter_id, timestamp) triple is expected to be unique under
// idempotent ingestion.
//
// Key Fields:
//   - Timestamp: when the consumption was metered (indexed for range queries)
//   - SiteID: the monitored site (indexed)
//   - MeterID: the physical or virtual meter within the site
//   - ValueKWH: consumed energy for the sample interval
//   - Unit: source unit as reported by the meter (normally "kwh")
type MeterReading struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	SiteID    string    `gorm:"size:64;index;not null" json:"site_id"`
	MeterID   string    `gorm:"size:64;index" json:"meter_id"`
	ValueKWH  float64   `gorm:"type:decimal(15,4);not null" json:"value_kwh"`
	Unit      string    `gorm:"size:16" json:"unit"`
}

// TableName specifies the table name for MeterReading
func (MeterReading) TableName() string {
	return "meter_readings"
}

// Site is the minimal site registry record used to decorate alerts with a
// human-readable name. Full site management lives outside this service.
type Site struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	OrganizationID string    `gorm:"size:64;index" json:"organization_id"`
	Name           string    `gorm:"size:200" json:"name"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Site
func (Site) TableName() string {
	return "sites"
}

// AlertEvent is the persisted, append-only record of a triggered alert.
// Rows are written best-effort on every scan that re-detects a condition;
// there is no write-side dedup. Operator workflow mutates Status/Note only.
//
// Key Fields:
//   - RuleKey: which rule fired (night_baseline, peak_spike, weekend_baseline,
//     portfolio_share, forecast_night_baseline)
//   - Severity: critical, warning or info
//   - Status: open, ack, resolved or muted
//   - WindowHours: the scan window the detection covered
type AlertEvent struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID string    `gorm:"size:64;index;not null" json:"organization_id"`
	SiteID         string    `gorm:"size:64;index:idx_alert_events_site_time;not null" json:"site_id"`
	RuleKey        string    `gorm:"size:64;index;not null" json:"rule_key"`
	Severity       string    `gorm:"size:16;not null" json:"severity"` // critical, warning, info
	Title          string    `gorm:"size:200;not null" json:"title"`
	Message        string    `gorm:"type:text" json:"message"`
	Metric         string    `gorm:"size:64" json:"metric"`
	WindowHours    int       `json:"window_hours"`
	Status         string    `gorm:"size:16;default:open;index" json:"status"` // open, ack, resolved, muted
	OwnerUserID    *string   `gorm:"size:64" json:"owner_user_id,omitempty"`
	Note           *string   `gorm:"type:text" json:"note,omitempty"`
	// TriggeredByUserID identifies the operator who ran the scan; nil for
	// scheduled scans.
	TriggeredByUserID *string `gorm:"size:64" json:"triggered_by_user_id,omitempty"`
	TriggeredAt    time.Time `gorm:"index:idx_alert_events_site_time;not null" json:"triggered_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for AlertEvent
func (AlertEvent) TableName() string {
	return "alert_events"
}

// SiteEvent is a generic append-only activity record for a site's timeline.
// System-generated rows (alert mirrors) are deduplicated at read time when
// listed; operator-authored rows never are. CreatedByUserID is nil for
// system-generated rows.
type SiteEvent struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID  string    `gorm:"size:64;index" json:"organization_id"`
	SiteID          string    `gorm:"size:64;index:idx_site_events_site_time;not null" json:"site_id"`
	EventType       string    `gorm:"size:64;not null" json:"event_type"` // alert_triggered, note, ...
	Title           string    `gorm:"size:200" json:"title"`
	Body            string    `gorm:"type:text" json:"body"`
	CreatedByUserID *string   `gorm:"size:64" json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index:idx_site_events_site_time" json:"created_at"`
}

// TableName specifies the table name for SiteEvent
func (SiteEvent) TableName() string {
	return "site_events"
}
