// Package readings implements the timeseries store for metered consumption
// samples. It is the only package that reads meter_readings.
package readings

import (
	"fmt"
	"time"

	models "wattscope/database/models_pkg"

	"gorm.io/gorm"
)

// Repository handles database operations for meter readings
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new readings repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SiteAggregate holds grouped window statistics for one site
type SiteAggregate struct {
	SiteID        string    `json:"site_id"`
	PointCount    int64     `json:"point_count"`
	TotalValue    float64   `json:"total_value"`
	AvgValue      float64   `json:"avg_value"`
	MaxValue      float64   `json:"max_value"`
	MinValue      float64   `json:"min_value"`
	LastTimestamp time.Time `json:"last_timestamp"`
}

// QueryPoints fetches readings in [start, end) for a site, optionally
// narrowed to one meter and to an allow-list of site ids. The allow-list is
// the tenant-scoping hook: an empty slice means no restriction.
func (r *Repository) QueryPoints(siteID, meterID string, start, end time.Time, allowedSiteIDs []string) ([]models.MeterReading, error) {
	query := r.db.Where("timestamp >= ? AND timestamp < ?", start, end)

	if siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if meterID != "" {
		query = query.Where("meter_id = ?", meterID)
	}
	if len(allowedSiteIDs) > 0 {
		query = query.Where("site_id IN ?", allowedSiteIDs)
	}

	var points []models.MeterReading
	if err := query.Order("timestamp ASC").Find(&points).Error; err != nil {
		return nil, fmt.Errorf("QueryPoints: %w", err)
	}
	return points, nil
}

// QuerySiteAggregates returns per-site count/sum/avg/max/min/last over the
// window, grouped in the database.
func (r *Repository) QuerySiteAggregates(start, end time.Time, allowedSiteIDs []string) ([]SiteAggregate, error) {
	query := `
		SELECT
			site_id,
			COUNT(*) as point_count,
			COALESCE(SUM(value_kwh), 0) as total_value,
			COALESCE(AVG(value_kwh), 0) as avg_value,
			COALESCE(MAX(value_kwh), 0) as max_value,
			COALESCE(MIN(value_kwh), 0) as min_value,
			MAX(timestamp) as last_timestamp
		FROM meter_readings
		WHERE timestamp >= ? AND timestamp < ?
	`
	args := []interface{}{start, end}

	if len(allowedSiteIDs) > 0 {
		query += " AND site_id IN ?"
		args = append(args, allowedSiteIDs)
	}
	query += " GROUP BY site_id ORDER BY total_value DESC"

	var aggregates []SiteAggregate
	if err := r.db.Raw(query, args...).Scan(&aggregates).Error; err != nil {
		return nil, fmt.Errorf("QuerySiteAggregates: %w", err)
	}
	return aggregates, nil
}

// QueryDistinctSiteIDs lists site ids present in the readings table
func (r *Repository) QueryDistinctSiteIDs(allowedSiteIDs []string) ([]string, error) {
	query := r.db.Model(&models.MeterReading{}).Distinct("site_id")
	if len(allowedSiteIDs) > 0 {
		query = query.Where("site_id IN ?", allowedSiteIDs)
	}

	var siteIDs []string
	if err := query.Order("site_id ASC").Pluck("site_id", &siteIDs).Error; err != nil {
		return nil, fmt.Errorf("QueryDistinctSiteIDs: %w", err)
	}
	return siteIDs, nil
}

// SaveReading appends a single reading (API-level single-point ingest)
func (r *Repository) SaveReading(reading *models.MeterReading) error {
	if err := r.db.Create(reading).Error; err != nil {
		return fmt.Errorf("SaveReading: %w", err)
	}
	return nil
}
