package analytics

import (
	"log"
	"time"

	"wattscope/config"
)

// Severity bands for a single hour of the recent window
const (
	BandNormal   = "normal"
	BandElevated = "elevated"
	BandCritical = "critical"
)

// HourlyStat is the hour-of-day baseline used by the insight engine. It is
// deliberately coarser than BaselineProfile: grouped only by hour, ignoring
// the weekday/weekend split, so the per-hour band narrative stays stable
// across the week. Both granularities are kept on purpose; they feed
// different consumers.
type HourlyStat struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

// HourBand is the comparison of one hour-of-day's recent actuals against the
// hourly baseline.
type HourBand struct {
	Hour        int     `json:"hour"`
	ActualKWH   float64 `json:"actual_kwh"`
	ExpectedKWH float64 `json:"expected_kwh"`
	DeltaKWH    float64 `json:"delta_kwh"`
	DeltaPct    float64 `json:"delta_pct"`
	ZScore      float64 `json:"z_score"`
	Band        string  `json:"band"`
}

// SiteInsights is the per-(site, window) snapshot returned to the API layer.
// It is ephemeral — computed per call, never stored.
type SiteInsights struct {
	SiteID             string    `json:"site_id"`
	WindowHours        int       `json:"window_hours"`
	LookbackDays       int       `json:"lookback_days"`
	AsOf               time.Time `json:"as_of"`
	TotalActualKWH     float64   `json:"total_actual_kwh"`
	TotalExpectedKWH   float64   `json:"total_expected_kwh"`
	DeviationPct       float64   `json:"deviation_pct"`
	CriticalHours      int       `json:"critical_hours"`
	ElevatedHours      int       `json:"elevated_hours"`
	BelowBaselineHours int       `json:"below_baseline_hours"`
	Hours              []HourBand `json:"hours"`

	// Warm-up metadata mirrored from the attached profile
	Profile             *BaselineProfile `json:"profile,omitempty"`
	TotalHistoryDays    int              `json:"total_history_days"`
	IsBaselineWarmingUp bool             `json:"is_baseline_warming_up"`
	ConfidenceLevel     string           `json:"confidence_level"`
}

// InsightEngine scores a recent window's actuals against the hourly baseline
type InsightEngine struct {
	store    ReadingStore
	profiler *Profiler
	cfg      config.AnalyticsConfig
}

// NewInsightEngine creates a new insight engine
func NewInsightEngine(store ReadingStore, profiler *Profiler, cfg config.AnalyticsConfig) *InsightEngine {
	return &InsightEngine{store: store, profiler: profiler, cfg: cfg}
}

// ComputeSiteInsights compares the recent window against the hour-of-day
// baseline. Returns (nil, nil) when either no baseline history or no recent
// points exist.
func (e *InsightEngine) ComputeSiteInsights(siteID string, windowHours, lookbackDays int, asOf time.Time) (*SiteInsights, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	if lookbackDays <= 0 {
		lookbackDays = e.profiler.defaultLookbackDays
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	baseline, err := e.hourlyBaseline(siteID, lookbackDays, asOf)
	if err != nil {
		return nil, err
	}
	if len(baseline) == 0 {
		return nil, nil
	}

	// The richer weekday/weekend profile rides along for forecasting and
	// warm-up context; losing it must not abort the insight computation.
	profile, err := e.profiler.ComputeBaselineProfile(siteID, "", lookbackDays, asOf, nil)
	if err != nil {
		log.Printf("⚠️  Failed to attach baseline profile for %s: %v", siteID, err)
		profile = nil
	}

	windowStart := asOf.Add(-time.Duration(windowHours) * time.Hour)
	recent, err := e.store.QueryPoints(siteID, "", windowStart, asOf, nil)
	if err != nil {
		return nil, err
	}

	actualByHour := make(map[int]float64)
	seen := false
	for _, point := range recent {
		if point.Timestamp.IsZero() || !validValue(point.ValueKWH) {
			continue
		}
		actualByHour[point.Timestamp.Hour()] += point.ValueKWH
		seen = true
	}
	if !seen {
		return nil, nil
	}

	insights := &SiteInsights{
		SiteID:          siteID,
		WindowHours:     windowHours,
		LookbackDays:    lookbackDays,
		AsOf:            asOf,
		Hours:           make([]HourBand, 0, 24),
		ConfidenceLevel: ConfidenceNormal,
	}

	for hour := 0; hour < 24; hour++ {
		actual := actualByHour[hour]

		var expected, std float64
		if stat, ok := baseline[hour]; ok {
			expected = stat.Mean
			std = stat.Std
		}

		delta := actual - expected
		var deltaPct float64
		switch {
		case expected > 0:
			deltaPct = delta / expected * 100
		case actual != 0:
			deltaPct = 100
		}

		var z float64
		if std > 0 {
			z = delta / std
		}

		band := BandNormal
		if expected > 0 {
			if deltaPct >= e.cfg.CriticalDeltaPct || z >= e.cfg.CriticalZScore {
				band = BandCritical
				insights.CriticalHours++
			} else if deltaPct >= e.cfg.ElevatedDeltaPct || z >= e.cfg.ElevatedZScore {
				band = BandElevated
				insights.ElevatedHours++
			}
			if actual < expected {
				insights.BelowBaselineHours++
			}
			insights.TotalExpectedKWH += expected
		}

		insights.TotalActualKWH += actual
		insights.Hours = append(insights.Hours, HourBand{
			Hour:        hour,
			ActualKWH:   actual,
			ExpectedKWH: expected,
			DeltaKWH:    delta,
			DeltaPct:    deltaPct,
			ZScore:      z,
			Band:        band,
		})
	}

	if insights.TotalExpectedKWH > 0 {
		insights.DeviationPct = (insights.TotalActualKWH - insights.TotalExpectedKWH) / insights.TotalExpectedKWH * 100
	}

	if profile != nil {
		insights.Profile = profile
		insights.TotalHistoryDays = profile.TotalHistoryDays
		insights.IsBaselineWarmingUp = profile.IsWarmingUp
		insights.ConfidenceLevel = profile.ConfidenceLevel
	}

	return insights, nil
}

// hourlyBaseline groups the lookback window's readings by hour-of-day only
func (e *InsightEngine) hourlyBaseline(siteID string, lookbackDays int, asOf time.Time) (map[int]HourlyStat, error) {
	start := asOf.Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	points, err := e.store.QueryPoints(siteID, "", start, asOf, nil)
	if err != nil {
		return nil, err
	}

	byHour := make(map[int][]float64)
	for _, point := range points {
		if point.Timestamp.IsZero() || !validValue(point.ValueKWH) {
			continue
		}
		hour := point.Timestamp.Hour()
		byHour[hour] = append(byHour[hour], point.ValueKWH)
	}

	baseline := make(map[int]HourlyStat, len(byHour))
	for hour, values := range byHour {
		baseline[hour] = HourlyStat{
			Mean: mean(values),
			Std:  populationStdDev(values),
			N:    len(values),
		}
	}
	return baseline, nil
}
