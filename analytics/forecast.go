package analytics

import (
	"log"
	"time"

	"wattscope/config"
)

// forecastBasisStub tags every projected point so consumers can tell this
// placeholder method from a future model without a response-shape change.
const forecastBasisStub = "stub_baseline_v1"

// ForecastPoint is one projected hour of consumption
type ForecastPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Hour        int       `json:"hour"`
	ExpectedKWH float64   `json:"expected_kwh"`
	LowerKWH    float64   `json:"lower_kwh"`
	UpperKWH    float64   `json:"upper_kwh"`
	Basis       string    `json:"basis"`
}

// Forecast projects the bucketed baseline forward by a horizon, adjusted by
// a recent-deviation uplift factor.
type Forecast struct {
	SiteID             string          `json:"site_id"`
	HorizonHours       int             `json:"horizon_hours"`
	HistoryWindowHours int             `json:"history_window_hours"`
	LookbackDays       int             `json:"lookback_days"`
	UpliftFactor       float64         `json:"uplift_factor"`
	GeneratedAt        time.Time       `json:"generated_at"`
	Points             []ForecastPoint `json:"points"`
	Basis              string          `json:"basis"`
}

// ForecastEngine extrapolates baseline buckets forward
type ForecastEngine struct {
	profiler *Profiler
	insights *InsightEngine
	cfg      config.AnalyticsConfig
}

// NewForecastEngine creates a new forecast engine
func NewForecastEngine(profiler *Profiler, insights *InsightEngine, cfg config.AnalyticsConfig) *ForecastEngine {
	return &ForecastEngine{profiler: profiler, insights: insights, cfg: cfg}
}

// ComputeSiteForecastStub projects a site's expected consumption over the
// horizon using the bucketed baseline, uplifted by the recent deviation.
// Returns (nil, nil) when no baseline exists.
func (e *ForecastEngine) ComputeSiteForecastStub(siteID string, historyWindowHours, horizonHours, lookbackDays int, asOf time.Time) (*Forecast, error) {
	if horizonHours <= 0 {
		horizonHours = 24
	}
	if historyWindowHours <= 0 {
		historyWindowHours = 24
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	profile, err := e.profiler.ComputeBaselineProfile(siteID, "", lookbackDays, asOf, nil)
	if err != nil {
		return nil, err
	}
	if profile == nil || len(profile.Buckets) == 0 {
		return nil, nil
	}

	// Recent deviation shifts the projection; losing it just means no uplift
	deviationPct := 0.0
	recent, err := e.insights.ComputeSiteInsights(siteID, historyWindowHours, lookbackDays, asOf)
	if err != nil {
		log.Printf("⚠️  Forecast uplift unavailable for %s: %v", siteID, err)
	} else if recent != nil {
		deviationPct = recent.DeviationPct
	}

	uplift := clamp(1+deviationPct/100, e.cfg.UpliftFloor, e.cfg.UpliftCeiling)
	bandFraction := e.cfg.ForecastBandPct / 100

	points := make([]ForecastPoint, 0, horizonHours)
	for h := 1; h <= horizonHours; h++ {
		ts := asOf.Add(time.Duration(h) * time.Hour)
		expected := profile.ExpectedFor(ts.Hour(), isWeekendDay(ts.Weekday())) * uplift

		var lower, upper float64
		if expected > 0 {
			lower = expected * (1 - bandFraction)
			upper = expected * (1 + bandFraction)
		}

		points = append(points, ForecastPoint{
			Timestamp:   ts,
			Hour:        ts.Hour(),
			ExpectedKWH: expected,
			LowerKWH:    lower,
			UpperKWH:    upper,
			Basis:       forecastBasisStub,
		})
	}

	return &Forecast{
		SiteID:             siteID,
		HorizonHours:       horizonHours,
		HistoryWindowHours: historyWindowHours,
		LookbackDays:       profile.LookbackDays,
		UpliftFactor:       uplift,
		GeneratedAt:        asOf,
		Points:             points,
		Basis:              forecastBasisStub,
	}, nil
}
