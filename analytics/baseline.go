package analytics

import (
	"time"

	models "wattscope/database/models_pkg"
	"wattscope/database/readings"

	"wattscope/config"
)

// ReadingStore is the slice of the timeseries store the analytics engines
// consume. The readings repository satisfies it; tests use in-memory fakes.
type ReadingStore interface {
	QueryPoints(siteID, meterID string, start, end time.Time, allowedSiteIDs []string) ([]models.MeterReading, error)
	QuerySiteAggregates(start, end time.Time, allowedSiteIDs []string) ([]readings.SiteAggregate, error)
}

// Confidence levels reported on a baseline profile
const (
	ConfidenceLow    = "low"
	ConfidenceNormal = "normal"
)

// BaselineBucket holds the consumption statistics for one
// (hour-of-day, weekend) grouping of the historical window.
type BaselineBucket struct {
	HourOfDay int     `json:"hour_of_day"`
	IsWeekend bool    `json:"is_weekend"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	N         int     `json:"n"`
}

// BaselineProfile is the statistical profile of a site's historical
// consumption. It is recomputed per request and never persisted.
type BaselineProfile struct {
	SiteID           string           `json:"site_id"`
	MeterID          string           `json:"meter_id,omitempty"`
	LookbackDays     int              `json:"lookback_days"`
	Buckets          []BaselineBucket `json:"buckets"`
	GlobalMean       float64          `json:"global_mean"`
	GlobalP50        float64          `json:"global_p50"`
	GlobalP90        float64          `json:"global_p90"`
	NPoints          int              `json:"n_points"`
	TotalHistoryDays int              `json:"total_history_days"`
	IsWarmingUp      bool             `json:"is_warming_up"`
	ConfidenceLevel  string           `json:"confidence_level"`
}

// BucketFor returns the bucket for an exact (hour, weekend) pair, or nil
func (p *BaselineProfile) BucketFor(hour int, weekend bool) *BaselineBucket {
	for i := range p.Buckets {
		if p.Buckets[i].HourOfDay == hour && p.Buckets[i].IsWeekend == weekend {
			return &p.Buckets[i]
		}
	}
	return nil
}

// ExpectedFor resolves the expected baseline value for a projected hour:
// exact (hour, weekend) bucket first, then the same hour with the opposite
// weekend flag, then the global mean, then 0.
func (p *BaselineProfile) ExpectedFor(hour int, weekend bool) float64 {
	if b := p.BucketFor(hour, weekend); b != nil {
		return b.Mean
	}
	if b := p.BucketFor(hour, !weekend); b != nil {
		return b.Mean
	}
	if p.GlobalMean > 0 {
		return p.GlobalMean
	}
	return 0
}

// Profiler computes per-site baseline profiles from historical readings
type Profiler struct {
	store               ReadingStore
	defaultLookbackDays int
	warmupMinDays       int
}

// NewProfiler creates a new baseline profiler
func NewProfiler(store ReadingStore, cfg config.AnalyticsConfig) *Profiler {
	lookback := cfg.DefaultLookbackDays
	if lookback <= 0 {
		lookback = 30
	}
	warmup := cfg.WarmupMinDays
	if warmup <= 0 {
		warmup = 7
	}
	return &Profiler{
		store:               store,
		defaultLookbackDays: lookback,
		warmupMinDays:       warmup,
	}
}

// ComputeBaselineProfile builds the (hour × weekend) consumption profile for
// a site over the lookback window ending at now. Returns (nil, nil) when no
// usable historical points exist — callers treat that as "no data yet", not
// an error.
func (p *Profiler) ComputeBaselineProfile(siteID, meterID string, lookbackDays int, now time.Time, allowedSiteIDs []string) (*BaselineProfile, error) {
	if lookbackDays <= 0 {
		lookbackDays = p.defaultLookbackDays
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	start := now.Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	points, err := p.store.QueryPoints(siteID, meterID, start, now, allowedSiteIDs)
	if err != nil {
		return nil, err
	}

	type bucketKey struct {
		hour    int
		weekend bool
	}

	grouped := make(map[bucketKey][]float64)
	var allValues []float64
	var earliest, latest time.Time

	for _, point := range points {
		if point.Timestamp.IsZero() || !validValue(point.ValueKWH) {
			continue
		}

		if earliest.IsZero() || point.Timestamp.Before(earliest) {
			earliest = point.Timestamp
		}
		if latest.IsZero() || point.Timestamp.After(latest) {
			latest = point.Timestamp
		}

		key := bucketKey{
			hour:    point.Timestamp.Hour(),
			weekend: isWeekendDay(point.Timestamp.Weekday()),
		}
		grouped[key] = append(grouped[key], point.ValueKWH)
		allValues = append(allValues, point.ValueKWH)
	}

	if len(allValues) == 0 {
		return nil, nil
	}

	historyDays := inclusiveDaySpan(earliest, latest)
	warmingUp := historyDays < p.warmupMinDays
	confidence := ConfidenceNormal
	if warmingUp {
		confidence = ConfidenceLow
	}

	// Deterministic bucket order: weekday buckets first, then weekend,
	// ascending by hour within each.
	buckets := make([]BaselineBucket, 0, len(grouped))
	for _, weekend := range []bool{false, true} {
		for hour := 0; hour < 24; hour++ {
			values, ok := grouped[bucketKey{hour: hour, weekend: weekend}]
			if !ok {
				continue
			}
			buckets = append(buckets, BaselineBucket{
				HourOfDay: hour,
				IsWeekend: weekend,
				Mean:      mean(values),
				StdDev:    populationStdDev(values),
				N:         len(values),
			})
		}
	}

	return &BaselineProfile{
		SiteID:           siteID,
		MeterID:          meterID,
		LookbackDays:     lookbackDays,
		Buckets:          buckets,
		GlobalMean:       mean(allValues),
		GlobalP50:        percentileNearestRank(allValues, 50),
		GlobalP90:        percentileNearestRank(allValues, 90),
		NPoints:          len(allValues),
		TotalHistoryDays: historyDays,
		IsWarmingUp:      warmingUp,
		ConfidenceLevel:  confidence,
	}, nil
}

// inclusiveDaySpan counts calendar days covered by [earliest, latest],
// both endpoints included.
func inclusiveDaySpan(earliest, latest time.Time) int {
	first := time.Date(earliest.Year(), earliest.Month(), earliest.Day(), 0, 0, 0, 0, earliest.Location())
	last := time.Date(latest.Year(), latest.Month(), latest.Day(), 0, 0, 0, 0, latest.Location())
	return int(last.Sub(first).Hours()/24) + 1
}
