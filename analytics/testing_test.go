package analytics

import (
	"errors"
	"time"

	models "wattscope/database/models_pkg"
	"wattscope/database/readings"

	"wattscope/config"
)

// fakeStore is an in-memory ReadingStore for engine tests
type fakeStore struct {
	points     []models.MeterReading
	aggregates []readings.SiteAggregate
	pointsErr  error
	aggErr     error
}

func (f *fakeStore) QueryPoints(siteID, meterID string, start, end time.Time, allowedSiteIDs []string) ([]models.MeterReading, error) {
	if f.pointsErr != nil {
		return nil, f.pointsErr
	}

	var out []models.MeterReading
	for _, p := range f.points {
		if siteID != "" && p.SiteID != siteID {
			continue
		}
		if meterID != "" && p.MeterID != meterID {
			continue
		}
		if p.Timestamp.Before(start) || !p.Timestamp.Before(end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) QuerySiteAggregates(start, end time.Time, allowedSiteIDs []string) ([]readings.SiteAggregate, error) {
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	return f.aggregates, nil
}

// fakeSink records persisted events and optionally fails
type fakeSink struct {
	alertEvents []models.AlertEvent
	siteEvents  []models.SiteEvent
	failWrites  bool
}

func (f *fakeSink) SaveAlertEvent(event *models.AlertEvent) error {
	if f.failWrites {
		return errors.New("sink unavailable")
	}
	f.alertEvents = append(f.alertEvents, *event)
	return nil
}

func (f *fakeSink) SaveSiteEvent(event *models.SiteEvent) error {
	if f.failWrites {
		return errors.New("sink unavailable")
	}
	f.siteEvents = append(f.siteEvents, *event)
	return nil
}

// denyCaps refuses alert generation; errCaps fails resolution
type denyCaps struct{}

func (denyCaps) AlertsEnabled(string) (bool, error) { return false, nil }

type errCaps struct{}

func (errCaps) AlertsEnabled(string) (bool, error) { return false, errors.New("flag service down") }

func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		DefaultLookbackDays: 30,
		WarmupMinDays:       7,
		CriticalDeltaPct:    30,
		CriticalZScore:      2.5,
		ElevatedDeltaPct:    10,
		ElevatedZScore:      1.5,
		UpliftFloor:         0.1,
		UpliftCeiling:       3.0,
		ForecastBandPct:     10,
	}
}

func testAlertingConfig() config.AlertingConfig {
	return config.AlertingConfig{
		MinPoints:               4,
		MinTotalKWH:             0,
		NightCriticalRatio:      0.7,
		NightWarningRatio:       0.4,
		SpikeWarningRatio:       2.5,
		WeekendCriticalRatio:    0.8,
		WeekendWarningRatio:     0.6,
		PortfolioShareInfoRatio: 1.5,
		MaterialityShare:        0.2,
	}
}

// Wednesday noon, UTC — a fixed reference instant for deterministic tests
var testAsOf = time.Date(2025, time.March, 26, 12, 0, 0, 0, time.UTC)

func reading(siteID string, ts time.Time, value float64) models.MeterReading {
	return models.MeterReading{SiteID: siteID, MeterID: "m1", Timestamp: ts, ValueKWH: value, Unit: "kwh"}
}
