package analytics

import (
	"testing"
	"time"
)

// seedHourHistory spreads count points for one hour-of-day across distinct
// days well before the recent window, alternating between the given values.
func seedHourHistory(store *fakeStore, siteID string, hour, count int, values ...float64) {
	day := time.Date(2025, time.March, 1, hour, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		store.points = append(store.points, reading(siteID, day.Add(time.Duration(i)*24*time.Hour), values[i%len(values)]))
	}
}

func newTestInsightEngine(store *fakeStore) *InsightEngine {
	cfg := testAnalyticsConfig()
	return NewInsightEngine(store, NewProfiler(store, cfg), cfg)
}

func TestComputeSiteInsightsNilCases(t *testing.T) {
	t.Run("no history at all", func(t *testing.T) {
		engine := newTestInsightEngine(&fakeStore{})
		insights, err := engine.ComputeSiteInsights("site-a", 24, 30, testAsOf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if insights != nil {
			t.Fatalf("expected nil insights, got %+v", insights)
		}
	})

	t.Run("history but empty recent window", func(t *testing.T) {
		store := &fakeStore{}
		seedHourHistory(store, "site-a", 10, 5, 100)
		engine := newTestInsightEngine(store)
		insights, err := engine.ComputeSiteInsights("site-a", 24, 30, testAsOf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if insights != nil {
			t.Fatalf("expected nil insights for empty window, got %+v", insights)
		}
	})
}

func TestComputeSiteInsightsBandProgression(t *testing.T) {
	// Hour-10 history alternates 80/120 (mean 100, wide spread), so the band
	// is driven by the percent delta rather than the z-score.
	tests := []struct {
		name     string
		actual   float64
		wantBand string
	}{
		{"on baseline is normal", 100, BandNormal},
		{"moderate overshoot is elevated", 115, BandElevated},
		{"large overshoot is critical", 300, BandCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			seedHourHistory(store, "site-a", 10, 20, 80, 120)
			store.points = append(store.points, reading("site-a", testAsOf.Add(-2*time.Hour), tt.actual))

			engine := newTestInsightEngine(store)
			insights, err := engine.ComputeSiteInsights("site-a", 24, 30, testAsOf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if insights == nil {
				t.Fatal("expected insights")
			}

			hour := findHourBand(t, insights, 10)
			if hour.Band != tt.wantBand {
				t.Errorf("actual=%v: expected band %q, got %q (delta_pct=%.2f z=%.2f)",
					tt.actual, tt.wantBand, hour.Band, hour.DeltaPct, hour.ZScore)
			}
		})
	}
}

func TestComputeSiteInsightsZScoreElevation(t *testing.T) {
	// Tight history (98/102, std ~2): a small absolute overshoot stays under
	// the percent threshold but crosses the elevated z-score line.
	store := &fakeStore{}
	seedHourHistory(store, "site-a", 10, 20, 98, 102)
	store.points = append(store.points, reading("site-a", testAsOf.Add(-2*time.Hour), 105))

	engine := newTestInsightEngine(store)
	insights, err := engine.ComputeSiteInsights("site-a", 24, 30, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hour := findHourBand(t, insights, 10)
	if hour.DeltaPct >= 10 {
		t.Fatalf("fixture broken: delta_pct %.2f should stay below the percent threshold", hour.DeltaPct)
	}
	if hour.Band != BandElevated {
		t.Errorf("expected z-score driven elevated band, got %q (z=%.2f)", hour.Band, hour.ZScore)
	}
	if insights.ElevatedHours != 1 {
		t.Errorf("expected 1 elevated hour, got %d", insights.ElevatedHours)
	}
}

func TestComputeSiteInsightsRollups(t *testing.T) {
	store := &fakeStore{}
	seedHourHistory(store, "site-a", 10, 20, 100)
	seedHourHistory(store, "site-a", 14, 20, 50)
	// Hour 10 overshoots hard, hour 14 undershoots
	store.points = append(store.points,
		reading("site-a", testAsOf.Add(-2*time.Hour), 400),
		reading("site-a", testAsOf.Add(-22*time.Hour), 10),
	)

	engine := newTestInsightEngine(store)
	insights, err := engine.ComputeSiteInsights("site-a", 48, 30, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insights == nil {
		t.Fatal("expected insights")
	}

	if insights.CriticalHours != 1 {
		t.Errorf("expected 1 critical hour, got %d", insights.CriticalHours)
	}
	if insights.BelowBaselineHours != 1 {
		t.Errorf("expected 1 below-baseline hour, got %d", insights.BelowBaselineHours)
	}
	if insights.TotalActualKWH != 410 {
		t.Errorf("expected total actual 410, got %v", insights.TotalActualKWH)
	}
	if insights.TotalExpectedKWH <= 0 {
		t.Errorf("expected positive total expected, got %v", insights.TotalExpectedKWH)
	}
	if insights.DeviationPct <= 0 {
		t.Errorf("overshooting window should report positive deviation, got %v", insights.DeviationPct)
	}
	if len(insights.Hours) != 24 {
		t.Errorf("expected all 24 hour rows, got %d", len(insights.Hours))
	}
}

func TestComputeSiteInsightsMirrorsWarmup(t *testing.T) {
	store := &fakeStore{}
	// All history crammed into the 2 days before asOf: short span, still
	// enough to form an hourly baseline.
	for i := 0; i < 6; i++ {
		store.points = append(store.points, reading("site-a", testAsOf.Add(-time.Duration(10+i)*time.Hour), 100))
	}
	store.points = append(store.points, reading("site-a", testAsOf.Add(-2*time.Hour), 100))

	engine := newTestInsightEngine(store)
	insights, err := engine.ComputeSiteInsights("site-a", 24, 30, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if insights == nil {
		t.Fatal("expected insights")
	}
	if insights.Profile == nil {
		t.Fatal("expected attached profile")
	}
	if !insights.IsBaselineWarmingUp {
		t.Error("short history should report warming up")
	}
	if insights.ConfidenceLevel != ConfidenceLow {
		t.Errorf("expected confidence %q, got %q", ConfidenceLow, insights.ConfidenceLevel)
	}
}

func findHourBand(t *testing.T, insights *SiteInsights, hour int) HourBand {
	t.Helper()
	if insights == nil {
		t.Fatal("expected insights")
	}
	for _, h := range insights.Hours {
		if h.Hour == hour {
			return h
		}
	}
	t.Fatalf("hour %d missing from insights", hour)
	return HourBand{}
}
