package analytics

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestComputeBaselineProfileNilOnEmpty(t *testing.T) {
	profiler := NewProfiler(&fakeStore{}, testAnalyticsConfig())

	profile, err := profiler.ComputeBaselineProfile("site-a", "", 30, testAsOf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile for empty history, got %+v", profile)
	}
}

func TestComputeBaselineProfileWarmupBoundary(t *testing.T) {
	tests := []struct {
		name           string
		spanDays       int
		wantWarmingUp  bool
		wantConfidence string
	}{
		{"6 inclusive days is warming up", 6, true, ConfidenceLow},
		{"7 inclusive days is settled", 7, false, ConfidenceNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			// Latest point the day before asOf, earliest spanDays-1 before that:
			// inclusive span covers exactly spanDays calendar days.
			latest := testAsOf.Add(-24 * time.Hour)
			earliest := latest.Add(-time.Duration(tt.spanDays-1) * 24 * time.Hour)
			store.points = append(store.points,
				reading("site-a", earliest, 10),
				reading("site-a", latest, 12),
			)

			profiler := NewProfiler(store, testAnalyticsConfig())
			profile, err := profiler.ComputeBaselineProfile("site-a", "", 30, testAsOf, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if profile == nil {
				t.Fatal("expected profile")
			}
			if profile.TotalHistoryDays != tt.spanDays {
				t.Errorf("expected history span %d, got %d", tt.spanDays, profile.TotalHistoryDays)
			}
			if profile.IsWarmingUp != tt.wantWarmingUp {
				t.Errorf("expected warming_up=%v, got %v", tt.wantWarmingUp, profile.IsWarmingUp)
			}
			if profile.ConfidenceLevel != tt.wantConfidence {
				t.Errorf("expected confidence %q, got %q", tt.wantConfidence, profile.ConfidenceLevel)
			}
		})
	}
}

func TestComputeBaselineProfileBucketOrderAndDeterminism(t *testing.T) {
	store := &fakeStore{}
	// Mix of weekend and weekday hours, inserted out of order
	saturday := time.Date(2025, time.March, 22, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2025, time.March, 24, 0, 0, 0, 0, time.UTC)
	store.points = append(store.points,
		reading("site-a", saturday.Add(14*time.Hour), 5),
		reading("site-a", monday.Add(3*time.Hour), 7),
		reading("site-a", saturday.Add(2*time.Hour), 4),
		reading("site-a", monday.Add(18*time.Hour), 9),
		reading("site-a", monday.Add(3*time.Hour), 11),
	)

	profiler := NewProfiler(store, testAnalyticsConfig())
	first, err := profiler.ComputeBaselineProfile("site-a", "", 30, testAsOf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := profiler.ComputeBaselineProfile("site-a", "", 30, testAsOf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("profile computation is not deterministic")
	}

	// Buckets must be sorted by (is_weekend, hour_of_day)
	for i := 1; i < len(first.Buckets); i++ {
		prev, cur := first.Buckets[i-1], first.Buckets[i]
		if prev.IsWeekend && !cur.IsWeekend {
			t.Fatalf("weekday bucket after weekend bucket at index %d", i)
		}
		if prev.IsWeekend == cur.IsWeekend && prev.HourOfDay >= cur.HourOfDay {
			t.Fatalf("buckets not ascending by hour at index %d", i)
		}
	}

	// The duplicated (monday, hour 3) samples land in one bucket
	bucket := first.BucketFor(3, false)
	if bucket == nil {
		t.Fatal("expected weekday hour-3 bucket")
	}
	if bucket.N != 2 || bucket.Mean != 9 {
		t.Errorf("expected n=2 mean=9, got n=%d mean=%v", bucket.N, bucket.Mean)
	}
	if bucket.StdDev != 2 {
		t.Errorf("expected population std 2, got %v", bucket.StdDev)
	}
}

func TestComputeBaselineProfileGlobalPercentiles(t *testing.T) {
	store := &fakeStore{}
	base := time.Date(2025, time.March, 17, 10, 0, 0, 0, time.UTC) // Monday
	for i, v := range []float64{10, 20, 30, 40, 50} {
		store.points = append(store.points, reading("site-a", base.Add(time.Duration(i)*24*time.Hour), v))
	}

	profiler := NewProfiler(store, testAnalyticsConfig())
	profile, err := profiler.ComputeBaselineProfile("site-a", "", 30, testAsOf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.GlobalP50 != 30 {
		t.Errorf("expected p50=30, got %v", profile.GlobalP50)
	}
	if profile.GlobalP90 != 50 {
		t.Errorf("expected p90=50 (nearest rank), got %v", profile.GlobalP90)
	}
	if profile.GlobalMean != 30 {
		t.Errorf("expected mean=30, got %v", profile.GlobalMean)
	}
	if profile.NPoints != 5 {
		t.Errorf("expected 5 points, got %d", profile.NPoints)
	}
}

func TestComputeBaselineProfileSkipsBrokenSamples(t *testing.T) {
	store := &fakeStore{}
	monday := time.Date(2025, time.March, 24, 10, 0, 0, 0, time.UTC)
	store.points = append(store.points,
		reading("site-a", monday, 100),
		reading("site-a", monday.Add(time.Hour), math.NaN()),
		reading("site-a", time.Time{}, 50), // null timestamp
	)

	profiler := NewProfiler(store, testAnalyticsConfig())
	profile, err := profiler.ComputeBaselineProfile("site-a", "", 30, testAsOf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile == nil {
		t.Fatal("expected profile from the one valid sample")
	}
	if profile.NPoints != 1 {
		t.Errorf("expected broken samples skipped, got n=%d", profile.NPoints)
	}
}

func TestExpectedForFallbackChain(t *testing.T) {
	profile := &BaselineProfile{
		Buckets: []BaselineBucket{
			{HourOfDay: 10, IsWeekend: false, Mean: 100},
			{HourOfDay: 11, IsWeekend: true, Mean: 40},
		},
		GlobalMean: 25,
	}

	tests := []struct {
		name     string
		hour     int
		weekend  bool
		expected float64
	}{
		{"exact bucket", 10, false, 100},
		{"opposite weekend flag fallback", 10, true, 100},
		{"opposite flag for weekend bucket", 11, false, 40},
		{"global mean fallback", 15, false, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := profile.ExpectedFor(tt.hour, tt.weekend); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}

	empty := &BaselineProfile{}
	if got := empty.ExpectedFor(3, false); got != 0 {
		t.Errorf("expected 0 for empty profile, got %v", got)
	}
}
