package analytics

import (
	"math"
	"testing"
	"time"
)

func newTestForecastEngine(store *fakeStore) *ForecastEngine {
	cfg := testAnalyticsConfig()
	profiler := NewProfiler(store, cfg)
	return NewForecastEngine(profiler, NewInsightEngine(store, profiler, cfg), cfg)
}

func TestComputeSiteForecastStubNilWithoutBaseline(t *testing.T) {
	engine := newTestForecastEngine(&fakeStore{})
	forecast, err := engine.ComputeSiteForecastStub("site-a", 24, 24, 30, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forecast != nil {
		t.Fatalf("expected nil forecast without history, got %+v", forecast)
	}
}

func TestComputeSiteForecastStubUpliftClamping(t *testing.T) {
	tests := []struct {
		name       string
		recentKWH  float64
		wantUplift float64
	}{
		{"massive overshoot clamps to ceiling", 600, 3.0},
		{"near-zero window clamps to floor", 2, 0.1},
		{"on-baseline window has unit uplift", 100, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			seedHourHistory(store, "site-a", 10, 20, 100)
			store.points = append(store.points, reading("site-a", testAsOf.Add(-2*time.Hour), tt.recentKWH))

			engine := newTestForecastEngine(store)
			forecast, err := engine.ComputeSiteForecastStub("site-a", 24, 24, 30, testAsOf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if forecast == nil {
				t.Fatal("expected forecast")
			}
			if math.Abs(forecast.UpliftFactor-tt.wantUplift) > 1e-9 {
				t.Errorf("expected uplift %v, got %v", tt.wantUplift, forecast.UpliftFactor)
			}
		})
	}
}

func TestComputeSiteForecastStubPointShape(t *testing.T) {
	store := &fakeStore{}
	seedHourHistory(store, "site-a", 10, 20, 100)
	store.points = append(store.points, reading("site-a", testAsOf.Add(-2*time.Hour), 100))

	engine := newTestForecastEngine(store)
	forecast, err := engine.ComputeSiteForecastStub("site-a", 24, 24, 30, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forecast == nil {
		t.Fatal("expected forecast")
	}

	if forecast.Basis != "stub_baseline_v1" {
		t.Errorf("expected basis stub_baseline_v1, got %q", forecast.Basis)
	}
	if len(forecast.Points) != 24 {
		t.Fatalf("expected 24 points, got %d", len(forecast.Points))
	}

	for i, point := range forecast.Points {
		wantTS := testAsOf.Add(time.Duration(i+1) * time.Hour)
		if !point.Timestamp.Equal(wantTS) {
			t.Errorf("point %d: expected timestamp %v, got %v", i, wantTS, point.Timestamp)
		}
		if point.Hour != wantTS.Hour() {
			t.Errorf("point %d: expected hour %d, got %d", i, wantTS.Hour(), point.Hour)
		}
		if point.Basis != "stub_baseline_v1" {
			t.Errorf("point %d: unexpected basis %q", i, point.Basis)
		}
		if point.ExpectedKWH <= 0 {
			t.Errorf("point %d: expected positive projection, got %v", i, point.ExpectedKWH)
			continue
		}
		if math.Abs(point.LowerKWH-point.ExpectedKWH*0.9) > 1e-9 {
			t.Errorf("point %d: lower band %v does not bracket %v", i, point.LowerKWH, point.ExpectedKWH)
		}
		if math.Abs(point.UpperKWH-point.ExpectedKWH*1.1) > 1e-9 {
			t.Errorf("point %d: upper band %v does not bracket %v", i, point.UpperKWH, point.ExpectedKWH)
		}
	}
}
