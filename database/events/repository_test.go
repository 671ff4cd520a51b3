package events

import (
	"fmt"
	"testing"
	"time"

	models "wattscope/database/models_pkg"
)

func systemEvent(siteID, title, body string, createdAt time.Time) models.SiteEvent {
	return models.SiteEvent{
		SiteID:    siteID,
		EventType: "alert_triggered",
		Title:     title,
		Body:      body,
		CreatedAt: createdAt,
	}
}

func TestDedupSystemEventsCollapsesRepeats(t *testing.T) {
	base := time.Date(2025, time.March, 26, 12, 0, 0, 0, time.UTC)

	// Thirty scans re-detecting the same condition, newest first
	var events []models.SiteEvent
	for i := 0; i < 30; i++ {
		events = append(events, systemEvent("site-a", "Night baseline consumption elevated", "same body", base.Add(-time.Duration(i)*time.Hour)))
	}

	deduped := DedupSystemEvents(events)
	if len(deduped) != 1 {
		t.Fatalf("expected 30 identical detections to collapse to 1, got %d", len(deduped))
	}
	if !deduped[0].CreatedAt.Equal(base) {
		t.Errorf("expected the newest row kept, got %v", deduped[0].CreatedAt)
	}
}

func TestDedupSystemEventsKeySensitivity(t *testing.T) {
	now := time.Date(2025, time.March, 26, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		events []models.SiteEvent
		want   int
	}{
		{
			name: "different sites stay separate",
			events: []models.SiteEvent{
				systemEvent("site-a", "t", "b", now),
				systemEvent("site-b", "t", "b", now),
			},
			want: 2,
		},
		{
			name: "different titles stay separate",
			events: []models.SiteEvent{
				systemEvent("site-a", "night alert", "b", now),
				systemEvent("site-a", "spike alert", "b", now),
			},
			want: 2,
		},
		{
			name: "different bodies stay separate",
			events: []models.SiteEvent{
				systemEvent("site-a", "t", "ratio 0.71", now),
				systemEvent("site-a", "t", "ratio 0.74", now),
			},
			want: 2,
		},
		{
			name: "non-system types pass through",
			events: []models.SiteEvent{
				{SiteID: "site-a", EventType: "note", Title: "t", Body: "b"},
				{SiteID: "site-a", EventType: "note", Title: "t", Body: "b"},
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DedupSystemEvents(tt.events); len(got) != tt.want {
				t.Errorf("expected %d rows, got %d", tt.want, len(got))
			}
		})
	}
}

func TestDedupSystemEventsNeverCollapsesAuthoredRows(t *testing.T) {
	now := time.Date(2025, time.March, 26, 12, 0, 0, 0, time.UTC)

	var events []models.SiteEvent
	for i := 0; i < 5; i++ {
		user := "user-1"
		ev := systemEvent("site-a", "same title", "same body", now.Add(-time.Duration(i)*time.Minute))
		ev.CreatedByUserID = &user
		events = append(events, ev)
	}

	deduped := DedupSystemEvents(events)
	if len(deduped) != 5 {
		t.Fatalf("authored rows must never collapse, got %d of 5", len(deduped))
	}
}

func TestDedupSystemEventsPreservesOrderAcrossMixedRows(t *testing.T) {
	now := time.Date(2025, time.March, 26, 12, 0, 0, 0, time.UTC)
	user := "user-1"

	events := []models.SiteEvent{
		systemEvent("site-a", "alert", "b", now),
		{SiteID: "site-a", EventType: "note", Title: "checked the compressor", Body: "looks fine", CreatedByUserID: &user, CreatedAt: now.Add(-time.Minute)},
		systemEvent("site-a", "alert", "b", now.Add(-2*time.Minute)),
		systemEvent("site-a", "other alert", "b", now.Add(-3*time.Minute)),
	}

	deduped := DedupSystemEvents(events)
	if len(deduped) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(deduped))
	}

	got := make([]string, 0, len(deduped))
	for _, ev := range deduped {
		got = append(got, fmt.Sprintf("%s/%s", ev.EventType, ev.Title))
	}
	want := []string{"alert_triggered/alert", "note/checked the compressor", "alert_triggered/other alert"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDedupSystemEventsEmptyInput(t *testing.T) {
	if got := DedupSystemEvents(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}
