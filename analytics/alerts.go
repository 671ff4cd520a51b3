package analytics

import (
	"fmt"
	"log"
	"time"

	models "wattscope/database/models_pkg"
	"wattscope/database/readings"

	"wattscope/config"
	"wattscope/metrics"
)

// Alert severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Rule keys identifying which detection fired
const (
	RuleNightBaseline         = "night_baseline"
	RulePeakSpike             = "peak_spike"
	RuleWeekendBaseline       = "weekend_baseline"
	RulePortfolioShare        = "portfolio_share"
	RuleForecastNightBaseline = "forecast_night_baseline"
)

// statsSourceBaseline tags the flattened insight context on an alert
const statsSourceBaseline = "baseline_v1"

// Night and day hour sets reflect typical plant operating patterns. They are
// fixed domain assumptions, kept as package constants rather than inferred.
var (
	nightHours = map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 22: true, 23: true}
	dayHours   = map[int]bool{8: true, 9: true, 10: true, 11: true, 12: true, 13: true, 14: true, 15: true, 16: true, 17: true, 18: true, 19: true}
)

// RuleThresholds are the tunable limits one portfolio scan evaluates against.
// The zero value is unusable; build from DefaultThresholds and override per
// site through AlertScanOptions.Overrides.
type RuleThresholds struct {
	NightCriticalRatio      float64 `json:"night_critical_ratio"`
	NightWarningRatio       float64 `json:"night_warning_ratio"`
	SpikeWarningRatio       float64 `json:"spike_warning_ratio"`
	WeekendCriticalRatio    float64 `json:"weekend_critical_ratio"`
	WeekendWarningRatio     float64 `json:"weekend_warning_ratio"`
	PortfolioShareInfoRatio float64 `json:"portfolio_share_info_ratio"`
	MaterialityShare        float64 `json:"materiality_share"`
}

// DefaultThresholds builds the global rule thresholds from configuration
func DefaultThresholds(cfg config.AlertingConfig) RuleThresholds {
	return RuleThresholds{
		NightCriticalRatio:      cfg.NightCriticalRatio,
		NightWarningRatio:       cfg.NightWarningRatio,
		SpikeWarningRatio:       cfg.SpikeWarningRatio,
		WeekendCriticalRatio:    cfg.WeekendCriticalRatio,
		WeekendWarningRatio:     cfg.WeekendWarningRatio,
		PortfolioShareInfoRatio: cfg.PortfolioShareInfoRatio,
		MaterialityShare:        cfg.MaterialityShare,
	}
}

// Alert is the ephemeral detection returned to the caller. The persisted
// counterpart is models.AlertEvent.
type Alert struct {
	ID          int       `json:"id"`
	SiteID      string    `json:"site_id"`
	SiteName    string    `json:"site_name,omitempty"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Metric      string    `json:"metric"`
	RuleKey     string    `json:"rule_key"`
	WindowHours int       `json:"window_hours"`
	TriggeredAt time.Time `json:"triggered_at"`

	// Flattened statistical context from the site's insights, when available
	StatsSource        string   `json:"stats_source,omitempty"`
	DeviationPct       *float64 `json:"deviation_pct,omitempty"`
	GlobalMeanKWH      *float64 `json:"global_mean_kwh,omitempty"`
	GlobalP50KWH       *float64 `json:"global_p50_kwh,omitempty"`
	GlobalP90KWH       *float64 `json:"global_p90_kwh,omitempty"`
	CriticalHours      *int     `json:"critical_hours,omitempty"`
	ElevatedHours      *int     `json:"elevated_hours,omitempty"`
	BelowBaselineHours *int     `json:"below_baseline_hours,omitempty"`
	LookbackDays       *int     `json:"lookback_days,omitempty"`
}

// AlertScanOptions parameterizes one portfolio scan. UserID is the operator
// who initiated the scan, stamped onto persisted alert events; empty for
// scheduled runs.
type AlertScanOptions struct {
	WindowHours    int
	AllowedSiteIDs []string
	PersistEvents  bool
	OrganizationID string
	UserID         string
	AsOf           time.Time

	// Per-site threshold overrides, keyed by site id. Treated as immutable.
	Overrides map[string]RuleThresholds
}

// EventSink receives generated alerts for best-effort persistence
type EventSink interface {
	SaveAlertEvent(event *models.AlertEvent) error
	SaveSiteEvent(event *models.SiteEvent) error
}

// SiteNamer resolves site ids to display names
type SiteNamer interface {
	SiteNames(siteIDs []string) (map[string]string, error)
}

// AlertPublisher pushes generated alerts to live subscribers
type AlertPublisher interface {
	PublishAlert(alert Alert)
}

// CapabilityResolver answers whether an organization's plan includes alert
// generation. Resolution failures default to allow so a flag outage never
// locks a tenant out.
type CapabilityResolver interface {
	AlertsEnabled(orgID string) (bool, error)
}

// StaticCapabilities is the config-backed resolver used when no billing
// integration is wired in.
type StaticCapabilities struct {
	Allow bool
}

// AlertsEnabled always returns the configured default
func (c StaticCapabilities) AlertsEnabled(string) (bool, error) {
	return c.Allow, nil
}

// AlertRuleEngine runs the five portfolio detection rules over one window
type AlertRuleEngine struct {
	store     ReadingStore
	insights  *InsightEngine
	events    EventSink
	names     SiteNamer
	caps      CapabilityResolver
	publisher AlertPublisher

	defaults    RuleThresholds
	minPoints   int
	minTotalKWH float64
}

// NewAlertRuleEngine creates a new alert rule engine. events, names, caps and
// publisher may be nil; the engine degrades to compute-only behavior.
func NewAlertRuleEngine(store ReadingStore, insights *InsightEngine, events EventSink, names SiteNamer, caps CapabilityResolver, cfg config.AlertingConfig) *AlertRuleEngine {
	minPoints := cfg.MinPoints
	if minPoints <= 0 {
		minPoints = 4
	}
	return &AlertRuleEngine{
		store:       store,
		insights:    insights,
		events:      events,
		names:       names,
		caps:        caps,
		defaults:    DefaultThresholds(cfg),
		minPoints:   minPoints,
		minTotalKWH: cfg.MinTotalKWH,
	}
}

// SetPublisher attaches a live alert publisher
func (e *AlertRuleEngine) SetPublisher(publisher AlertPublisher) {
	e.publisher = publisher
}

// siteWindowStats accumulates the night/day and weekday/weekend sums from a
// single pass over the window's raw points.
type siteWindowStats struct {
	nightSum   float64
	nightCount int
	daySum     float64
	dayCount   int

	weekdaySum   float64
	weekdayCount int
	weekendSum   float64
	weekendCount int
}

// GenerateAlertsForWindow evaluates every rule for every eligible site in the
// window and returns the triggered alerts. Persistence is best-effort and
// never affects the returned list.
func (e *AlertRuleEngine) GenerateAlertsForWindow(opts AlertScanOptions) ([]Alert, error) {
	windowHours := opts.WindowHours
	if windowHours <= 0 {
		windowHours = 24
	}
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	if !e.alertsEnabled(opts.OrganizationID) {
		log.Printf("ℹ️  Alert generation disabled for organization %s", opts.OrganizationID)
		return []Alert{}, nil
	}

	windowStart := asOf.Add(-time.Duration(windowHours) * time.Hour)

	aggregates, err := e.store.QuerySiteAggregates(windowStart, asOf, opts.AllowedSiteIDs)
	if err != nil {
		return nil, fmt.Errorf("GenerateAlertsForWindow: %w", err)
	}

	// Insufficient-data guard
	eligible := aggregates[:0]
	portfolioTotal := 0.0
	for _, agg := range aggregates {
		if agg.PointCount < int64(e.minPoints) || agg.TotalValue <= e.minTotalKWH {
			continue
		}
		eligible = append(eligible, agg)
		portfolioTotal += agg.TotalValue
	}
	if len(eligible) == 0 {
		return []Alert{}, nil
	}
	portfolioAvgPerSite := portfolioTotal / float64(len(eligible))

	windowStats, err := e.collectWindowStats(windowStart, asOf, opts.AllowedSiteIDs)
	if err != nil {
		return nil, fmt.Errorf("GenerateAlertsForWindow: %w", err)
	}

	siteNames := e.resolveSiteNames(eligible)

	var alerts []Alert
	nextID := 0
	emit := func(siteID, severity, title, message, metric, ruleKey string, insights *SiteInsights) {
		nextID++
		alert := Alert{
			ID:          nextID,
			SiteID:      siteID,
			SiteName:    siteNames[siteID],
			Severity:    severity,
			Title:       title,
			Message:     message,
			Metric:      metric,
			RuleKey:     ruleKey,
			WindowHours: windowHours,
			TriggeredAt: asOf,
		}
		attachStatsContext(&alert, insights)
		alerts = append(alerts, alert)
		metrics.AlertsGeneratedTotal.WithLabelValues(ruleKey, severity).Inc()
	}

	for _, agg := range eligible {
		siteID := agg.SiteID
		th := e.defaults
		if override, ok := opts.Overrides[siteID]; ok {
			th = override
		}

		// Per-site insight failures must not abort the batch
		siteInsights, err := e.insights.ComputeSiteInsights(siteID, windowHours, 0, asOf)
		if err != nil {
			log.Printf("⚠️  Failed to compute insights for %s: %v", siteID, err)
			siteInsights = nil
		}

		stats := windowStats[siteID]
		material := portfolioTotal > 0 && agg.TotalValue >= th.MaterialityShare*portfolioTotal

		// Rule 1: night-baseline waste, material sites only
		if material && stats != nil && stats.nightCount > 0 && stats.dayCount > 0 {
			avgNight := stats.nightSum / float64(stats.nightCount)
			avgDay := stats.daySum / float64(stats.dayCount)
			if avgDay > 0 {
				nightRatio := avgNight / avgDay
				if nightRatio >= th.NightCriticalRatio {
					emit(siteID, SeverityCritical, "Night baseline consumption elevated",
						fmt.Sprintf("Night-hour average %.1f kWh is %.0f%% of the day-hour average %.1f kWh over the last %dh.",
							avgNight, nightRatio*100, avgDay, windowHours),
						"night_ratio", RuleNightBaseline, siteInsights)
				} else if nightRatio >= th.NightWarningRatio {
					emit(siteID, SeverityWarning, "Night baseline consumption creeping up",
						fmt.Sprintf("Night-hour average %.1f kWh is %.0f%% of the day-hour average %.1f kWh over the last %dh.",
							avgNight, nightRatio*100, avgDay, windowHours),
						"night_ratio", RuleNightBaseline, siteInsights)
				}
			}
		}

		// Rule 2: peak spike, short windows only — over longer windows a
		// single max reading stops being meaningful
		if windowHours <= 48 && agg.AvgValue > 0 {
			spikeRatio := agg.MaxValue / agg.AvgValue
			if spikeRatio >= th.SpikeWarningRatio {
				emit(siteID, SeverityWarning, "Consumption spike detected",
					fmt.Sprintf("Peak reading %.1f kWh is %.1fx the window average %.1f kWh.",
						agg.MaxValue, spikeRatio, agg.AvgValue),
					"spike_ratio", RulePeakSpike, siteInsights)
			}
		}

		// Rule 3: weekend-baseline creep
		if stats != nil && stats.weekdayCount > 0 && stats.weekendCount > 0 {
			avgWeekday := stats.weekdaySum / float64(stats.weekdayCount)
			avgWeekend := stats.weekendSum / float64(stats.weekendCount)
			if avgWeekday > 0 && avgWeekend > 0 {
				weekendRatio := avgWeekend / avgWeekday
				if weekendRatio >= th.WeekendCriticalRatio && material {
					emit(siteID, SeverityCritical, "Weekend baseline matches weekday load",
						fmt.Sprintf("Weekend average %.1f kWh is %.0f%% of the weekday average %.1f kWh.",
							avgWeekend, weekendRatio*100, avgWeekday),
						"weekend_ratio", RuleWeekendBaseline, siteInsights)
				} else if weekendRatio >= th.WeekendWarningRatio {
					emit(siteID, SeverityWarning, "Weekend baseline creeping up",
						fmt.Sprintf("Weekend average %.1f kWh is %.0f%% of the weekday average %.1f kWh.",
							avgWeekend, weekendRatio*100, avgWeekday),
						"weekend_ratio", RuleWeekendBaseline, siteInsights)
				}
			}
		}

		// Rule 4: portfolio dominance, informational
		if portfolioAvgPerSite > 0 && agg.TotalValue >= th.PortfolioShareInfoRatio*portfolioAvgPerSite {
			emit(siteID, SeverityInfo, "Site dominates portfolio consumption",
				fmt.Sprintf("Window total %.1f kWh is %.1fx the portfolio average of %.1f kWh per site.",
					agg.TotalValue, agg.TotalValue/portfolioAvgPerSite, portfolioAvgPerSite),
				"portfolio_share", RulePortfolioShare, siteInsights)
		}

		// Rule 5: forecast night-baseline over the next 24 hours
		if siteInsights != nil && siteInsights.Profile != nil {
			if ratio, ok := forecastNightRatio(siteInsights.Profile, asOf); ok {
				if ratio >= th.NightCriticalRatio {
					emit(siteID, SeverityCritical, "Projected night baseline waste",
						fmt.Sprintf("Projected night/day consumption ratio is %.2f over the next 24h.", ratio),
						"forecast_night_ratio", RuleForecastNightBaseline, siteInsights)
				} else if ratio >= th.NightWarningRatio {
					emit(siteID, SeverityWarning, "Projected night baseline elevated",
						fmt.Sprintf("Projected night/day consumption ratio is %.2f over the next 24h.", ratio),
						"forecast_night_ratio", RuleForecastNightBaseline, siteInsights)
				}
			}
		}
	}

	if opts.PersistEvents && e.events != nil {
		e.persistAlerts(alerts, opts.OrganizationID, opts.UserID)
	}
	if e.publisher != nil {
		for _, alert := range alerts {
			e.publisher.PublishAlert(alert)
		}
	}

	return alerts, nil
}

// alertsEnabled resolves the plan gate, defaulting to allow
func (e *AlertRuleEngine) alertsEnabled(orgID string) bool {
	if e.caps == nil {
		return true
	}
	enabled, err := e.caps.AlertsEnabled(orgID)
	if err != nil {
		log.Printf("⚠️  Capability resolution failed for %s, allowing alerts: %v", orgID, err)
		return true
	}
	return enabled
}

// collectWindowStats buckets the window's raw points by night/day hours and
// weekday/weekend in a single pass, per site.
func (e *AlertRuleEngine) collectWindowStats(start, end time.Time, allowedSiteIDs []string) (map[string]*siteWindowStats, error) {
	points, err := e.store.QueryPoints("", "", start, end, allowedSiteIDs)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*siteWindowStats)
	for _, point := range points {
		if point.Timestamp.IsZero() || !validValue(point.ValueKWH) {
			continue
		}

		s := stats[point.SiteID]
		if s == nil {
			s = &siteWindowStats{}
			stats[point.SiteID] = s
		}

		hour := point.Timestamp.Hour()
		if nightHours[hour] {
			s.nightSum += point.ValueKWH
			s.nightCount++
		} else if dayHours[hour] {
			s.daySum += point.ValueKWH
			s.dayCount++
		}

		if isWeekendDay(point.Timestamp.Weekday()) {
			s.weekendSum += point.ValueKWH
			s.weekendCount++
		} else {
			s.weekdaySum += point.ValueKWH
			s.weekdayCount++
		}
	}
	return stats, nil
}

// forecastNightRatio projects the profile buckets over the next 24 hours and
// returns mean(night-hour values) / mean(day-hour values).
func forecastNightRatio(profile *BaselineProfile, asOf time.Time) (float64, bool) {
	var nightVals, dayVals []float64
	for h := 1; h <= 24; h++ {
		ts := asOf.Add(time.Duration(h) * time.Hour)
		value := profile.ExpectedFor(ts.Hour(), isWeekendDay(ts.Weekday()))
		if nightHours[ts.Hour()] {
			nightVals = append(nightVals, value)
		} else if dayHours[ts.Hour()] {
			dayVals = append(dayVals, value)
		}
	}

	dayMean := mean(dayVals)
	if len(nightVals) == 0 || dayMean <= 0 {
		return 0, false
	}
	return mean(nightVals) / dayMean, true
}

// attachStatsContext flattens the site insights onto the alert
func attachStatsContext(alert *Alert, insights *SiteInsights) {
	if insights == nil {
		return
	}
	alert.StatsSource = statsSourceBaseline
	alert.DeviationPct = floatPtr(insights.DeviationPct)
	alert.CriticalHours = intPtr(insights.CriticalHours)
	alert.ElevatedHours = intPtr(insights.ElevatedHours)
	alert.BelowBaselineHours = intPtr(insights.BelowBaselineHours)
	alert.LookbackDays = intPtr(insights.LookbackDays)
	if insights.Profile != nil {
		alert.GlobalMeanKWH = floatPtr(insights.Profile.GlobalMean)
		alert.GlobalP50KWH = floatPtr(insights.Profile.GlobalP50)
		alert.GlobalP90KWH = floatPtr(insights.Profile.GlobalP90)
	}
}

// persistAlerts appends one AlertEvent plus a mirrored SiteEvent per alert.
// Failures are logged and swallowed; the computed alert list stands either
// way. userID identifies the operator who initiated the scan; empty for
// scheduled runs. It lands on the alert record only — the mirror stays
// system-authored so read-side dedup applies to it.
func (e *AlertRuleEngine) persistAlerts(alerts []Alert, orgID, userID string) {
	var triggeredBy *string
	if userID != "" {
		triggeredBy = &userID
	}

	persisted := 0
	for _, alert := range alerts {
		event := &models.AlertEvent{
			OrganizationID:    orgID,
			SiteID:            alert.SiteID,
			RuleKey:           alert.RuleKey,
			Severity:          alert.Severity,
			Title:             alert.Title,
			Message:           alert.Message,
			Metric:            alert.Metric,
			WindowHours:       alert.WindowHours,
			Status:            "open",
			TriggeredAt:       alert.TriggeredAt,
			TriggeredByUserID: triggeredBy,
		}
		if err := e.events.SaveAlertEvent(event); err != nil {
			log.Printf("⚠️  Failed to persist alert event for %s: %v", alert.SiteID, err)
			continue
		}

		mirror := &models.SiteEvent{
			OrganizationID: orgID,
			SiteID:         alert.SiteID,
			EventType:      "alert_triggered",
			Title:          alert.Title,
			Body:           alert.Message,
		}
		if err := e.events.SaveSiteEvent(mirror); err != nil {
			log.Printf("⚠️  Failed to mirror site event for %s: %v", alert.SiteID, err)
			continue
		}
		persisted++
	}
	if len(alerts) > 0 {
		log.Printf("✅ Persisted %d/%d alerts", persisted, len(alerts))
	}
}

// resolveSiteNames looks up display names, best-effort
func (e *AlertRuleEngine) resolveSiteNames(aggregates []readings.SiteAggregate) map[string]string {
	if e.names == nil {
		return nil
	}
	siteIDs := make([]string, 0, len(aggregates))
	for _, agg := range aggregates {
		siteIDs = append(siteIDs, agg.SiteID)
	}
	names, err := e.names.SiteNames(siteIDs)
	if err != nil {
		log.Printf("⚠️  Failed to resolve site names: %v", err)
		return nil
	}
	return names
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}
