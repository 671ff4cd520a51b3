package app

import (
	"log"
	"time"

	"wattscope/analytics"
	"wattscope/metrics"
)

// AlertScanner periodically runs the portfolio alert scan. The rule engine
// itself stays synchronous and request-scoped; this loop is just the
// surrounding scheduler.
type AlertScanner struct {
	engine      *analytics.AlertRuleEngine
	interval    time.Duration
	windowHours int
	done        chan bool
}

// NewAlertScanner creates a new periodic scanner
func NewAlertScanner(engine *analytics.AlertRuleEngine, intervalMinutes, windowHours int) *AlertScanner {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	return &AlertScanner{
		engine:      engine,
		interval:    time.Duration(intervalMinutes) * time.Minute,
		windowHours: windowHours,
		done:        make(chan bool),
	}
}

// Start begins the scan loop
func (s *AlertScanner) Start() {
	log.Println("🚨 Alert scanner started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial run
	s.scan()

	for {
		select {
		case <-ticker.C:
			s.scan()
		case <-s.done:
			log.Println("🚨 Alert scanner stopped")
			return
		}
	}
}

// Stop stops the scan loop
func (s *AlertScanner) Stop() {
	s.done <- true
}

// scan runs one portfolio pass with persistence enabled
func (s *AlertScanner) scan() {
	log.Printf("🚨 Scanning portfolio (window %dh)...", s.windowHours)
	start := time.Now()

	alerts, err := s.engine.GenerateAlertsForWindow(analytics.AlertScanOptions{
		WindowHours:   s.windowHours,
		PersistEvents: true,
	})
	metrics.AlertScanDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Printf("⚠️  Alert scan failed: %v", err)
		return
	}

	log.Printf("✅ Alert scan complete: %d alerts in %v", len(alerts), time.Since(start).Round(time.Millisecond))
}
