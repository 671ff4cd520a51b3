package api

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wattscope/analytics"
	"wattscope/cache"
	"wattscope/database"
	"wattscope/database/events"
	"wattscope/database/readings"
	"wattscope/metrics"
	"wattscope/realtime"
)

// Deps bundles everything the API layer serves
type Deps struct {
	Profiler     *analytics.Profiler
	Insights     *analytics.InsightEngine
	Forecast     *analytics.ForecastEngine
	Alerts       *analytics.AlertRuleEngine
	ReadingsRepo *readings.Repository
	EventsRepo   *events.Repository
	Loader       *database.BulkLoader
	Cache        *cache.InsightCache
	Hub          *realtime.Hub
}

// Server handles HTTP API requests
type Server struct {
	deps Deps
}

// NewServer creates a new API server instance
func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Analytics routes
	mux.HandleFunc("GET /api/sites", s.handleListSites)
	mux.HandleFunc("GET /api/sites/{id}/baseline", s.handleGetBaseline)
	mux.HandleFunc("GET /api/sites/{id}/insights", s.handleGetInsights)
	mux.HandleFunc("GET /api/sites/{id}/forecast", s.handleGetForecast)

	// Alert routes
	mux.HandleFunc("POST /api/alerts/scan", s.handleAlertScan)
	mux.HandleFunc("GET /api/alerts", s.handleListAlerts)
	mux.HandleFunc("PATCH /api/alerts/{id}", s.handleUpdateAlert)
	mux.Handle("GET /api/alerts/stream", s.deps.Hub) // WebSocket endpoint

	// Site timeline routes
	mux.HandleFunc("GET /api/sites/{id}/events", s.handleListSiteEvents)
	mux.HandleFunc("POST /api/sites/{id}/events", s.handleCreateSiteNote)

	// Ingestion routes
	mux.HandleFunc("POST /api/ingest/csv", s.handleIngestCSV)
	mux.HandleFunc("POST /api/ingest/reading", s.handleIngestReading)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so the WebSocket upgrade keeps working behind the
// logging middleware
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		metrics.RequestDurationSeconds.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, recorder.status, duration.Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
