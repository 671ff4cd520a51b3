package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"wattscope/analytics"
	"wattscope/api"
	"wattscope/cache"
	"wattscope/config"
	"wattscope/database"
	"wattscope/database/events"
	"wattscope/database/readings"
	"wattscope/realtime"
)

// App represents the main application
type App struct {
	config *config.Config

	db      *database.Database
	sqlPool *database.SQLPool
	redis   *cache.RedisClient

	readingsRepo *readings.Repository
	eventsRepo   *events.Repository

	profiler       *analytics.Profiler
	insightEngine  *analytics.InsightEngine
	forecastEngine *analytics.ForecastEngine
	alertEngine    *analytics.AlertRuleEngine
	scanner        *AlertScanner
	hub            *realtime.Hub
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// hubPublisher adapts the realtime hub to the engine's publisher hook
type hubPublisher struct {
	hub *realtime.Hub
}

func (p hubPublisher) PublishAlert(alert analytics.Alert) {
	p.hub.Broadcast("alert", alert)
}

// Start wires dependencies and runs the API server. Blocks until the server
// exits.
func (a *App) Start() error {
	// 1. Database connection
	fmt.Println("🗄️  Connecting to database...")

	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}

	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	if err := a.db.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// 2. Bulk-load pool (CSV ingestion); degraded mode without it
	sqlPool, err := database.NewSQLPool(database.SQLConfig{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	})
	if err != nil {
		log.Printf("⚠️  Bulk-load pool unavailable, CSV ingestion disabled: %v", err)
	} else {
		a.sqlPool = sqlPool
	}

	// 3. Redis connection; nil means caching disabled
	fmt.Println("🧠 Connecting to Redis...")
	a.redis = cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)

	// 4. Repositories
	a.readingsRepo = readings.NewRepository(a.db.DB())
	a.eventsRepo = events.NewRepository(a.db.DB())

	// 5. Analytics engines
	a.profiler = analytics.NewProfiler(a.readingsRepo, a.config.Analytics)
	a.insightEngine = analytics.NewInsightEngine(a.readingsRepo, a.profiler, a.config.Analytics)
	a.forecastEngine = analytics.NewForecastEngine(a.profiler, a.insightEngine, a.config.Analytics)
	a.alertEngine = analytics.NewAlertRuleEngine(
		a.readingsRepo,
		a.insightEngine,
		a.eventsRepo,
		a.eventsRepo,
		analytics.StaticCapabilities{Allow: a.config.Alerting.AlertsEnabledDefault},
		a.config.Alerting,
	)

	// 6. Realtime hub
	a.hub = realtime.NewHub()
	go a.hub.Run()
	a.alertEngine.SetPublisher(hubPublisher{hub: a.hub})

	// 7. Periodic alert scanner
	if a.config.Alerting.ScanEnabled {
		a.scanner = NewAlertScanner(a.alertEngine, a.config.Alerting.ScanIntervalMinutes, a.config.Alerting.ScanWindowHours)
		go a.scanner.Start()
	} else {
		log.Println("ℹ️  Periodic alert scanner DISABLED")
	}

	// 8. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("📡 Shutting down...")
		if a.scanner != nil {
			a.scanner.Stop()
		}
		if a.sqlPool != nil {
			a.sqlPool.Close()
		}
		a.redis.Close()
		a.db.Close()
		os.Exit(0)
	}()

	// 9. API server (blocking)
	var loader *database.BulkLoader
	if a.sqlPool != nil {
		loader = database.NewBulkLoader(a.sqlPool)
	}
	server := api.NewServer(api.Deps{
		Profiler:     a.profiler,
		Insights:     a.insightEngine,
		Forecast:     a.forecastEngine,
		Alerts:       a.alertEngine,
		ReadingsRepo: a.readingsRepo,
		EventsRepo:   a.eventsRepo,
		Loader:       loader,
		Cache:        cache.NewInsightCache(a.redis),
		Hub:          a.hub,
	})
	return server.Start(a.config.APIPort)
}
