package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// HTTP server
	APIPort int

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Analytics configuration
	Analytics AnalyticsConfig

	// Alerting configuration
	Alerting AlertingConfig
}

// AnalyticsConfig holds baseline and insight parameters
type AnalyticsConfig struct {
	// Baseline
	DefaultLookbackDays int
	WarmupMinDays       int

	// Insight bands
	CriticalDeltaPct float64
	CriticalZScore   float64
	ElevatedDeltaPct float64
	ElevatedZScore   float64

	// Forecast
	UpliftFloor     float64
	UpliftCeiling   float64
	ForecastBandPct float64
}

// AlertingConfig holds portfolio-scan parameters and rule thresholds
type AlertingConfig struct {
	// Scan scheduling
	ScanIntervalMinutes int
	ScanWindowHours     int
	ScanEnabled         bool

	// Insufficient-data guards
	MinPoints   int
	MinTotalKWH float64

	// Rule thresholds (global defaults; per-site overrides are injected at call time)
	NightCriticalRatio      float64
	NightWarningRatio       float64
	SpikeWarningRatio       float64
	WeekendCriticalRatio    float64
	WeekendWarningRatio     float64
	PortfolioShareInfoRatio float64
	MaterialityShare        float64

	// Plan gating: default-allow so a missing flag never locks alerts out
	AlertsEnabledDefault bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		APIPort: getEnvIntOrDefault("API_PORT", 8090),

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "wattscope"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "wattscope"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "wattscope123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		Analytics: AnalyticsConfig{
			DefaultLookbackDays: getEnvIntOrDefault("BASELINE_LOOKBACK_DAYS", 30),
			WarmupMinDays:       getEnvIntOrDefault("BASELINE_WARMUP_MIN_DAYS", 7),
			CriticalDeltaPct:    getEnvFloatOrDefault("BAND_CRITICAL_DELTA_PCT", 30),
			CriticalZScore:      getEnvFloatOrDefault("BAND_CRITICAL_ZSCORE", 2.5),
			ElevatedDeltaPct:    getEnvFloatOrDefault("BAND_ELEVATED_DELTA_PCT", 10),
			ElevatedZScore:      getEnvFloatOrDefault("BAND_ELEVATED_ZSCORE", 1.5),
			UpliftFloor:         getEnvFloatOrDefault("FORECAST_UPLIFT_FLOOR", 0.1),
			UpliftCeiling:       getEnvFloatOrDefault("FORECAST_UPLIFT_CEILING", 3.0),
			ForecastBandPct:     getEnvFloatOrDefault("FORECAST_BAND_PCT", 10),
		},

		Alerting: AlertingConfig{
			ScanIntervalMinutes:     getEnvIntOrDefault("ALERT_SCAN_INTERVAL_MINUTES", 60),
			ScanWindowHours:         getEnvIntOrDefault("ALERT_SCAN_WINDOW_HOURS", 24),
			ScanEnabled:             getEnvBoolOrDefault("ALERT_SCAN_ENABLED", true),
			MinPoints:               getEnvIntOrDefault("ALERT_MIN_POINTS", 4),
			MinTotalKWH:             getEnvFloatOrDefault("ALERT_MIN_TOTAL_KWH", 0),
			NightCriticalRatio:      getEnvFloatOrDefault("ALERT_NIGHT_CRITICAL_RATIO", 0.7),
			NightWarningRatio:       getEnvFloatOrDefault("ALERT_NIGHT_WARNING_RATIO", 0.4),
			SpikeWarningRatio:       getEnvFloatOrDefault("ALERT_SPIKE_WARNING_RATIO", 2.5),
			WeekendCriticalRatio:    getEnvFloatOrDefault("ALERT_WEEKEND_CRITICAL_RATIO", 0.8),
			WeekendWarningRatio:     getEnvFloatOrDefault("ALERT_WEEKEND_WARNING_RATIO", 0.6),
			PortfolioShareInfoRatio: getEnvFloatOrDefault("ALERT_PORTFOLIO_SHARE_INFO_RATIO", 1.5),
			MaterialityShare:        getEnvFloatOrDefault("ALERT_MATERIALITY_SHARE", 0.2),
			AlertsEnabledDefault:    getEnvBoolOrDefault("ALERTS_ENABLED_DEFAULT", true),
		},
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️  Invalid integer for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️  Invalid number for %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("⚠️  Invalid boolean for %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
