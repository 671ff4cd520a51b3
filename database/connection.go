package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// SQLPool wraps a raw database/sql connection. GORM carries the repository
// traffic; this pool exists for the COPY-based bulk ingestion path, which
// needs the lib/pq driver directly.
type SQLPool struct {
	conn *sql.DB
}

// SQLConfig holds raw connection configuration
type SQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// NewSQLPool creates a pooled database/sql connection
func NewSQLPool(cfg SQLConfig) (*SQLPool, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Bulk loads are bursty; keep the pool small but warm
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(2 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Bulk-load connection pool established")

	return &SQLPool{conn: conn}, nil
}

// Close closes the connection pool
func (p *SQLPool) Close() error {
	if p.conn != nil {
		log.Println("📡 Closing bulk-load connection pool...")
		return p.conn.Close()
	}
	return nil
}

// Ping checks if the connection is alive
func (p *SQLPool) Ping() error {
	return p.conn.Ping()
}

// Conn returns the underlying sql.DB connection
func (p *SQLPool) Conn() *sql.DB {
	return p.conn
}
