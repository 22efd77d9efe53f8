package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	driver string
}

// NewDB opens a database with the given driver ("postgres" or "sqlite")
// and makes sure the schema exists
func NewDB(driver, dsn string) (*DB, error) {
	switch driver {
	case "postgres":
		if dsn == "" {
			dsn = postgresDSNFromEnv()
		}
	case "sqlite":
		if dsn == "" {
			dsn = "dashboard.db"
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// A single connection keeps in-memory databases alive and serializes writers
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, driver: driver}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// postgresDSNFromEnv builds a connection string from the DB_* variables
func postgresDSNFromEnv() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "dashboard")
	password := getEnvOrDefault("DB_PASSWORD", "")
	dbname := getEnvOrDefault("DB_NAME", "dashboard")
	sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
// Timestamps are stored as unix seconds so both drivers read them back the same way.
func (db *DB) initSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS icon_cache (
			url TEXT PRIMARY KEY,
			ok BOOLEAN NOT NULL,
			checked_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create icon_cache table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS service_status (
			name TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			up BOOLEAN NOT NULL,
			status_code INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			checked_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create service_status table: %w", err)
	}

	_, err = db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_service_status_category ON service_status(category)`)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create index on service_status.category")
	}

	log.Debug().Str("driver", db.driver).Msg("Database schema initialized")
	return nil
}
