package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL DSN support
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres:// URLs
)

const pingTimeout = 5 * time.Second

// New opens a pooled database connection (supports both MySQL and PostgreSQL)
// and verifies it with a short ping. The driver is auto-detected from the URL.
func New(databaseURL string) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL not set")
	}

	db, err := sqlx.Open(driverFor(databaseURL), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// driverFor picks the sql driver from the connection string prefix.
func driverFor(databaseURL string) string {
	if len(databaseURL) > 8 && databaseURL[:8] == "postgres" {
		return "postgres"
	}
	return "mysql"
}
