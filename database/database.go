// Package database persists analyses, predictions and partner API keys in
// MySQL. Tables are created on startup if missing.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"

	"crop-analyze-pipeline/config"

	_ "github.com/go-sql-driver/mysql"
)

// maxConnectAttempts bounds the startup ping retry loop.
const maxConnectAttempts = 8

// Database represents the database connection.
type Database struct {
	db *sql.DB
}

// NewDatabase opens a connection pool and verifies it with an exponential
// backoff ping retry.
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	waitInterval := 1 * time.Second
	for attempt := 1; ; attempt++ {
		err = db.Ping()
		if err == nil {
			break
		}
		if attempt >= maxConnectAttempts {
			db.Close()
			return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempt, err)
		}
		log.WithError(err).Warnf("database connection failed, retrying in %v", waitInterval)
		time.Sleep(waitInterval)
		waitInterval *= 2
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// NewWithDB wraps an existing connection, used by tests.
func NewWithDB(db *sql.DB) *Database {
	return &Database{db: db}
}

// DB exposes the raw connection for collaborators that manage their own
// tables, such as the soil map cache.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping reports connectivity for health checks.
func (d *Database) Ping() error {
	return d.db.Ping()
}
