package database

import (
	"database/sql"
	"fmt"
	"time"

	// Postgres driver.
	_ "github.com/lib/pq"
)

// DB wraps the sql connection pool.
type DB struct {
	*sql.DB
}

// New opens a postgres connection pool and verifies connectivity.
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}
