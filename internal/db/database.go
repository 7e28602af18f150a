package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// InitDatabase initializes the SQLite telemetry journal and creates tables
func InitDatabase(dbPath string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	var err error
	DB, err = sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Create tables
	if err := createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("Database initialized at: %s", dbPath)
	return nil
}

// createTables creates all necessary tables
func createTables() error {
	createEventsTable := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		slide INTEGER NOT NULL DEFAULT 0,
		value TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := DB.Exec(createEventsTable); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	// Create index on kind for counting per event type
	createKindIndex := `CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);`
	if _, err := DB.Exec(createKindIndex); err != nil {
		return fmt.Errorf("failed to create kind index: %w", err)
	}

	// Create index on session_id for recent-activity queries
	createSessionIndex := `CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);`
	if _, err := DB.Exec(createSessionIndex); err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}

	log.Println("Database tables created successfully")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
