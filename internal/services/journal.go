package services

import (
	"database/sql"
	"fmt"
	"time"

	"slidecast/internal/models"
)

// Event kinds recorded in the telemetry journal
const (
	EventView     = "view"
	EventPace     = "pace"
	EventQuestion = "question"
	EventFeedback = "feedback"
)

// Journal is a durable append-only log of telemetry events in SQLite. The
// JSON snapshots remain the canonical stores; the journal survives snapshot
// resets and answers recent-activity queries.
type Journal struct {
	database *sql.DB
}

// NewJournal creates a journal over an initialized database
func NewJournal(database *sql.DB) *Journal {
	return &Journal{database: database}
}

// Record appends one event. Best-effort from handlers: callers log failures
// and continue.
func (j *Journal) Record(kind, sessionID string, slide int, value string) error {
	query := `INSERT INTO events (kind, session_id, slide, value, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := j.database.Exec(query, kind, sessionID, slide, value, time.Now()); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// RecentSessions returns the sessions seen most recently, with their event
// counts, newest first
func (j *Journal) RecentSessions(limit int) ([]models.SessionActivity, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT session_id, COUNT(*), MAX(created_at)
		FROM events WHERE session_id != ''
		GROUP BY session_id ORDER BY MAX(created_at) DESC LIMIT ?`

	rows, err := j.database.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var sessions []models.SessionActivity
	for rows.Next() {
		var activity models.SessionActivity
		var lastSeen sql.NullTime

		if err := rows.Scan(&activity.SessionID, &activity.Events, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if lastSeen.Valid {
			activity.LastSeen = lastSeen.Time
		}
		sessions = append(sessions, activity)
	}

	return sessions, rows.Err()
}

// CountByKind returns how many events of one kind have been journaled
func (j *Journal) CountByKind(kind string) (int, error) {
	var count int
	err := j.database.QueryRow(`SELECT COUNT(*) FROM events WHERE kind = ?`, kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
