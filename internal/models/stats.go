package models

import "time"

// ViewRecord is one recorded slide view for a session
type ViewRecord struct {
	SessionID string
	Timestamp time.Time
	Elapsed   float64 // seconds spent on the previous slide, 0 for first/repeat views
}

// Question is an audience-submitted free-text question, append-only
type Question struct {
	SessionID string
	Question  string
	Timestamp time.Time
}

// PaceTally counts pacing feedback per enumerated value
type PaceTally struct {
	Good    int `json:"good"`
	TooFast int `json:"too_fast"`
	TooSlow int `json:"too_slow"`
}

// SessionMeta is the last-seen metadata for a session
type SessionMeta struct {
	LastSlide     int
	LastTimestamp time.Time
	UserAgent     string
}

// SlideCount pairs a slide number with its view count
type SlideCount struct {
	Slide int `json:"slide"`
	Count int `json:"count"`
}

// AggregatedStats is the read model served to the presenter UI
type AggregatedStats struct {
	TotalViews    int          `json:"total_views"`
	SlideViews    map[int]int  `json:"slide_views"`
	Pace          PaceTally    `json:"pace"`
	QuestionCount int          `json:"question_count"`
	MostViewed    []SlideCount `json:"most_viewed"`
	LeastViewed   []SlideCount `json:"least_viewed"`
}

// ViewRecordJSON is the on-disk form of a ViewRecord (ISO-8601 timestamp)
type ViewRecordJSON struct {
	SessionID string  `json:"session_id"`
	Timestamp string  `json:"timestamp"`
	Elapsed   float64 `json:"elapsed"`
}

// QuestionJSON is the on-disk form of a Question
type QuestionJSON struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Timestamp string `json:"timestamp"`
}

// SessionMetaJSON is the on-disk form of SessionMeta
type SessionMetaJSON struct {
	LastSlide     int    `json:"last_slide"`
	LastTimestamp string `json:"last_timestamp"`
	UserAgent     string `json:"user_agent,omitempty"`
}

// StatsFile is the root structure of the stats JSON file
type StatsFile struct {
	Views       map[string][]ViewRecordJSON `json:"views"`
	Questions   []QuestionJSON              `json:"questions"`
	Pace        PaceTally                   `json:"pace"`
	SessionData map[string]SessionMetaJSON  `json:"session_data"`
	ExportedAt  string                      `json:"exported_at"`
}
