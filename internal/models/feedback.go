package models

import "time"

// FeedbackEntry is one per-slide feedback submission
type FeedbackEntry struct {
	SessionID string
	Rating    int // 1..5, validated on submit
	Feedback  *string
	Timestamp time.Time
}

// FeedbackEntryJSON is the on-disk form of a FeedbackEntry
type FeedbackEntryJSON struct {
	SessionID string  `json:"session_id"`
	Rating    int     `json:"rating"`
	Feedback  *string `json:"feedback"`
	Timestamp string  `json:"timestamp"`
}

// FeedbackFile is the root structure of the feedback JSON file
type FeedbackFile struct {
	Feedback   map[string][]FeedbackEntryJSON `json:"feedback"`
	ExportedAt string                         `json:"exported_at"`
}

// LegacyFeedbackEntry is the pre-migration on-disk entry: no session or
// timestamp, keyed directly by slide id at the top level
type LegacyFeedbackEntry struct {
	Rating   int     `json:"rating"`
	Feedback *string `json:"feedback"`
}

// DownloadEntry describes the downloadable files attached to a slide
type DownloadEntry struct {
	Enabled bool     `json:"enabled"`
	Name    string   `json:"name"`
	Files   []string `json:"files"`
}

// FormResponse is one session's submitted answers for a slide's form
type FormResponse struct {
	Answers   map[string]interface{}
	Timestamp time.Time
}

// FormResponseJSON is the on-disk form of a FormResponse
type FormResponseJSON struct {
	Answers   map[string]interface{} `json:"answers"`
	Timestamp string                 `json:"timestamp"`
}

// FormsFile is the root structure of the forms JSON file
type FormsFile struct {
	Forms      map[string]map[string]FormResponseJSON `json:"forms"`
	ExportedAt string                                 `json:"exported_at"`
}

// SessionActivity is a recent-activity row from the telemetry journal
type SessionActivity struct {
	SessionID string    `json:"session_id"`
	Events    int       `json:"events"`
	LastSeen  time.Time `json:"last_seen"`
}
