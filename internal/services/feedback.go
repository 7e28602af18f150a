package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"slidecast/internal/models"
)

// FeedbackManager stores per-slide feedback ratings, flushed to disk
// synchronously on every submission. Feedback is private: nothing here is
// ever broadcast.
type FeedbackManager struct {
	mu       sync.Mutex
	filePath string
	entries  map[int][]models.FeedbackEntry
}

// NewFeedbackManager creates a feedback store backed by filePath and loads
// any existing file, migrating the legacy format if found
func NewFeedbackManager(filePath string) *FeedbackManager {
	f := &FeedbackManager{
		filePath: filePath,
		entries:  make(map[int][]models.FeedbackEntry),
	}
	f.load()
	return f
}

// Submit validates and stores one feedback entry, persisting immediately.
// Empty feedback text is stored as nil.
func (f *FeedbackManager) Submit(slide int, sessionID string, rating int, text string, timestamp time.Time) error {
	if slide < 0 {
		return newValidationError("slide", "must be a non-negative integer, got %d", slide)
	}
	if rating < 1 || rating > 5 {
		return newValidationError("rating", "must be between 1 and 5, got %d", rating)
	}

	entry := models.FeedbackEntry{
		SessionID: sessionID,
		Rating:    rating,
		Timestamp: timestamp,
	}
	if text != "" {
		entry.Feedback = &text
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[slide] = append(f.entries[slide], entry)
	if err := f.saveLocked(); err != nil {
		return fmt.Errorf("failed to persist feedback: %w", err)
	}
	return nil
}

// ForSlide returns copies of all feedback for a slide
func (f *FeedbackManager) ForSlide(slide int) []models.FeedbackEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := make([]models.FeedbackEntry, len(f.entries[slide]))
	copy(entries, f.entries[slide])
	return entries
}

// All returns copies of every slide's feedback
func (f *FeedbackManager) All() map[int][]models.FeedbackEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make(map[int][]models.FeedbackEntry, len(f.entries))
	for slide, entries := range f.entries {
		copied := make([]models.FeedbackEntry, len(entries))
		copy(copied, entries)
		all[slide] = copied
	}
	return all
}

// saveLocked must be called with the lock held
func (f *FeedbackManager) saveLocked() error {
	file := models.FeedbackFile{
		Feedback:   make(map[string][]models.FeedbackEntryJSON, len(f.entries)),
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}

	for slide, entries := range f.entries {
		converted := make([]models.FeedbackEntryJSON, 0, len(entries))
		for _, entry := range entries {
			converted = append(converted, models.FeedbackEntryJSON{
				SessionID: entry.SessionID,
				Rating:    entry.Rating,
				Feedback:  entry.Feedback,
				Timestamp: entry.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		file.Feedback[strconv.Itoa(slide)] = converted
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	return writeFileAtomic(f.filePath, data)
}

// load reads the feedback file, auto-detecting the legacy layout (no
// top-level "feedback" key). Corrupt files reset to empty with a warning.
func (f *FeedbackManager) load() {
	info, err := os.Stat(f.filePath)
	if os.IsNotExist(err) {
		return
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		log.Printf("Warning: failed to read feedback file, starting empty: %v", err)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("Warning: failed to parse feedback file, starting empty: %v", err)
		return
	}

	if _, hasKey := raw["feedback"]; !hasKey && len(raw) > 0 {
		f.loadLegacy(raw, info.ModTime())
		return
	}

	var file models.FeedbackFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Printf("Warning: failed to parse feedback file, starting empty: %v", err)
		return
	}

	entries := make(map[int][]models.FeedbackEntry, len(file.Feedback))
	for key, converted := range file.Feedback {
		slide, err := strconv.Atoi(key)
		if err != nil {
			log.Printf("Warning: bad slide key %q in feedback file, starting empty", key)
			return
		}
		slideEntries := make([]models.FeedbackEntry, 0, len(converted))
		for _, entry := range converted {
			timestamp, err := time.Parse(time.RFC3339, entry.Timestamp)
			if err != nil {
				log.Printf("Warning: bad timestamp in feedback file, starting empty: %v", err)
				return
			}
			slideEntries = append(slideEntries, models.FeedbackEntry{
				SessionID: entry.SessionID,
				Rating:    entry.Rating,
				Feedback:  entry.Feedback,
				Timestamp: timestamp,
			})
		}
		entries[slide] = slideEntries
	}

	f.entries = entries
	log.Printf("Loaded feedback from %s", f.filePath)
}

// loadLegacy migrates the pre-session format: bare slide-id keys at the top
// level, entries without session or timestamp. Migrated entries get session
// "unknown" and the file's mtime, and the new format is written back.
func (f *FeedbackManager) loadLegacy(raw map[string]json.RawMessage, modTime time.Time) {
	log.Printf("Warning: legacy feedback format detected in %s, migrating", f.filePath)

	entries := make(map[int][]models.FeedbackEntry, len(raw))
	for key, value := range raw {
		slide, err := strconv.Atoi(key)
		if err != nil {
			log.Printf("Warning: bad slide key %q in legacy feedback file, starting empty", key)
			return
		}
		var legacy []models.LegacyFeedbackEntry
		if err := json.Unmarshal(value, &legacy); err != nil {
			log.Printf("Warning: failed to parse legacy feedback file, starting empty: %v", err)
			return
		}
		slideEntries := make([]models.FeedbackEntry, 0, len(legacy))
		for _, entry := range legacy {
			slideEntries = append(slideEntries, models.FeedbackEntry{
				SessionID: "unknown",
				Rating:    entry.Rating,
				Feedback:  entry.Feedback,
				Timestamp: modTime,
			})
		}
		entries[slide] = slideEntries
	}

	f.entries = entries
	if err := f.saveLocked(); err != nil {
		log.Printf("Warning: failed to write migrated feedback file: %v", err)
	}
}
