package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"slidecast/internal/models"
)

const topSlideLimit = 5

// StatsManager collects view events, pacing feedback, questions and
// last-seen session metadata, persisted as a JSON snapshot. Load tolerates
// a corrupt or unreadable file by resetting to empty state: telemetry is
// never worth crashing the presentation for.
type StatsManager struct {
	mu        sync.Mutex
	filePath  string
	views     map[int][]models.ViewRecord
	pace      models.PaceTally
	questions []models.Question
	sessions  map[string]*models.SessionMeta
	dirty     bool
}

// NewStatsManager creates a stats manager backed by filePath and loads any
// existing snapshot
func NewStatsManager(filePath string) *StatsManager {
	s := &StatsManager{
		filePath: filePath,
		views:    make(map[int][]models.ViewRecord),
		sessions: make(map[string]*models.SessionMeta),
	}
	s.load()
	return s
}

// RecordView registers a slide view. Elapsed is 0 for a session's first view
// and for repeat views of the same slide; otherwise it is the wall-clock
// delta since the session's previous view. A negative delta (client clock
// skew, client-supplied times) is clamped to 0 and the view still recorded.
func (s *StatsManager) RecordView(slide int, sessionID string, timestamp time.Time, userAgent string) error {
	if slide < 0 {
		return newValidationError("slide", "must be a non-negative integer, got %d", slide)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := 0.0
	if meta, seen := s.sessions[sessionID]; seen && meta.LastSlide != slide {
		elapsed = timestamp.Sub(meta.LastTimestamp).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
	}

	s.views[slide] = append(s.views[slide], models.ViewRecord{
		SessionID: sessionID,
		Timestamp: timestamp,
		Elapsed:   elapsed,
	})

	meta, seen := s.sessions[sessionID]
	if !seen {
		meta = &models.SessionMeta{}
		s.sessions[sessionID] = meta
	}
	meta.LastSlide = slide
	meta.LastTimestamp = timestamp
	if userAgent != "" {
		meta.UserAgent = userAgent
	}

	s.dirty = true
	return nil
}

// RecordPace tallies a pacing vote; values outside the enumeration are a
// validation error and leave the tally unchanged
func (s *StatsManager) RecordPace(sessionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch value {
	case models.PaceGood:
		s.pace.Good++
	case models.PaceTooFast:
		s.pace.TooFast++
	case models.PaceTooSlow:
		s.pace.TooSlow++
	default:
		return newValidationError("pace", "must be one of good, too_fast, too_slow, got %q", value)
	}

	s.dirty = true
	return nil
}

// RecordQuestion appends a free-text question
func (s *StatsManager) RecordQuestion(sessionID, question string, timestamp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.questions = append(s.questions, models.Question{
		SessionID: sessionID,
		Question:  question,
		Timestamp: timestamp,
	})
	s.dirty = true
}

// Questions returns a copy of all recorded questions
func (s *StatsManager) Questions() []models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := make([]models.Question, len(s.questions))
	copy(questions, s.questions)
	return questions
}

// SessionMeta returns a copy of a session's last-seen metadata
func (s *StatsManager) SessionMeta(sessionID string) (models.SessionMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, exists := s.sessions[sessionID]
	if !exists {
		return models.SessionMeta{}, false
	}
	return *meta, true
}

// Aggregated computes the summary served to the presenter UI. Most/least
// viewed lists hold at most five slides, ties broken by slide number
// ascending.
func (s *StatsManager) Aggregated() models.AggregatedStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.AggregatedStats{
		SlideViews:    make(map[int]int, len(s.views)),
		Pace:          s.pace,
		QuestionCount: len(s.questions),
	}

	counts := make([]models.SlideCount, 0, len(s.views))
	for slide, records := range s.views {
		stats.SlideViews[slide] = len(records)
		stats.TotalViews += len(records)
		counts = append(counts, models.SlideCount{Slide: slide, Count: len(records)})
	}

	most := make([]models.SlideCount, len(counts))
	copy(most, counts)
	sort.Slice(most, func(i, j int) bool {
		if most[i].Count != most[j].Count {
			return most[i].Count > most[j].Count
		}
		return most[i].Slide < most[j].Slide
	})
	least := counts
	sort.Slice(least, func(i, j int) bool {
		if least[i].Count != least[j].Count {
			return least[i].Count < least[j].Count
		}
		return least[i].Slide < least[j].Slide
	})

	if len(most) > topSlideLimit {
		most = most[:topSlideLimit]
	}
	if len(least) > topSlideLimit {
		least = least[:topSlideLimit]
	}
	stats.MostViewed = most
	stats.LeastViewed = least

	return stats
}

// Export writes the current snapshot to disk regardless of the dirty flag
func (s *StatsManager) Export() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportLocked()
}

// Flush writes the snapshot only if something changed since the last write.
// Called by the periodic flusher; failures are the caller's to log.
func (s *StatsManager) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.exportLocked(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// exportLocked must be called with the lock held
func (s *StatsManager) exportLocked() error {
	file := models.StatsFile{
		Views:       make(map[string][]models.ViewRecordJSON, len(s.views)),
		Questions:   make([]models.QuestionJSON, 0, len(s.questions)),
		Pace:        s.pace,
		SessionData: make(map[string]models.SessionMetaJSON, len(s.sessions)),
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	for slide, records := range s.views {
		converted := make([]models.ViewRecordJSON, 0, len(records))
		for _, record := range records {
			converted = append(converted, models.ViewRecordJSON{
				SessionID: record.SessionID,
				Timestamp: record.Timestamp.UTC().Format(time.RFC3339),
				Elapsed:   record.Elapsed,
			})
		}
		file.Views[strconv.Itoa(slide)] = converted
	}

	for _, question := range s.questions {
		file.Questions = append(file.Questions, models.QuestionJSON{
			SessionID: question.SessionID,
			Question:  question.Question,
			Timestamp: question.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	for sessionID, meta := range s.sessions {
		file.SessionData[sessionID] = models.SessionMetaJSON{
			LastSlide:     meta.LastSlide,
			LastTimestamp: meta.LastTimestamp.UTC().Format(time.RFC3339),
			UserAgent:     meta.UserAgent,
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	return writeFileAtomic(s.filePath, data)
}

// load reads an existing snapshot; any parse or format problem resets the
// manager to empty state with a warning instead of failing construction
func (s *StatsManager) load() {
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		log.Printf("Warning: failed to read stats file, starting empty: %v", err)
		return
	}

	var file models.StatsFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Printf("Warning: failed to parse stats file, starting empty: %v", err)
		return
	}

	views := make(map[int][]models.ViewRecord, len(file.Views))
	for key, records := range file.Views {
		slide, err := strconv.Atoi(key)
		if err != nil {
			log.Printf("Warning: bad slide key %q in stats file, starting empty", key)
			return
		}
		converted := make([]models.ViewRecord, 0, len(records))
		for _, record := range records {
			timestamp, err := time.Parse(time.RFC3339, record.Timestamp)
			if err != nil {
				log.Printf("Warning: bad timestamp in stats file, starting empty: %v", err)
				return
			}
			converted = append(converted, models.ViewRecord{
				SessionID: record.SessionID,
				Timestamp: timestamp,
				Elapsed:   record.Elapsed,
			})
		}
		views[slide] = converted
	}

	questions := make([]models.Question, 0, len(file.Questions))
	for _, question := range file.Questions {
		timestamp, err := time.Parse(time.RFC3339, question.Timestamp)
		if err != nil {
			log.Printf("Warning: bad timestamp in stats file, starting empty: %v", err)
			return
		}
		questions = append(questions, models.Question{
			SessionID: question.SessionID,
			Question:  question.Question,
			Timestamp: timestamp,
		})
	}

	sessions := make(map[string]*models.SessionMeta, len(file.SessionData))
	for sessionID, meta := range file.SessionData {
		timestamp, err := time.Parse(time.RFC3339, meta.LastTimestamp)
		if err != nil {
			log.Printf("Warning: bad timestamp in stats file, starting empty: %v", err)
			return
		}
		sessions[sessionID] = &models.SessionMeta{
			LastSlide:     meta.LastSlide,
			LastTimestamp: timestamp,
			UserAgent:     meta.UserAgent,
		}
	}

	s.views = views
	s.pace = file.Pace
	s.questions = questions
	s.sessions = sessions
	log.Printf("Loaded stats from %s", s.filePath)
}
