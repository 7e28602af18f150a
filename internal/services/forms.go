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

// FormsStore keeps per-slide form answers, one response per (slide, session)
// with last write winning. Persisted synchronously like feedback.
type FormsStore struct {
	mu        sync.Mutex
	filePath  string
	responses map[int]map[string]models.FormResponse
}

// NewFormsStore creates a forms store backed by filePath and loads any
// existing file
func NewFormsStore(filePath string) *FormsStore {
	f := &FormsStore{
		filePath:  filePath,
		responses: make(map[int]map[string]models.FormResponse),
	}
	f.load()
	return f
}

// Submit stores a session's answers for a slide's form, replacing any
// earlier response from the same session
func (f *FormsStore) Submit(slide int, sessionID string, answers map[string]interface{}, timestamp time.Time) error {
	if slide < 0 {
		return newValidationError("slide", "must be a non-negative integer, got %d", slide)
	}
	if sessionID == "" {
		return newValidationError("session_id", "must be a non-empty string")
	}
	if len(answers) == 0 {
		return newValidationError("answers", "must not be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	slideResponses, exists := f.responses[slide]
	if !exists {
		slideResponses = make(map[string]models.FormResponse)
		f.responses[slide] = slideResponses
	}
	slideResponses[sessionID] = models.FormResponse{
		Answers:   copyAnswers(answers),
		Timestamp: timestamp,
	}

	if err := f.saveLocked(); err != nil {
		return fmt.Errorf("failed to persist form response: %w", err)
	}
	return nil
}

// ForSlide returns copies of every response for a slide, keyed by session
func (f *FormsStore) ForSlide(slide int) map[string]models.FormResponse {
	f.mu.Lock()
	defer f.mu.Unlock()

	responses := make(map[string]models.FormResponse, len(f.responses[slide]))
	for sessionID, response := range f.responses[slide] {
		responses[sessionID] = models.FormResponse{
			Answers:   copyAnswers(response.Answers),
			Timestamp: response.Timestamp,
		}
	}
	return responses
}

// saveLocked must be called with the lock held
func (f *FormsStore) saveLocked() error {
	file := models.FormsFile{
		Forms:      make(map[string]map[string]models.FormResponseJSON, len(f.responses)),
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}

	for slide, slideResponses := range f.responses {
		converted := make(map[string]models.FormResponseJSON, len(slideResponses))
		for sessionID, response := range slideResponses {
			converted[sessionID] = models.FormResponseJSON{
				Answers:   response.Answers,
				Timestamp: response.Timestamp.UTC().Format(time.RFC3339),
			}
		}
		file.Forms[strconv.Itoa(slide)] = converted
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal forms: %w", err)
	}

	return writeFileAtomic(f.filePath, data)
}

// load reads the forms file; corrupt files reset to empty with a warning
func (f *FormsStore) load() {
	if _, err := os.Stat(f.filePath); os.IsNotExist(err) {
		return
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		log.Printf("Warning: failed to read forms file, starting empty: %v", err)
		return
	}

	var file models.FormsFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Printf("Warning: failed to parse forms file, starting empty: %v", err)
		return
	}

	responses := make(map[int]map[string]models.FormResponse, len(file.Forms))
	for key, converted := range file.Forms {
		slide, err := strconv.Atoi(key)
		if err != nil {
			log.Printf("Warning: bad slide key %q in forms file, starting empty", key)
			return
		}
		slideResponses := make(map[string]models.FormResponse, len(converted))
		for sessionID, response := range converted {
			timestamp, err := time.Parse(time.RFC3339, response.Timestamp)
			if err != nil {
				log.Printf("Warning: bad timestamp in forms file, starting empty: %v", err)
				return
			}
			slideResponses[sessionID] = models.FormResponse{
				Answers:   response.Answers,
				Timestamp: timestamp,
			}
		}
		responses[slide] = slideResponses
	}

	f.responses = responses
	log.Printf("Loaded form responses from %s", f.filePath)
}

func copyAnswers(answers map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(answers))
	for key, value := range answers {
		copied[key] = value
	}
	return copied
}
