package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"slidecast/internal/models"
	"slidecast/internal/services"

	"github.com/gorilla/mux"
)

// SlideRenderer produces rendered slide HTML for a locale and slide name.
// The markdown pipeline is an external collaborator; the core only caches
// and invalidates its output.
type SlideRenderer func(locale, name string) (string, error)

// APIHandler serves the read/admin HTTP surface over the shared stores
type APIHandler struct {
	stats     *services.StatsManager
	feedback  *services.FeedbackManager
	forms     *services.FormsStore
	downloads *services.DownloadManager
	session   *services.SessionState
	cache     *services.CacheManager
	journal   *services.Journal
	renderer  SlideRenderer
}

// NewAPIHandler creates a new API handler. journal may be nil.
func NewAPIHandler(stats *services.StatsManager, feedback *services.FeedbackManager,
	forms *services.FormsStore, downloads *services.DownloadManager,
	session *services.SessionState, cache *services.CacheManager,
	journal *services.Journal, renderer SlideRenderer) *APIHandler {
	return &APIHandler{
		stats:     stats,
		feedback:  feedback,
		forms:     forms,
		downloads: downloads,
		session:   session,
		cache:     cache,
		journal:   journal,
		renderer:  renderer,
	}
}

// GetStats returns aggregated view statistics
// GET /api/stats
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats.Aggregated())
}

// GetViewers returns recently seen sessions from the telemetry journal
// GET /api/stats/viewers
func (h *APIHandler) GetViewers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if value := r.URL.Query().Get("limit"); value != "" {
		limit, _ = strconv.Atoi(value)
	}

	sessions := []models.SessionActivity{}
	if h.journal != nil {
		found, err := h.journal.RecentSessions(limit)
		if err != nil {
			log.Printf("Failed to query recent sessions: %v", err)
			http.Error(w, "failed to query journal", http.StatusInternalServerError)
			return
		}
		if found != nil {
			sessions = found
		}
	}
	writeJSON(w, sessions)
}

// GetQuestions returns all recorded questions
// GET /api/questions
func (h *APIHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	questions := h.stats.Questions()
	converted := make([]models.QuestionJSON, 0, len(questions))
	for _, question := range questions {
		converted = append(converted, models.QuestionJSON{
			SessionID: question.SessionID,
			Question:  question.Question,
			Timestamp: question.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, converted)
}

// GetFeedback returns all feedback for one slide
// GET /api/feedback/{slide}
func (h *APIHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	slide, ok := slideVar(w, r)
	if !ok {
		return
	}

	entries := h.feedback.ForSlide(slide)
	converted := make([]models.FeedbackEntryJSON, 0, len(entries))
	for _, entry := range entries {
		converted = append(converted, models.FeedbackEntryJSON{
			SessionID: entry.SessionID,
			Rating:    entry.Rating,
			Feedback:  entry.Feedback,
			Timestamp: entry.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, converted)
}

// RegisterDownloadsRequest registers a slide's downloadable files
type RegisterDownloadsRequest struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// RegisterDownloads attaches a file list to a slide; the content pipeline
// calls this while building the presentation
// POST /api/downloads/{slide}
func (h *APIHandler) RegisterDownloads(w http.ResponseWriter, r *http.Request) {
	slide, ok := slideVar(w, r)
	if !ok {
		return
	}

	var req RegisterDownloadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.downloads.Register(slide, req.Name, req.Files); err != nil {
		if services.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Failed to register downloads: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"success": true})
}

// GetDownloads returns one slide's download entry
// GET /api/downloads/{slide}
func (h *APIHandler) GetDownloads(w http.ResponseWriter, r *http.Request) {
	slide, ok := slideVar(w, r)
	if !ok {
		return
	}

	entry, exists := h.downloads.Get(slide)
	if !exists {
		http.Error(w, "no downloads for slide", http.StatusNotFound)
		return
	}
	writeJSON(w, entry)
}

// ListDownloads returns every registered download entry keyed by slide
// GET /api/downloads
func (h *APIHandler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.downloads.All())
}

// SubmitFormRequest is one session's form answers for a slide
type SubmitFormRequest struct {
	SessionID string                 `json:"session_id"`
	Answers   map[string]interface{} `json:"answers"`
}

// SubmitForm stores a form response
// POST /api/forms/{slide}
func (h *APIHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	slide, ok := slideVar(w, r)
	if !ok {
		return
	}

	var req SubmitFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.forms.Submit(slide, req.SessionID, req.Answers, time.Now()); err != nil {
		if services.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Failed to store form response: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"success": true})
}

// GetForm returns every response for a slide's form, keyed by session
// GET /api/forms/{slide}
func (h *APIHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	slide, ok := slideVar(w, r)
	if !ok {
		return
	}

	responses := h.forms.ForSlide(slide)
	converted := make(map[string]models.FormResponseJSON, len(responses))
	for sessionID, response := range responses {
		converted[sessionID] = models.FormResponseJSON{
			Answers:   response.Answers,
			Timestamp: response.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, converted)
}

// GetSlide serves rendered slide HTML through the LRU cache
// GET /slides/{locale}/{name}
func (h *APIHandler) GetSlide(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	locale := vars["locale"]
	name := vars["name"]

	if h.renderer == nil {
		http.Error(w, "no renderer configured", http.StatusNotFound)
		return
	}

	key := locale + "/" + name
	value, err := h.cache.Fetch(key, func() (interface{}, error) {
		return h.renderer(locale, name)
	})
	if err != nil {
		log.Printf("Failed to render slide %s: %v", key, err)
		http.Error(w, "slide not found", http.StatusNotFound)
		return
	}

	html, _ := value.(string)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// InvalidateCacheRequest names a cache key to drop; empty drops everything
type InvalidateCacheRequest struct {
	Key string `json:"key"`
}

// InvalidateCache drops cached slide HTML after the content pipeline
// recompiles
// POST /api/cache/invalidate
func (h *APIHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req InvalidateCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Key == "" {
		h.cache.Clear()
	} else {
		h.cache.Invalidate(req.Key)
	}
	writeJSON(w, map[string]bool{"success": true})
}

// GetCacheStats returns cache size and hit/miss counters
// GET /api/cache/stats
func (h *APIHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.cache.Stats())
}

// ClaimPresenter issues the presenter cookie. This is the out-of-band
// issuance surface; protect it at the proxy in production.
// GET /presenter
func (h *APIHandler) ClaimPresenter(w http.ResponseWriter, r *http.Request) {
	cookie, err := h.session.EnsureCookie()
	if err != nil {
		log.Printf("Failed to issue presenter cookie: %v", err)
		http.Error(w, "failed to issue cookie", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     presenterCookieName,
		Value:    cookie,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, map[string]bool{"success": true})
}

func slideVar(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	slide, err := strconv.Atoi(vars["slide"])
	if err != nil {
		http.Error(w, "slide must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return slide, true
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
