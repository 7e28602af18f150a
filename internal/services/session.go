package services

import (
	"log"
	"sync"

	"slidecast/internal/models"
)

type sessionEntry struct {
	currentSlide int
	followMode   bool
}

// SessionState holds the presenter secret, the master presenter identity,
// the presenter's live position and per-session navigation state.
type SessionState struct {
	mu       sync.Mutex
	cookie   string
	masterID string
	current  *models.CurrentSlide
	sessions map[string]*sessionEntry
}

// NewSessionState creates an empty session state; the presenter cookie is
// generated lazily on first use
func NewSessionState() *SessionState {
	return &SessionState{
		sessions: make(map[string]*sessionEntry),
	}
}

// EnsureCookie returns the presenter secret, generating it on first call.
// At most one secret is active at a time.
func (s *SessionState) EnsureCookie() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cookie != "" {
		return s.cookie, nil
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}
	s.cookie = token
	log.Println("Presenter cookie generated")
	return s.cookie, nil
}

// Validate checks a presented cookie against the stored secret by exact
// string equality. Always false before the first presenter registers.
func (s *SessionState) Validate(cookie string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookie != "" && cookie == s.cookie
}

// SetMasterIfEmpty records clientID as the master presenter unless one is
// already set; returns true if clientID became master.
func (s *SessionState) SetMasterIfEmpty(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.masterID != "" {
		return false
	}
	s.masterID = clientID
	log.Printf("Master presenter set: %s", clientID)
	return true
}

// Master returns the master presenter's client id, or "" if none
func (s *SessionState) Master() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.masterID
}

// ClearMaster forgets the master presenter so the next registration claims it
func (s *SessionState) ClearMaster() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masterID = ""
}

// SetCurrent updates the presenter's live position
func (s *SessionState) SetCurrent(name string, number, increment int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &models.CurrentSlide{
		Name:      name,
		Number:    number,
		Increment: increment,
	}
}

// Current returns the live position; ok is false before the first update
func (s *SessionState) Current() (models.CurrentSlide, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return models.CurrentSlide{}, false
	}
	return *s.current, true
}

// SetSessionSlide records a session's own position, independent of the
// presenter's position
func (s *SessionState) SetSessionSlide(sessionID string, slide int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(sessionID).currentSlide = slide
}

// SetFollowMode toggles whether a session follows the presenter
func (s *SessionState) SetFollowMode(sessionID string, follow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(sessionID).followMode = follow
}

// Session returns a session's navigation state
func (s *SessionState) Session(sessionID string) (models.SessionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.sessions[sessionID]
	if !exists {
		return models.SessionView{}, false
	}
	return models.SessionView{
		CurrentSlide: entry.currentSlide,
		FollowMode:   entry.followMode,
	}, true
}

// entry must be called with the lock held
func (s *SessionState) entry(sessionID string) *sessionEntry {
	entry, exists := s.sessions[sessionID]
	if !exists {
		entry = &sessionEntry{followMode: true}
		s.sessions[sessionID] = entry
	}
	return entry
}
