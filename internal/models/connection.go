package models

import "time"

// ConnectionInfo is the metadata tracked for a live WebSocket connection.
// The registry owns the canonical copy; readers always get a value copy.
type ConnectionInfo struct {
	ClientID     string
	SessionID    string
	RemoteAddr   string
	UserAgent    string
	IsPresenter  bool
	CookieValid  bool // presenter cookie validated at upgrade time
	RegisteredAt time.Time
}

// CurrentSlide is the presenter's live position
type CurrentSlide struct {
	Name      string
	Number    int
	Increment int
}

// SessionView is a per-session snapshot: where the session is and whether
// it follows the presenter
type SessionView struct {
	CurrentSlide int
	FollowMode   bool
}
