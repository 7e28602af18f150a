package services

import "sync"

// ActivityManager tracks per-slide activity completion per connection. The
// connection handle is only used as a map key; the registry stays the owner.
type ActivityManager struct {
	mu     sync.Mutex
	slides map[int]map[Conn]bool
}

// NewActivityManager creates an empty activity tracker
func NewActivityManager() *ActivityManager {
	return &ActivityManager{
		slides: make(map[int]map[Conn]bool),
	}
}

// Set records whether conn has completed the activity on slide
func (a *ActivityManager) Set(slide int, conn Conn, completed bool) error {
	if slide < 0 {
		return newValidationError("slide", "must be a non-negative integer, got %d", slide)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entries, exists := a.slides[slide]
	if !exists {
		entries = make(map[Conn]bool)
		a.slides[slide] = entries
	}
	entries[conn] = completed
	return nil
}

// IncompleteCount returns how many connections have not completed the
// activity on slide
func (a *ActivityManager) IncompleteCount(slide int) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	count := 0
	for _, completed := range a.slides[slide] {
		if !completed {
			count++
		}
	}
	return count
}

// Forget drops a disconnected connection from every slide
func (a *ActivityManager) Forget(conn Conn) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, entries := range a.slides {
		delete(entries, conn)
	}
}

// Counts returns the incomplete count for every tracked slide
func (a *ActivityManager) Counts() map[int]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make(map[int]int, len(a.slides))
	for slide, entries := range a.slides {
		incomplete := 0
		for _, completed := range entries {
			if !completed {
				incomplete++
			}
		}
		counts[slide] = incomplete
	}
	return counts
}
