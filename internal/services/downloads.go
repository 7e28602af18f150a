package services

import (
	"sync"

	"slidecast/internal/models"
)

// SharedSlide is the reserved slide number for presentation-wide files not
// tied to any single slide.
const SharedSlide = -1

// DownloadManager registers per-slide downloadable file lists and an
// enabled flag. Enabling is one-directional: navigating away never disables
// a slide's downloads. In-memory only.
type DownloadManager struct {
	mu      sync.Mutex
	entries map[int]*models.DownloadEntry
}

// NewDownloadManager creates an empty download registry
func NewDownloadManager() *DownloadManager {
	return &DownloadManager{
		entries: make(map[int]*models.DownloadEntry),
	}
}

// Register attaches a named file list to a slide, disabled until the
// presenter first shows that slide. SharedSlide is the only negative slide
// number accepted.
func (d *DownloadManager) Register(slide int, name string, files []string) error {
	if slide < 0 && slide != SharedSlide {
		return newValidationError("slide", "must be a non-negative integer, got %d", slide)
	}
	if name == "" {
		return newValidationError("name", "must be a non-empty string")
	}
	for _, file := range files {
		if file == "" {
			return newValidationError("files", "must not contain empty entries")
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	copied := make([]string, len(files))
	copy(copied, files)
	d.entries[slide] = &models.DownloadEntry{
		Name:  name,
		Files: copied,
		// Shared files are always available
		Enabled: slide == SharedSlide,
	}
	return nil
}

// Enable marks a slide's downloads available. Missing entries report
// ErrNoEntry so callers can treat enabling as best-effort.
func (d *DownloadManager) Enable(slide int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, exists := d.entries[slide]
	if !exists {
		return ErrNoEntry
	}
	entry.Enabled = true
	return nil
}

// Get returns a deep copy of a slide's download entry
func (d *DownloadManager) Get(slide int) (models.DownloadEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, exists := d.entries[slide]
	if !exists {
		return models.DownloadEntry{}, false
	}
	return copyDownloadEntry(entry), true
}

// All returns deep copies of every registered entry
func (d *DownloadManager) All() map[int]models.DownloadEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make(map[int]models.DownloadEntry, len(d.entries))
	for slide, entry := range d.entries {
		all[slide] = copyDownloadEntry(entry)
	}
	return all
}

func copyDownloadEntry(entry *models.DownloadEntry) models.DownloadEntry {
	files := make([]string, len(entry.Files))
	copy(files, entry.Files)
	return models.DownloadEntry{
		Enabled: entry.Enabled,
		Name:    entry.Name,
		Files:   files,
	}
}
