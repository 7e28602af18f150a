package services

import (
	"sync"
	"time"

	"slidecast/internal/models"
)

// Conn is the narrow send surface the realtime core needs from a transport.
// Implementations must be comparable (pointer types) so they can key maps.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Registry tracks live connections and which of them are presenters.
// One mutex guards both maps: Remove deletes from the connection map and the
// presenter set in the same critical section, so readers never observe a
// presenter that is absent from the main map.
type Registry struct {
	mu         sync.RWMutex
	conns      map[Conn]*models.ConnectionInfo
	presenters map[Conn]struct{}
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[Conn]*models.ConnectionInfo),
		presenters: make(map[Conn]struct{}),
	}
}

// Add registers a connection with its metadata. Re-adding an existing
// connection overwrites its metadata.
func (r *Registry) Add(conn Conn, info models.ConnectionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info.RegisteredAt = time.Now()
	r.conns[conn] = &info
}

// Remove drops a connection. Removing an unregistered connection is a no-op.
func (r *Registry) Remove(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, conn)
	delete(r.presenters, conn)
}

// MarkPresenter flags a registered connection as a presenter
func (r *Registry) MarkPresenter(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.conns[conn]
	if !exists {
		return
	}
	info.IsPresenter = true
	r.presenters[conn] = struct{}{}
}

// IsPresenter reports whether the connection is currently a presenter
func (r *Registry) IsPresenter(conn Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.presenters[conn]
	return ok
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// PresenterCount returns the number of presenter connections
func (r *Registry) PresenterCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presenters)
}

// Info returns a copy of the connection's metadata, or nil if unregistered
func (r *Registry) Info(conn Conn) *models.ConnectionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.conns[conn]
	if !exists {
		return nil
	}
	copied := *info
	return &copied
}

// All returns metadata copies for every live connection
func (r *Registry) All() []models.ConnectionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.ConnectionInfo, 0, len(r.conns))
	for _, info := range r.conns {
		infos = append(infos, *info)
	}
	return infos
}

// Connections returns a snapshot of every live connection
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Presenters returns a snapshot of presenter connections
func (r *Registry) Presenters() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.presenters))
	for conn := range r.presenters {
		conns = append(conns, conn)
	}
	return conns
}

// Audience returns a snapshot of every connection not in the presenter set.
// Both maps are read under the same lock so the split is consistent.
func (r *Registry) Audience() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for conn := range r.conns {
		if _, isPresenter := r.presenters[conn]; !isPresenter {
			conns = append(conns, conn)
		}
	}
	return conns
}
