package services

import (
	"encoding/json"
	"log"
	"sync"
)

// Broadcaster delivers JSON payloads to scoped sets of connections. Every
// send is handed to a goroutine so a slow or failed client never blocks the
// handler that triggered the broadcast. The recipient list is snapshotted
// under the registry lock and iterated outside it; a connection removed
// mid-broadcast may still receive one final message, which clients tolerate.
type Broadcaster struct {
	registry *Registry
	wg       sync.WaitGroup
}

// NewBroadcaster creates a broadcaster over the given registry
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// BroadcastToAll delivers payload to every live connection
func (b *Broadcaster) BroadcastToAll(payload interface{}) {
	b.dispatch(b.registry.Connections(), payload)
}

// BroadcastToPresenters delivers payload to presenter connections only
func (b *Broadcaster) BroadcastToPresenters(payload interface{}) {
	b.dispatch(b.registry.Presenters(), payload)
}

// BroadcastToAudience delivers payload to every non-presenter connection
func (b *Broadcaster) BroadcastToAudience(payload interface{}) {
	b.dispatch(b.registry.Audience(), payload)
}

// SendTo delivers payload to a single connection
func (b *Broadcaster) SendTo(conn Conn, payload interface{}) {
	b.dispatch([]Conn{conn}, payload)
}

// Wait blocks until all scheduled deliveries have completed. Used on
// shutdown and by tests; handlers never call it.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

func (b *Broadcaster) dispatch(recipients []Conn, payload interface{}) {
	if len(recipients) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal broadcast payload: %v", err)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for _, conn := range recipients {
			// A failed send is logged and skipped; only an explicit close
			// event removes a connection from the registry.
			if err := conn.Send(data); err != nil {
				log.Printf("Failed to send to connection: %v", err)
			}
		}
	}()
}
