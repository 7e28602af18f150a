package handlers

import (
	"log"
	"net/http"
	"time"

	"slidecast/internal/models"
	"slidecast/internal/services"

	"github.com/gorilla/websocket"
)

// presenterCookieName is the out-of-band HTTP cookie carrying the presenter
// secret. Issuance is the HTTP layer's concern; the core only validates.
const presenterCookieName = "presenter"

// WebSocketHandler upgrades HTTP requests to WebSocket connections and
// drives the per-connection read loop into the router.
type WebSocketHandler struct {
	registry *services.Registry
	session  *services.SessionState
	activity *services.ActivityManager
	router   *services.Router
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(registry *services.Registry, session *services.SessionState,
	activity *services.ActivityManager, router *services.Router) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		session:  session,
		activity: activity,
		router:   router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Slides are served from the same origin in production; the
			// audience client may connect through a proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles the WebSocket upgrade
// GET /ws?client_id=...&session=...
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	cookieValid := false
	if cookie, err := r.Cookie(presenterCookieName); err == nil {
		cookieValid = h.session.Validate(cookie.Value)
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = r.RemoteAddr
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = newSessionID()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(conn)
	h.registry.Add(client, models.ConnectionInfo{
		ClientID:    clientID,
		SessionID:   sessionID,
		RemoteAddr:  r.RemoteAddr,
		UserAgent:   r.UserAgent(),
		CookieValid: cookieValid,
	})

	log.Printf("Client connected: %s (session %s, %d total)", clientID, sessionID, h.registry.Count())

	go client.writePump()
	go h.readLoop(client, clientID)
}

// readLoop feeds inbound frames to the router until the connection closes,
// then removes the connection everywhere it is tracked
func (h *WebSocketHandler) readLoop(client *wsClient, clientID string) {
	defer func() {
		h.registry.Remove(client)
		h.activity.Forget(client)
		client.Close()
		log.Printf("Client disconnected: %s (%d total)", clientID, h.registry.Count())
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		h.router.Handle(data, client)
	}
}

// newSessionID falls back to a time-derived id for clients that never
// supplied one; it only needs to be unique enough to bucket telemetry
func newSessionID() string {
	return "anon-" + time.Now().UTC().Format("20060102150405.000000000")
}
