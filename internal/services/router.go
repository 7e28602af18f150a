package services

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"slidecast/internal/models"
)

// Router parses inbound WebSocket frames and dispatches them by message
// type. Malformed JSON and unknown types are logged and dropped; the
// connection stays open. Presenter-only messages from non-presenter
// connections are rejected silently with no broadcast and no state change.
type Router struct {
	registry  *Registry
	session   *SessionState
	stats     *StatsManager
	activity  *ActivityManager
	downloads *DownloadManager
	feedback  *FeedbackManager
	bcast     *Broadcaster
	journal   *Journal // optional, nil disables journaling

	now func() time.Time
}

// NewRouter wires a router over the shared stores. journal may be nil.
func NewRouter(registry *Registry, session *SessionState, stats *StatsManager,
	activity *ActivityManager, downloads *DownloadManager,
	feedback *FeedbackManager, bcast *Broadcaster, journal *Journal) *Router {
	return &Router{
		registry:  registry,
		session:   session,
		stats:     stats,
		activity:  activity,
		downloads: downloads,
		feedback:  feedback,
		bcast:     bcast,
		journal:   journal,
		now:       time.Now,
	}
}

// Handle routes one raw frame from conn. Never returns an error to the read
// loop: every failure degrades to drop-and-log.
func (r *Router) Handle(raw []byte, conn Conn) {
	var frame map[string]interface{}
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("Dropping malformed frame: %v", err)
		return
	}

	messageType, _ := frame["message"].(string)
	switch models.MessageType(messageType) {
	case models.MessageUpdate:
		r.handleUpdate(frame, conn)
	case models.MessageRegister:
		r.handleRegister(conn)
	case models.MessageTrack:
		r.handleTrack(frame, conn)
	case models.MessagePosition:
		r.handlePosition(conn)
	case models.MessageActivity:
		r.handleActivity(frame, conn)
	case models.MessagePace:
		r.handlePace(frame, conn)
	case models.MessageQuestion:
		r.handleQuestion(frame, conn)
	case models.MessageCancel:
		r.handleRelayWithID(frame)
	case models.MessageComplete, models.MessageAnswerKey:
		r.bcast.BroadcastToAll(frame)
	case models.MessageAnnotation, models.MessageAnnotationConfig:
		r.bcast.BroadcastToAudience(frame)
	case models.MessageFeedback:
		r.handleFeedback(frame, conn)
	case models.MessageFollow:
		r.handleFollow(frame, conn)
	default:
		log.Printf("Warning: unknown message type %q, dropping frame", messageType)
	}
}

// handleUpdate moves the presenter's live position, enables any downloads
// attached to the slide (best-effort, never blocks the broadcast) and tells
// every connection where the presentation is now.
func (r *Router) handleUpdate(frame map[string]interface{}, conn Conn) {
	if !r.registry.IsPresenter(conn) {
		log.Println("Rejected update from non-presenter connection")
		return
	}

	slide, ok := intField(frame, "slide")
	if !ok {
		log.Println("Dropping update without a slide number")
		return
	}
	increment, _ := intField(frame, "increment")
	name := stringField(frame, "name")

	r.session.SetCurrent(name, slide, increment)

	if err := r.downloads.Enable(slide); err != nil && !errors.Is(err, ErrNoEntry) {
		log.Printf("Failed to enable downloads for slide %d: %v", slide, err)
	}

	r.bcast.BroadcastToAll(models.CurrentMessage{
		Message:   string(models.MessageCurrent),
		Current:   slide,
		Increment: increment,
	})
}

// handleRegister promotes a connection to presenter. Authorization comes
// from the presenter cookie validated at upgrade time, never from the
// message body.
func (r *Router) handleRegister(conn Conn) {
	info := r.registry.Info(conn)
	if info == nil {
		return
	}
	if !info.CookieValid {
		log.Printf("Rejected presenter registration from %s: no valid cookie", info.RemoteAddr)
		return
	}

	r.registry.MarkPresenter(conn)
	r.session.SetMasterIfEmpty(info.ClientID)
}

// handleTrack records a slide view. The session identity always comes from
// the connection metadata so clients cannot spoof another session. A
// client-supplied "time" field (seconds already spent) backdates the view.
func (r *Router) handleTrack(frame map[string]interface{}, conn Conn) {
	info := r.registry.Info(conn)
	if info == nil {
		return
	}

	slide, ok := intField(frame, "slide")
	if !ok {
		log.Println("Dropping track without a slide number")
		return
	}

	timestamp := r.now()
	if seconds, ok := floatField(frame, "time"); ok {
		timestamp = timestamp.Add(-time.Duration(seconds * float64(time.Second)))
	}

	if err := r.stats.RecordView(slide, info.SessionID, timestamp, info.UserAgent); err != nil {
		log.Printf("Dropping track: %v", err)
		return
	}
	r.session.SetSessionSlide(info.SessionID, slide)
	r.journalEvent(EventView, info.SessionID, slide, "")
}

// handlePosition replies to the requesting connection only; no reply before
// the presenter's first update
func (r *Router) handlePosition(conn Conn) {
	current, ok := r.session.Current()
	if !ok {
		return
	}
	r.bcast.SendTo(conn, models.CurrentMessage{
		Message:   string(models.MessageCurrent),
		Current:   current.Number,
		Increment: current.Increment,
	})
}

// handleActivity records activity completion for audience connections and,
// only when the slide is the live one, tells presenters how many viewers
// are still working
func (r *Router) handleActivity(frame map[string]interface{}, conn Conn) {
	if r.registry.IsPresenter(conn) {
		return
	}

	slide, ok := intField(frame, "slide")
	if !ok {
		log.Println("Dropping activity without a slide number")
		return
	}
	status, ok := boolField(frame, "status")
	if !ok {
		log.Println("Dropping activity without a status")
		return
	}

	if err := r.activity.Set(slide, conn, status); err != nil {
		log.Printf("Dropping activity: %v", err)
		return
	}

	current, ok := r.session.Current()
	if !ok || current.Number != slide {
		return
	}
	r.bcast.BroadcastToPresenters(models.ActivityMessage{
		Message: string(models.MessageActivity),
		Count:   r.activity.IncompleteCount(slide),
	})
}

// handlePace validates and tallies a pacing vote, then relays the frame to
// presenters with a fresh correlation id. An invalid value leaves the tally
// untouched and broadcasts nothing.
func (r *Router) handlePace(frame map[string]interface{}, conn Conn) {
	info := r.registry.Info(conn)
	if info == nil {
		return
	}

	value := stringField(frame, "pace")
	if err := r.stats.RecordPace(info.SessionID, value); err != nil {
		log.Printf("Dropping pace: %v", err)
		return
	}

	r.journalEvent(EventPace, info.SessionID, 0, value)
	r.relayWithID(frame)
}

// handleQuestion records the question and relays it to presenters with a
// fresh correlation id
func (r *Router) handleQuestion(frame map[string]interface{}, conn Conn) {
	info := r.registry.Info(conn)
	if info == nil {
		return
	}

	question := stringField(frame, "question")
	r.stats.RecordQuestion(info.SessionID, question, r.now())
	r.journalEvent(EventQuestion, info.SessionID, 0, question)
	r.relayWithID(frame)
}

// handleRelayWithID relays a frame to presenters with a fresh id and no
// store mutation (cancel)
func (r *Router) handleRelayWithID(frame map[string]interface{}) {
	r.relayWithID(frame)
}

// handleFeedback validates and persists a private feedback rating; nothing
// is broadcast
func (r *Router) handleFeedback(frame map[string]interface{}, conn Conn) {
	info := r.registry.Info(conn)
	if info == nil {
		return
	}

	slide, ok := intField(frame, "slide")
	if !ok {
		log.Println("Dropping feedback without a slide number")
		return
	}
	rating, ok := intField(frame, "rating")
	if !ok {
		log.Println("Dropping feedback without a rating")
		return
	}
	text := stringField(frame, "feedback")

	if err := r.feedback.Submit(slide, info.SessionID, rating, text, r.now()); err != nil {
		log.Printf("Dropping feedback: %v", err)
		return
	}
	r.journalEvent(EventFeedback, info.SessionID, slide, strconv.Itoa(rating))
}

// handleFollow toggles a session's follow mode; informational only
func (r *Router) handleFollow(frame map[string]interface{}, conn Conn) {
	info := r.registry.Info(conn)
	if info == nil {
		return
	}
	follow, ok := boolField(frame, "follow")
	if !ok {
		log.Println("Dropping follow without a follow flag")
		return
	}
	r.session.SetFollowMode(info.SessionID, follow)
}

// relayWithID overwrites any client-supplied id with a fresh 16-hex token,
// keeps every other field verbatim and broadcasts to presenters
func (r *Router) relayWithID(frame map[string]interface{}) {
	id, err := newToken()
	if err != nil {
		log.Printf("Failed to generate message id: %v", err)
		return
	}
	frame["id"] = id
	r.bcast.BroadcastToPresenters(frame)
}

func (r *Router) journalEvent(kind, sessionID string, slide int, value string) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Record(kind, sessionID, slide, value); err != nil {
		log.Printf("Failed to journal %s event: %v", kind, err)
	}
}

// Inbound frames decode to map[string]interface{}; JSON numbers arrive as
// float64 and these helpers normalize them.

func stringField(frame map[string]interface{}, key string) string {
	value, _ := frame[key].(string)
	return value
}

func intField(frame map[string]interface{}, key string) (int, bool) {
	value, ok := frame[key].(float64)
	if !ok {
		return 0, false
	}
	return int(value), true
}

func floatField(frame map[string]interface{}, key string) (float64, bool) {
	value, ok := frame[key].(float64)
	return value, ok
}

func boolField(frame map[string]interface{}, key string) (bool, bool) {
	value, ok := frame[key].(bool)
	return value, ok
}
