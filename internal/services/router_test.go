package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecast/internal/models"
)

type routerFixture struct {
	registry  *Registry
	session   *SessionState
	stats     *StatsManager
	activity  *ActivityManager
	downloads *DownloadManager
	feedback  *FeedbackManager
	bcast     *Broadcaster
	router    *Router
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	dir := t.TempDir()

	f := &routerFixture{
		registry:  NewRegistry(),
		session:   NewSessionState(),
		stats:     NewStatsManager(filepath.Join(dir, "stats.json")),
		activity:  NewActivityManager(),
		downloads: NewDownloadManager(),
		feedback:  NewFeedbackManager(filepath.Join(dir, "feedback.json")),
	}
	f.bcast = NewBroadcaster(f.registry)
	f.router = NewRouter(f.registry, f.session, f.stats, f.activity, f.downloads, f.feedback, f.bcast, nil)
	return f
}

func (f *routerFixture) connect(t *testing.T, clientID, sessionID string, presenter bool) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	f.registry.Add(conn, models.ConnectionInfo{
		ClientID:    clientID,
		SessionID:   sessionID,
		CookieValid: presenter,
	})
	if presenter {
		f.router.Handle([]byte(`{"message":"register"}`), conn)
	}
	return conn
}

func TestRouter_MalformedJSONDropped(t *testing.T) {
	f := newRouterFixture(t)
	conn := f.connect(t, "a", "sa", false)

	assert.NotPanics(t, func() {
		f.router.Handle([]byte(`{"message":`), conn)
	})
	f.bcast.Wait()
	assert.Equal(t, 0, conn.sentCount())
}

func TestRouter_UnknownMessageDropped(t *testing.T) {
	f := newRouterFixture(t)
	conn := f.connect(t, "a", "sa", false)

	f.router.Handle([]byte(`{"message":"teleport","slide":3}`), conn)
	f.bcast.Wait()
	assert.Equal(t, 0, conn.sentCount())
}

func TestRouter_UpdateBroadcastsToEveryone(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "sv", false)

	f.router.Handle([]byte(`{"message":"update","name":"s2","slide":5,"increment":1}`), presenter)
	f.bcast.Wait()

	for _, conn := range []*fakeConn{presenter, viewer} {
		messages := conn.messages()
		require.Len(t, messages, 1)
		assert.Equal(t, "current", messages[0]["message"])
		assert.Equal(t, float64(5), messages[0]["current"])
		assert.Equal(t, float64(1), messages[0]["increment"])
	}

	current, ok := f.session.Current()
	require.True(t, ok)
	assert.Equal(t, "s2", current.Name)
	assert.Equal(t, 5, current.Number)
}

func TestRouter_UpdateFromNonPresenterRejected(t *testing.T) {
	f := newRouterFixture(t)
	f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "sv", false)

	f.router.Handle([]byte(`{"message":"update","name":"s2","slide":5,"increment":1}`), viewer)
	f.bcast.Wait()

	assert.Equal(t, 0, viewer.sentCount())
	_, ok := f.session.Current()
	assert.False(t, ok, "no state change from an unauthorized update")
}

func TestRouter_UpdateEnablesDownloads(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	require.NoError(t, f.downloads.Register(5, "Files", []string{"a.zip"}))

	f.router.Handle([]byte(`{"message":"update","name":"s2","slide":5}`), presenter)
	f.bcast.Wait()

	entry, _ := f.downloads.Get(5)
	assert.True(t, entry.Enabled)

	// Navigating away does not disable
	f.router.Handle([]byte(`{"message":"update","name":"s3","slide":6}`), presenter)
	f.bcast.Wait()
	entry, _ = f.downloads.Get(5)
	assert.True(t, entry.Enabled)
}

func TestRouter_UpdateWithoutDownloadsStillBroadcasts(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)

	f.router.Handle([]byte(`{"message":"update","name":"s2","slide":42}`), presenter)
	f.bcast.Wait()

	assert.Equal(t, 1, presenter.sentCount(), "download enabling is best-effort")
}

func TestRouter_RegisterRequiresValidCookie(t *testing.T) {
	f := newRouterFixture(t)
	conn := &fakeConn{}
	f.registry.Add(conn, models.ConnectionInfo{ClientID: "imposter", CookieValid: false})

	f.router.Handle([]byte(`{"message":"register"}`), conn)

	assert.False(t, f.registry.IsPresenter(conn))
	assert.Empty(t, f.session.Master())
}

func TestRouter_RegisterFixesMaster(t *testing.T) {
	f := newRouterFixture(t)
	f.connect(t, "first", "s1", true)
	f.connect(t, "second", "s2", true)

	assert.Equal(t, "first", f.session.Master())
	assert.Equal(t, 2, f.registry.PresenterCount())
}

func TestRouter_TrackElapsedScenario(t *testing.T) {
	f := newRouterFixture(t)
	conn := f.connect(t, "v", "session-1", false)

	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.router.now = func() time.Time { return current }

	f.router.Handle([]byte(`{"message":"track","slide":3}`), conn)
	f.router.Handle([]byte(`{"message":"track","slide":3}`), conn)
	current = current.Add(30 * time.Second)
	f.router.Handle([]byte(`{"message":"track","slide":4}`), conn)

	f.stats.mu.Lock()
	slide3 := f.stats.views[3]
	slide4 := f.stats.views[4]
	f.stats.mu.Unlock()

	require.Len(t, slide3, 2)
	assert.Equal(t, 0.0, slide3[1].Elapsed)
	require.Len(t, slide4, 1)
	assert.InDelta(t, 30.0, slide4[0].Elapsed, 0.001)

	view, ok := f.session.Session("session-1")
	require.True(t, ok)
	assert.Equal(t, 4, view.CurrentSlide)
}

func TestRouter_TrackBackdatesWithClientTime(t *testing.T) {
	f := newRouterFixture(t)
	conn := f.connect(t, "v", "session-1", false)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.router.now = func() time.Time { return now }

	f.router.Handle([]byte(`{"message":"track","slide":3,"time":12.5}`), conn)

	f.stats.mu.Lock()
	record := f.stats.views[3][0]
	f.stats.mu.Unlock()
	assert.True(t, record.Timestamp.Equal(now.Add(-12500*time.Millisecond)))
}

func TestRouter_PositionRepliesOnlyToSender(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewerA := f.connect(t, "a", "sa", false)
	viewerB := f.connect(t, "b", "sb", false)

	// No reply before the first update
	f.router.Handle([]byte(`{"message":"position"}`), viewerA)
	f.bcast.Wait()
	assert.Equal(t, 0, viewerA.sentCount())

	f.router.Handle([]byte(`{"message":"update","name":"s1","slide":9}`), presenter)
	f.bcast.Wait()

	f.router.Handle([]byte(`{"message":"position"}`), viewerA)
	f.bcast.Wait()

	messages := viewerA.messages()
	require.Len(t, messages, 2) // the update broadcast plus the position reply
	assert.Equal(t, float64(9), messages[1]["current"])
	assert.Equal(t, 1, viewerB.sentCount(), "position replies never fan out")
}

func TestRouter_ActivityCountScenario(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewerA := f.connect(t, "a", "sa", false)
	viewerB := f.connect(t, "b", "sb", false)

	f.router.Handle([]byte(`{"message":"update","name":"s10","slide":10}`), presenter)
	f.bcast.Wait()
	presenterBase := presenter.sentCount()

	f.router.Handle([]byte(`{"message":"activity","slide":10,"status":false}`), viewerA)
	f.bcast.Wait()
	f.router.Handle([]byte(`{"message":"activity","slide":10,"status":false}`), viewerB)
	f.bcast.Wait()

	messages := presenter.messages()[presenterBase:]
	require.Len(t, messages, 2)
	last := messages[1]
	assert.Equal(t, "activity", last["message"])
	assert.Equal(t, float64(2), last["count"])
}

func TestRouter_ActivityOffCurrentSlideIsSilent(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "sv", false)

	f.router.Handle([]byte(`{"message":"update","name":"s1","slide":1}`), presenter)
	f.bcast.Wait()
	base := presenter.sentCount()

	f.router.Handle([]byte(`{"message":"activity","slide":10,"status":false}`), viewer)
	f.bcast.Wait()

	assert.Equal(t, base, presenter.sentCount(), "stale-slide activity must not reach presenters")
	assert.Equal(t, 1, f.activity.IncompleteCount(10), "the state is still recorded")
}

func TestRouter_ActivityFromPresenterIgnored(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)

	f.router.Handle([]byte(`{"message":"activity","slide":1,"status":false}`), presenter)
	f.bcast.Wait()
	assert.Equal(t, 0, f.activity.IncompleteCount(1))
}

func TestRouter_PaceTalliedAndRelayed(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "sv", false)

	f.router.Handle([]byte(`{"message":"pace","pace":"too_fast","id":"client-id"}`), viewer)
	f.bcast.Wait()

	assert.Equal(t, 1, f.stats.Aggregated().Pace.TooFast)

	messages := presenter.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "pace", messages[0]["message"])
	assert.Equal(t, "too_fast", messages[0]["pace"])
	id, _ := messages[0]["id"].(string)
	assert.Len(t, id, 16, "client-supplied id is replaced with a fresh token")
	assert.NotEqual(t, "client-id", id)
}

func TestRouter_InvalidPaceDropped(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "sv", false)

	f.router.Handle([]byte(`{"message":"pace","pace":"warp_speed"}`), viewer)
	f.bcast.Wait()

	tally := f.stats.Aggregated().Pace
	assert.Equal(t, models.PaceTally{}, tally, "invalid values leave the tally unchanged")
	assert.Equal(t, 0, presenter.sentCount(), "no broadcast for rejected pace")
}

func TestRouter_QuestionRecordedAndRelayed(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "session-q", false)

	f.router.Handle([]byte(`{"message":"question","question":"why goroutines?"}`), viewer)
	f.bcast.Wait()

	questions := f.stats.Questions()
	require.Len(t, questions, 1)
	assert.Equal(t, "session-q", questions[0].SessionID)
	assert.Equal(t, "why goroutines?", questions[0].Question)

	messages := presenter.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "why goroutines?", messages[0]["question"])
	id, _ := messages[0]["id"].(string)
	assert.Len(t, id, 16)
}

func TestRouter_CancelRelayedWithFreshID(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "sv", false)

	f.router.Handle([]byte(`{"message":"cancel","id":"old"}`), viewer)
	f.bcast.Wait()

	messages := presenter.messages()
	require.Len(t, messages, 1)
	id, _ := messages[0]["id"].(string)
	assert.Len(t, id, 16)
	assert.Equal(t, 0, viewer.sentCount())
}

func TestRouter_PureRelays(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "sv", false)

	t.Run("complete goes to everyone unchanged", func(t *testing.T) {
		f.router.Handle([]byte(`{"message":"complete","slide":2,"extra":"kept"}`), viewer)
		f.bcast.Wait()

		for _, conn := range []*fakeConn{presenter, viewer} {
			messages := conn.messages()
			require.NotEmpty(t, messages)
			last := messages[len(messages)-1]
			assert.Equal(t, "complete", last["message"])
			assert.Equal(t, "kept", last["extra"])
			assert.NotContains(t, last, "id")
		}
	})

	t.Run("annotation goes to audience only", func(t *testing.T) {
		presenterBase := presenter.sentCount()
		f.router.Handle([]byte(`{"message":"annotation","x":1,"y":2}`), presenter)
		f.bcast.Wait()

		assert.Equal(t, presenterBase, presenter.sentCount())
		last := viewer.messages()[len(viewer.messages())-1]
		assert.Equal(t, "annotation", last["message"])
	})
}

func TestRouter_FeedbackPersistedNotBroadcast(t *testing.T) {
	f := newRouterFixture(t)
	presenter := f.connect(t, "p", "sp", true)
	viewer := f.connect(t, "v", "session-f", false)

	f.router.Handle([]byte(`{"message":"feedback","slide":4,"rating":5,"feedback":"great"}`), viewer)
	f.bcast.Wait()

	entries := f.feedback.ForSlide(4)
	require.Len(t, entries, 1)
	assert.Equal(t, "session-f", entries[0].SessionID)
	assert.Equal(t, 5, entries[0].Rating)
	assert.Equal(t, 0, presenter.sentCount(), "feedback is private")
}

func TestRouter_FeedbackInvalidRatingDropped(t *testing.T) {
	f := newRouterFixture(t)
	viewer := f.connect(t, "v", "sv", false)

	f.router.Handle([]byte(`{"message":"feedback","slide":4,"rating":9}`), viewer)
	assert.Empty(t, f.feedback.ForSlide(4))
}

func TestRouter_FollowTogglesSession(t *testing.T) {
	f := newRouterFixture(t)
	viewer := f.connect(t, "v", "session-1", false)

	f.router.Handle([]byte(`{"message":"follow","follow":false}`), viewer)

	view, ok := f.session.Session("session-1")
	require.True(t, ok)
	assert.False(t, view.FollowMode)
}
