package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecast/internal/db"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	require.NoError(t, db.InitDatabase(filepath.Join(t.TempDir(), "events.db")))
	t.Cleanup(func() { db.Close() })
	return NewJournal(db.DB)
}

func TestJournal_RecordAndCount(t *testing.T) {
	journal := newTestJournal(t)

	require.NoError(t, journal.Record(EventView, "session-1", 3, ""))
	require.NoError(t, journal.Record(EventView, "session-1", 4, ""))
	require.NoError(t, journal.Record(EventPace, "session-2", 0, "too_slow"))

	views, err := journal.CountByKind(EventView)
	require.NoError(t, err)
	assert.Equal(t, 2, views)

	paces, err := journal.CountByKind(EventPace)
	require.NoError(t, err)
	assert.Equal(t, 1, paces)
}

func TestJournal_RecentSessions(t *testing.T) {
	journal := newTestJournal(t)

	require.NoError(t, journal.Record(EventView, "session-1", 1, ""))
	require.NoError(t, journal.Record(EventView, "session-1", 2, ""))
	require.NoError(t, journal.Record(EventQuestion, "session-2", 0, "why?"))

	sessions, err := journal.RecentSessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	byID := map[string]int{}
	for _, session := range sessions {
		byID[session.SessionID] = session.Events
		assert.False(t, session.LastSeen.IsZero())
	}
	assert.Equal(t, 2, byID["session-1"])
	assert.Equal(t, 1, byID["session-2"])
}

func TestJournal_RecentSessionsDefaultLimit(t *testing.T) {
	journal := newTestJournal(t)
	sessions, err := journal.RecentSessions(0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
