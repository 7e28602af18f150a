package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionState_Cookie(t *testing.T) {
	session := NewSessionState()

	assert.False(t, session.Validate("deadbeefdeadbeef"), "no cookie exists before the first issue")

	cookie, err := session.EnsureCookie()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), cookie)

	again, err := session.EnsureCookie()
	require.NoError(t, err)
	assert.Equal(t, cookie, again, "only one secret is active at a time")

	assert.True(t, session.Validate(cookie))
	assert.False(t, session.Validate(cookie+"x"))
	assert.False(t, session.Validate(""))
}

func TestSessionState_Master(t *testing.T) {
	session := NewSessionState()

	assert.True(t, session.SetMasterIfEmpty("client-1"))
	assert.False(t, session.SetMasterIfEmpty("client-2"), "master is fixed to the first registrant")
	assert.Equal(t, "client-1", session.Master())

	session.ClearMaster()
	assert.True(t, session.SetMasterIfEmpty("client-2"))
	assert.Equal(t, "client-2", session.Master())
}

func TestSessionState_Current(t *testing.T) {
	session := NewSessionState()

	_, ok := session.Current()
	assert.False(t, ok, "no position before the first update")

	session.SetCurrent("intro", 5, 1)
	current, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, "intro", current.Name)
	assert.Equal(t, 5, current.Number)
	assert.Equal(t, 1, current.Increment)
}

func TestSessionState_PerSession(t *testing.T) {
	session := NewSessionState()

	session.SetSessionSlide("session-1", 7)
	view, ok := session.Session("session-1")
	require.True(t, ok)
	assert.Equal(t, 7, view.CurrentSlide)
	assert.True(t, view.FollowMode, "sessions follow the presenter by default")

	session.SetFollowMode("session-1", false)
	view, _ = session.Session("session-1")
	assert.False(t, view.FollowMode)
	assert.Equal(t, 7, view.CurrentSlide)

	_, ok = session.Session("never-seen")
	assert.False(t, ok)
}
