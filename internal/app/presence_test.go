package app

import (
	"testing"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindTestSession(p *Presence, sid core.SessionID, user domain.UserID) *fakeConn {
	conn := newFakeConn()
	sess := core.NewMemberSession(&domain.Identity{ID: user, DisplayName: string(user)}, conn)
	p.Bind(sid, sess, nil)
	return conn
}

func TestPresenceBindRoomOncePerConnection(t *testing.T) {
	p := NewPresence()
	bindTestSession(p, "s1", "alice")

	require.NoError(t, p.BindRoom("s1", "jazz-night"))

	err := p.BindRoom("s1", "go-meetup")
	require.Error(t, err)
	assert.Equal(t, core.KindConflict, core.KindOf(err), "a connection may hold at most one room")

	room, ok := p.RoomOf("s1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomName("jazz-night"), room)
}

func TestPresenceBindRoomWithoutSession(t *testing.T) {
	p := NewPresence()
	err := p.BindRoom("ghost", "jazz-night")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestPresenceClearRoomKeepsSession(t *testing.T) {
	p := NewPresence()
	bindTestSession(p, "s1", "alice")
	require.NoError(t, p.BindRoom("s1", "jazz-night"))

	p.ClearRoom("s1")

	_, ok := p.RoomOf("s1")
	assert.False(t, ok)
	_, ok = p.SessionOf("s1")
	assert.True(t, ok, "clearing the room must not drop the connection")
	require.NoError(t, p.BindRoom("s1", "go-meetup"))
}

func TestPresenceConnectionsInRoom(t *testing.T) {
	p := NewPresence()
	bindTestSession(p, "s1", "alice")
	bindTestSession(p, "s2", "bob")
	bindTestSession(p, "s3", "carol")
	require.NoError(t, p.BindRoom("s1", "jazz-night"))
	require.NoError(t, p.BindRoom("s2", "jazz-night"))
	require.NoError(t, p.BindRoom("s3", "go-meetup"))

	snaps := p.ConnectionsInRoom("jazz-night")
	assert.Len(t, snaps, 2)
}

func TestPresenceByUser(t *testing.T) {
	p := NewPresence()
	bindTestSession(p, "s1", "alice")

	sid, sess, ok := p.ByUser("alice")
	require.True(t, ok)
	assert.Equal(t, core.SessionID("s1"), sid)
	assert.Equal(t, domain.UserID("alice"), sess.Meta().ID)

	p.Unbind("s1")
	_, _, ok = p.ByUser("alice")
	assert.False(t, ok)
}

// An older connection of the same user must not clobber the newer
// one's identity mapping when it goes away.
func TestPresenceUnbindStaleConnection(t *testing.T) {
	p := NewPresence()
	bindTestSession(p, "old", "alice")
	bindTestSession(p, "new", "alice")

	p.Unbind("old")

	sid, _, ok := p.ByUser("alice")
	require.True(t, ok)
	assert.Equal(t, core.SessionID("new"), sid)
}
