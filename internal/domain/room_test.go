package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	admin := Identity{ID: "alice", DisplayName: "Alice"}
	room, err := NewRoom("friday-jazz", "music", VisibilityPublic, admin, time.Hour)
	require.NoError(t, err)
	return room
}

func TestNewRoomValidation(t *testing.T) {
	admin := Identity{ID: "alice"}

	_, err := NewRoom("abc", "music", VisibilityPublic, admin, time.Hour)
	assert.ErrorIs(t, err, ErrRoomNameTooShort)

	long := RoomName(make([]byte, MaxRoomNameLen+1))
	_, err = NewRoom(long, "music", VisibilityPublic, admin, time.Hour)
	assert.ErrorIs(t, err, ErrRoomNameTooLong)

	_, err = NewRoom("friday-jazz", "", VisibilityPublic, admin, time.Hour)
	assert.ErrorIs(t, err, ErrCategoryEmpty)

	_, err = NewRoom("friday-jazz", "music", "secret", admin, time.Hour)
	assert.ErrorIs(t, err, ErrBadVisibility)
}

func TestRoleTransitionsKeepSetsDisjoint(t *testing.T) {
	room := newTestRoom(t)
	room.Audience = append(room.Audience, Identity{ID: "bob"}, Identity{ID: "carol"})

	require.True(t, room.PromoteToBroadcaster("bob"))
	role, ok := room.RoleOf("bob")
	require.True(t, ok)
	assert.Equal(t, RoleBroadcaster, role)
	assert.Len(t, room.Audience, 1)
	assert.Len(t, room.Broadcasters, 1)

	assert.False(t, room.PromoteToBroadcaster("bob"), "a broadcaster is no longer promotable")
	assert.False(t, room.DemoteToAudience("carol"), "carol never left the audience")

	require.True(t, room.DemoteToAudience("bob"))
	assert.Empty(t, room.Broadcasters)
	assert.Len(t, room.Audience, 2)
}

func TestRoleOfAdmin(t *testing.T) {
	room := newTestRoom(t)
	role, ok := room.RoleOf("alice")
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	assert.False(t, room.RemoveMember("alice"), "the admin is not removable through membership")
	_, ok = room.RoleOf("nobody")
	assert.False(t, ok)
}

func TestCloneIsolation(t *testing.T) {
	room := newTestRoom(t)
	room.Audience = append(room.Audience, Identity{ID: "bob"})
	deadline := time.Now().Add(time.Minute)
	room.AdminGraceDeadline = &deadline

	cp := room.Clone()
	cp.Audience[0].ID = "mallory"
	*cp.AdminGraceDeadline = cp.AdminGraceDeadline.Add(time.Hour)

	assert.Equal(t, UserID("bob"), room.Audience[0].ID)
	assert.Equal(t, deadline, *room.AdminGraceDeadline)
}
