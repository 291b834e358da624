package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type (
	RoomName string
	RoomID   string
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleBroadcaster Role = "broadcaster"
	RoleAudience    Role = "audience"
)

const (
	MinRoomNameLen = 5
	MaxRoomNameLen = 60
)

var (
	ErrRoomNameTooShort = errors.New("room name must be at least 5 characters")
	ErrRoomNameTooLong  = errors.New("room name must be at most 60 characters")
	ErrCategoryEmpty    = errors.New("category is required")
	ErrBadVisibility    = errors.New("visibility must be public or private")
)

// Room is one live audio session. Membership sets are disjoint and the
// admin is never part of either. Version is bumped by the registry on
// every successful conditional update.
type Room struct {
	ID           RoomID     `json:"id"`
	Name         RoomName   `json:"name"`
	Category     string     `json:"category"`
	Visibility   Visibility `json:"visibility"`
	Admin        Identity   `json:"admin"`
	Broadcasters []Identity `json:"broadcasters"`
	Audience     []Identity `json:"audience"`
	Activated    bool       `json:"activated"`
	Recording    bool       `json:"recording"`

	CreatedAt           time.Time  `json:"createdAt"`
	MaxLifetimeDeadline time.Time  `json:"maxLifetimeDeadline"`
	AdminGraceDeadline  *time.Time `json:"adminGraceDeadline,omitempty"`

	Version uint64 `json:"-"`
}

func NewRoom(name RoomName, category string, visibility Visibility, admin Identity, lifetime time.Duration) (*Room, error) {
	if len(name) < MinRoomNameLen {
		return nil, ErrRoomNameTooShort
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	if category == "" {
		return nil, ErrCategoryEmpty
	}
	if visibility != VisibilityPublic && visibility != VisibilityPrivate {
		return nil, ErrBadVisibility
	}
	now := time.Now()
	return &Room{
		ID:                  RoomID(uuid.NewString()),
		Name:                name,
		Category:            category,
		Visibility:          visibility,
		Admin:               admin,
		Activated:           true,
		CreatedAt:           now,
		MaxLifetimeDeadline: now.Add(lifetime),
	}, nil
}

// RoleOf reports the member's current role, or false if the identity is
// not part of the room at all.
func (r *Room) RoleOf(id UserID) (Role, bool) {
	if r.Admin.ID == id {
		return RoleAdmin, true
	}
	for _, m := range r.Broadcasters {
		if m.ID == id {
			return RoleBroadcaster, true
		}
	}
	for _, m := range r.Audience {
		if m.ID == id {
			return RoleAudience, true
		}
	}
	return "", false
}

// Members returns admin, broadcasters and audience as one flat list.
func (r *Room) Members() []Identity {
	out := make([]Identity, 0, 1+len(r.Broadcasters)+len(r.Audience))
	out = append(out, r.Admin)
	out = append(out, r.Broadcasters...)
	out = append(out, r.Audience...)
	return out
}

// Clone returns a deep copy so callers can mutate membership before a
// conditional update without racing readers.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Broadcasters = append([]Identity(nil), r.Broadcasters...)
	cp.Audience = append([]Identity(nil), r.Audience...)
	if r.AdminGraceDeadline != nil {
		t := *r.AdminGraceDeadline
		cp.AdminGraceDeadline = &t
	}
	return &cp
}

func removeByID(list []Identity, id UserID) ([]Identity, bool) {
	for i, m := range list {
		if m.ID == id {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}

// PromoteToBroadcaster moves the identity from audience to broadcasters.
// False means the identity was not in the audience set.
func (r *Room) PromoteToBroadcaster(id UserID) bool {
	var target *Identity
	for i := range r.Audience {
		if r.Audience[i].ID == id {
			target = &r.Audience[i]
			break
		}
	}
	if target == nil {
		return false
	}
	member := *target
	r.Audience, _ = removeByID(r.Audience, id)
	r.Broadcasters = append(r.Broadcasters, member)
	return true
}

// DemoteToAudience moves the identity from broadcasters to audience.
// False means the identity was not in the broadcasters set.
func (r *Room) DemoteToAudience(id UserID) bool {
	var target *Identity
	for i := range r.Broadcasters {
		if r.Broadcasters[i].ID == id {
			target = &r.Broadcasters[i]
			break
		}
	}
	if target == nil {
		return false
	}
	member := *target
	r.Broadcasters, _ = removeByID(r.Broadcasters, id)
	r.Audience = append(r.Audience, member)
	return true
}

// RemoveMember drops the identity from whichever non-admin set holds it.
func (r *Room) RemoveMember(id UserID) bool {
	var ok bool
	if r.Audience, ok = removeByID(r.Audience, id); ok {
		return true
	}
	r.Broadcasters, ok = removeByID(r.Broadcasters, id)
	return ok
}
