package core

import (
	"context"

	"github.com/mkamel/airwave/internal/domain"
)

// RoomRegistry is the single source of truth for room membership and
// activation. All mutations are conditional: Update compares the room's
// Version against the stored one and fails with a conflict when another
// writer got there first, so handlers never do read-modify-write in
// local memory.
type RoomRegistry interface {
	// Create inserts the room if no room with the same name exists.
	Create(ctx context.Context, room *domain.Room) error
	// Get returns a copy of the room.
	Get(ctx context.Context, name domain.RoomName) (*domain.Room, error)
	// ByAdmin returns a copy of the room the identity administers.
	ByAdmin(ctx context.Context, admin domain.UserID) (*domain.Room, error)
	// ByMember returns a copy of the room whose membership holds the
	// identity in any role, admin included. An identity belongs to at
	// most one room, which is what makes this lookup well defined.
	ByMember(ctx context.Context, id domain.UserID) (*domain.Room, error)
	// Update applies the room iff its Version matches the stored entry.
	// The stored version is bumped on success.
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, name domain.RoomName) error
	// DeleteIf removes the room only while its stored Version still
	// matches; a writer that committed in between turns the delete into
	// a conflict instead of silently discarding their update.
	DeleteIf(ctx context.Context, name domain.RoomName, version uint64) error
	List(ctx context.Context) ([]*domain.Room, error)
}
