package core

import (
	"context"
	"sync"

	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

// memRegistry is a threadsafe in-memory registry. Every read hands out
// a clone; Update is a compare-and-swap on the room version.
type memRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]*domain.Room
}

func NewMemRegistry() RoomRegistry {
	return &memRegistry{rooms: make(map[domain.RoomName]*domain.Room)}
}

func (r *memRegistry) Create(_ context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.Name]; ok {
		return Conflictf("room name %q is already taken", room.Name)
	}
	cp := room.Clone()
	cp.Version = 1
	r.rooms[room.Name] = cp
	room.Version = cp.Version
	log.Info().Str("module", "core.registry").Str("room", string(room.Name)).Msg("room created")
	return nil
}

func (r *memRegistry) Get(_ context.Context, name domain.RoomName) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	if !ok {
		return nil, NotFoundf("room %q not found", name)
	}
	return room.Clone(), nil
}

func (r *memRegistry) ByAdmin(_ context.Context, admin domain.UserID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, room := range r.rooms {
		if room.Admin.ID == admin {
			return room.Clone(), nil
		}
	}
	return nil, NotFoundf("no room administered by this user")
}

func (r *memRegistry) ByMember(_ context.Context, id domain.UserID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, room := range r.rooms {
		if _, ok := room.RoleOf(id); ok {
			return room.Clone(), nil
		}
	}
	return nil, NotFoundf("user is not in any room")
}

func (r *memRegistry) Update(_ context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rooms[room.Name]
	if !ok {
		return NotFoundf("room %q not found", room.Name)
	}
	if stored.Version != room.Version {
		return Conflictf("room %q was modified concurrently", room.Name)
	}
	cp := room.Clone()
	cp.Version = stored.Version + 1
	r.rooms[room.Name] = cp
	room.Version = cp.Version
	return nil
}

func (r *memRegistry) Delete(_ context.Context, name domain.RoomName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[name]; !ok {
		return NotFoundf("room %q not found", name)
	}
	delete(r.rooms, name)
	log.Info().Str("module", "core.registry").Str("room", string(name)).Msg("room deleted")
	return nil
}

func (r *memRegistry) DeleteIf(_ context.Context, name domain.RoomName, version uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rooms[name]
	if !ok {
		return NotFoundf("room %q not found", name)
	}
	if stored.Version != version {
		return Conflictf("room %q was modified concurrently", name)
	}
	delete(r.rooms, name)
	log.Info().Str("module", "core.registry").Str("room", string(name)).Msg("room deleted")
	return nil
}

func (r *memRegistry) List(_ context.Context) ([]*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Clone())
	}
	return out, nil
}
