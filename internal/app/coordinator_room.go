package app

import (
	"context"
	"time"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

type CreateRoomParams struct {
	Name       domain.RoomName
	Category   string
	Visibility domain.Visibility
	Recording  bool
}

// CreateRoom inserts a new active room with the caller as admin, arms
// the max-lifetime timer and answers with the room snapshot plus a
// publisher media token.
func (c *Coordinator) CreateRoom(ctx context.Context, sid core.SessionID, p CreateRoomParams) error {
	ident, err := c.identityOf(sid)
	if err != nil {
		return err
	}
	if !c.guard.TryAcquire(ident.ID) {
		return core.Forbiddenf("another create or join request from you is still in flight")
	}
	defer c.guard.Release(ident.ID)

	if name, ok := c.presence.RoomOf(sid); ok {
		return core.Conflictf("you are already in room %q", name)
	}
	if existing, err := c.registry.ByAdmin(ctx, ident.ID); err == nil {
		return core.Conflictf("there is a room you created already: %q", existing.Name)
	} else if !core.IsKind(err, core.KindNotFound) {
		return err
	}
	// One room per identity, across all of its connections.
	if existing, err := c.registry.ByMember(ctx, ident.ID); err == nil {
		return core.Conflictf("you are already in room %q", existing.Name)
	} else if !core.IsKind(err, core.KindNotFound) {
		return err
	}
	if !c.categoryAllowed(p.Category) {
		return core.Validationf("there is no category with name %q", p.Category)
	}

	room, err := domain.NewRoom(p.Name, p.Category, p.Visibility, *ident, c.lifetime)
	if err != nil {
		return core.Validationf("%s", err)
	}
	room.Recording = p.Recording

	if err := c.registry.Create(ctx, room); err != nil {
		return err
	}
	if err := c.presence.BindRoom(sid, room.Name); err != nil {
		_ = c.registry.Delete(ctx, room.Name)
		return err
	}
	c.armLifetime(room.Name, time.Until(room.MaxLifetimeDeadline))

	token, err := c.tokens.Issue(room.Name, ident.MediaUID, core.MediaPublisher)
	if err != nil {
		c.presence.ClearRoom(sid)
		c.stopTimers(room.Name)
		_ = c.registry.Delete(ctx, room.Name)
		return core.Externalf("media token issuer: %s", err)
	}

	c.notify.SendTo(sid, RoomEvent{Type: EvtCreateRoomSuccess, Room: room, Token: token})
	log.Info().Str("module", "app.coordinator").Str("user", string(ident.ID)).Str("room", string(room.Name)).Msg("room created")
	return nil
}

// JoinRoom atomically adds the caller to the room's audience and tells
// the rest of the room about the arrival.
func (c *Coordinator) JoinRoom(ctx context.Context, sid core.SessionID, name domain.RoomName) error {
	ident, err := c.identityOf(sid)
	if err != nil {
		return err
	}
	if !c.guard.TryAcquire(ident.ID) {
		return core.Forbiddenf("another create or join request from you is still in flight")
	}
	defer c.guard.Release(ident.ID)

	if bound, ok := c.presence.RoomOf(sid); ok {
		return core.Conflictf("you are already in room %q", bound)
	}
	// Membership is identity-wide, not per connection: a second browser
	// of the same user must not land in a second room.
	if existing, err := c.registry.ByMember(ctx, ident.ID); err == nil {
		if existing.Name == name {
			return core.Conflictf("you tried to join room %q twice", name)
		}
		return core.Conflictf("you are already in room %q", existing.Name)
	} else if !core.IsKind(err, core.KindNotFound) {
		return err
	}

	room, err := c.updateRoom(ctx, name, func(r *domain.Room) error {
		if _, ok := r.RoleOf(ident.ID); ok {
			return core.Conflictf("you tried to join room %q twice", name)
		}
		r.Audience = append(r.Audience, *ident)
		return nil
	})
	if err != nil {
		return err
	}
	if err := c.presence.BindRoom(sid, name); err != nil {
		_, _ = c.updateRoom(ctx, name, func(r *domain.Room) error {
			r.RemoveMember(ident.ID)
			return nil
		})
		return err
	}

	token, err := c.tokens.Issue(name, ident.MediaUID, core.MediaSubscriber)
	if err != nil {
		c.presence.ClearRoom(sid)
		_, _ = c.updateRoom(ctx, name, func(r *domain.Room) error {
			r.RemoveMember(ident.ID)
			return nil
		})
		return core.Externalf("media token issuer: %s", err)
	}

	c.notify.SendTo(sid, RoomEvent{Type: EvtJoinRoomSuccess, Room: room, Token: token})
	c.notify.BroadcastExcept(name, sid, UserEvent{Type: EvtUserJoined, User: *ident, Room: name})
	log.Info().Str("module", "app.coordinator").Str("user", string(ident.ID)).Str("room", string(name)).Msg("joined room")
	return nil
}

// AdminRejoin reattaches a returning admin to the room they still own,
// cancelling any pending grace timer. Stale connections of the same
// identity are detached so the snapshot never lists a ghost.
func (c *Coordinator) AdminRejoin(ctx context.Context, sid core.SessionID) error {
	ident, err := c.identityOf(sid)
	if err != nil {
		return err
	}
	owned, err := c.registry.ByAdmin(ctx, ident.ID)
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return core.NotFoundf("no room found that you are admin in it")
		}
		return err
	}
	// Reject before touching room state: a failed rejoin must leave the
	// grace timer running so the room can still be reaped.
	if bound, ok := c.presence.RoomOf(sid); ok && bound != owned.Name {
		return core.Conflictf("you are already in room %q", bound)
	}

	for _, snap := range c.presence.ConnectionsInRoom(owned.Name) {
		if snap.SID != sid && snap.Session.Meta().ID == ident.ID {
			c.presence.ClearRoom(snap.SID)
			c.presence.Cancel(snap.SID)
			log.Info().Str("module", "app.coordinator").Str("sid", string(snap.SID)).Msg("detached ghost admin connection")
		}
	}

	c.cancelGrace(owned.Name)
	room, err := c.updateRoom(ctx, owned.Name, func(r *domain.Room) error {
		r.Activated = true
		r.AdminGraceDeadline = nil
		return nil
	})
	if err != nil {
		return err
	}

	if _, ok := c.presence.RoomOf(sid); !ok {
		if err := c.presence.BindRoom(sid, room.Name); err != nil {
			return err
		}
	}

	token, err := c.tokens.Issue(room.Name, ident.MediaUID, core.MediaPublisher)
	if err != nil {
		return core.Externalf("media token issuer: %s", err)
	}

	c.notify.SendTo(sid, RoomEvent{Type: EvtAdminRejoinedSuccess, Room: room, Token: token})
	log.Info().Str("module", "app.coordinator").Str("user", string(ident.ID)).Str("room", string(room.Name)).Msg("admin rejoined")
	return nil
}

// EndRoom tears the room down if the caller is its admin; anyone else
// is silently ignored.
func (c *Coordinator) EndRoom(ctx context.Context, sid core.SessionID) error {
	ident, err := c.identityOf(sid)
	if err != nil {
		return err
	}
	name, ok := c.presence.RoomOf(sid)
	if !ok {
		return nil
	}
	room, err := c.registry.Get(ctx, name)
	if err != nil {
		return nil
	}
	if room.Admin.ID != ident.ID {
		log.Warn().Str("module", "app.coordinator").Str("user", string(ident.ID)).Str("room", string(name)).Msg("non-admin tried to end room")
		return nil
	}
	c.ensureRoomEnded(ctx, name)
	return nil
}

// Disconnect handles a transport-level drop. An absent admin starts the
// grace window; other members are removed and announced immediately.
func (c *Coordinator) Disconnect(ctx context.Context, sid core.SessionID) {
	sess, ok := c.presence.SessionOf(sid)
	if !ok {
		return
	}
	ident := sess.Meta()
	c.guard.Release(ident.ID)
	defer c.presence.Unbind(sid)

	name, ok := c.presence.RoomOf(sid)
	if !ok {
		return
	}
	room, err := c.registry.Get(ctx, name)
	if err != nil {
		return
	}

	if room.Admin.ID == ident.ID {
		deadline := time.Now().Add(c.grace)
		if _, err := c.updateRoom(ctx, name, func(r *domain.Room) error {
			r.Activated = false
			r.AdminGraceDeadline = &deadline
			return nil
		}); err != nil {
			log.Error().Err(err).Str("module", "app.coordinator").Str("room", string(name)).Msg("deactivate on admin leave")
		}
		c.notify.BroadcastExcept(name, sid, UserEvent{Type: EvtAdminLeft, User: *ident, Room: name})
		c.armGrace(name, c.grace)
		log.Info().Str("module", "app.coordinator").Str("user", string(ident.ID)).Str("room", string(name)).Msg("admin left, grace started")
		return
	}

	if _, err := c.updateRoom(ctx, name, func(r *domain.Room) error {
		r.RemoveMember(ident.ID)
		return nil
	}); err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("room", string(name)).Msg("remove member on disconnect")
	}
	c.notify.BroadcastExcept(name, sid, UserEvent{Type: EvtUserLeft, User: *ident, Room: name})
	log.Info().Str("module", "app.coordinator").Str("user", string(ident.ID)).Str("room", string(name)).Msg("member left room")
}
