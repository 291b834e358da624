package app

import (
	"context"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

// Promote moves the target from audience to broadcasters. Only the
// room's current admin may call it; the admin check runs inside the
// conditional update so a racing admin change cannot slip through.
func (c *Coordinator) Promote(ctx context.Context, sid core.SessionID, target domain.UserID) error {
	return c.changeRole(ctx, sid, target, domain.RoleBroadcaster)
}

// Demote moves the target from broadcasters back to audience.
func (c *Coordinator) Demote(ctx context.Context, sid core.SessionID, target domain.UserID) error {
	return c.changeRole(ctx, sid, target, domain.RoleAudience)
}

func (c *Coordinator) changeRole(ctx context.Context, sid core.SessionID, target domain.UserID, to domain.Role) error {
	ident, err := c.identityOf(sid)
	if err != nil {
		return err
	}
	if target == "" {
		return core.Validationf("target user id is required")
	}
	name, ok := c.presence.RoomOf(sid)
	if !ok {
		return core.Forbiddenf("please, join a room first")
	}

	room, err := c.updateRoom(ctx, name, func(r *domain.Room) error {
		if r.Admin.ID != ident.ID {
			return core.Forbiddenf("you are not the room admin")
		}
		switch to {
		case domain.RoleBroadcaster:
			if !r.PromoteToBroadcaster(target) {
				return core.Conflictf("user is not in the audience list")
			}
		case domain.RoleAudience:
			if !r.DemoteToAudience(target) {
				return core.Conflictf("user is not in the broadcasters list")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.announceRoleChange(room, target, to)
	log.Info().Str("module", "app.coordinator").Str("admin", string(ident.ID)).Str("target", string(target)).Str("role", string(to)).Msg("role changed")
	return nil
}

// StepDown lets a broadcaster give up their slot and return to the
// audience without admin involvement.
func (c *Coordinator) StepDown(ctx context.Context, sid core.SessionID) error {
	ident, err := c.identityOf(sid)
	if err != nil {
		return err
	}
	name, ok := c.presence.RoomOf(sid)
	if !ok {
		return core.Forbiddenf("please, join a room first")
	}

	room, err := c.updateRoom(ctx, name, func(r *domain.Room) error {
		if !r.DemoteToAudience(ident.ID) {
			return core.Conflictf("you are not a broadcaster in this room")
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.announceRoleChange(room, ident.ID, domain.RoleAudience)
	log.Info().Str("module", "app.coordinator").Str("user", string(ident.ID)).Str("room", string(name)).Msg("broadcaster stepped down")
	return nil
}

// AskForPerms relays a member's request for broadcast rights to the
// rest of the room; granting stays an explicit admin promote.
func (c *Coordinator) AskForPerms(ctx context.Context, sid core.SessionID) error {
	ident, err := c.identityOf(sid)
	if err != nil {
		return err
	}
	name, ok := c.presence.RoomOf(sid)
	if !ok {
		return core.Forbiddenf("no room specified")
	}
	room, err := c.registry.Get(ctx, name)
	if err != nil {
		return err
	}
	if _, ok := room.RoleOf(ident.ID); !ok {
		return core.Forbiddenf("you are not in this room")
	}
	c.notify.BroadcastExcept(name, sid, UserEvent{Type: EvtAskedForPerms, User: *ident, Room: name})
	return nil
}

// announceRoleChange fans the typed role transition out to the room and
// hands the affected member a media token matching the new role.
func (c *Coordinator) announceRoleChange(room *domain.Room, target domain.UserID, to domain.Role) {
	var member *domain.Identity
	for _, m := range room.Members() {
		if m.ID == target {
			member = &m
			break
		}
	}
	if member == nil {
		return
	}

	evt := EvtToAudience
	tokenEvt := EvtAudienceToken
	mediaRole := core.MediaSubscriber
	if to == domain.RoleBroadcaster {
		evt = EvtToBroadcaster
		tokenEvt = EvtBroadcasterToken
		mediaRole = core.MediaPublisher
	}

	c.notify.BroadcastRoom(room.Name, RoleChangeEvent{Type: evt, User: *member, Role: to, Room: room.Name})

	token, err := c.tokens.Issue(room.Name, member.MediaUID, mediaRole)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("room", string(room.Name)).Msg("role token issue")
		return
	}
	c.notify.SendToUser(target, TokenEvent{Type: tokenEvt, Token: token})
}
