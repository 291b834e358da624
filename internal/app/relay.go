package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay validates, persists and fans out room chat. Visibility rules:
// public messages reach every connection in the room, private ones only
// the resolved recipient; the sender always gets an acknowledgment.
type Relay struct {
	Registry core.RoomRegistry
	Presence *Presence
	Messages core.MessageStore
	Notify   *Notifier
}

func NewRelay(registry core.RoomRegistry, presence *Presence, messages core.MessageStore, notify *Notifier) *Relay {
	return &Relay{Registry: registry, Presence: presence, Messages: messages, Notify: notify}
}

type SendParams struct {
	Body       string
	Visibility domain.Visibility
	To         domain.UserID
}

func (rl *Relay) senderInRoom(ctx context.Context, sid core.SessionID) (*domain.Identity, *domain.Room, error) {
	sess, ok := rl.Presence.SessionOf(sid)
	if !ok {
		return nil, nil, core.NotFoundf("no live session")
	}
	name, ok := rl.Presence.RoomOf(sid)
	if !ok {
		return nil, nil, core.Forbiddenf("please, join a room first")
	}
	room, err := rl.Registry.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	ident := sess.Meta()
	if _, ok := room.RoleOf(ident.ID); !ok {
		return nil, nil, core.Forbiddenf("you are not in this room, join it first")
	}
	return ident, room, nil
}

// Send validates the message against the sender's current room, stores
// it and fans it out. A private message addressed to the sender is
// normalized to have no visible recipient before it is persisted.
func (rl *Relay) Send(ctx context.Context, sid core.SessionID, p SendParams) error {
	if err := domain.ValidateMessageBody(p.Body); err != nil {
		return core.Validationf("%s", err)
	}
	if p.Visibility == "" {
		p.Visibility = domain.VisibilityPublic
	}
	if p.Visibility != domain.VisibilityPublic && p.Visibility != domain.VisibilityPrivate {
		return core.Validationf("message visibility must be public or private")
	}

	ident, room, err := rl.senderInRoom(ctx, sid)
	if err != nil {
		return err
	}

	// Self-addressed collapses to "no addressee shown".
	var recipient *domain.Identity
	if p.To != "" && p.To != ident.ID {
		found := false
		for _, m := range room.Members() {
			if m.ID == p.To {
				cp := m
				recipient = &cp
				found = true
				break
			}
		}
		if !found {
			return core.NotFoundf("recipient is not in this room")
		}
	}

	msg := &domain.Message{
		ID:         domain.MessageID(uuid.NewString()),
		RoomID:     room.ID,
		RoomName:   room.Name,
		Sender:     *ident,
		Recipient:  recipient,
		Body:       p.Body,
		Visibility: p.Visibility,
	}
	if err := rl.Messages.Append(ctx, msg); err != nil {
		return core.Externalf("can't store the message: %s", err)
	}

	rl.fanOut(room.Name, sid, msg, EvtMessage)
	rl.Notify.SendTo(sid, MessageEvent{Type: EvtMessageSent, Message: msg})
	log.Debug().Str("module", "app.relay").Str("room", string(room.Name)).Str("visibility", string(msg.Visibility)).Msg("message sent")
	return nil
}

// Remove deletes the sender's own message and fans a removal notice out
// under the same visibility rule the original message had.
func (rl *Relay) Remove(ctx context.Context, sid core.SessionID, id domain.MessageID) error {
	if id == "" {
		return core.Validationf("message id is required")
	}
	ident, room, err := rl.senderInRoom(ctx, sid)
	if err != nil {
		return err
	}

	msg, err := rl.Messages.Get(ctx, id)
	if err != nil {
		return err
	}
	if msg.RoomID != room.ID {
		return core.NotFoundf("message not found")
	}
	if msg.Sender.ID != ident.ID {
		return core.Forbiddenf("you can only remove your own messages")
	}
	if err := rl.Messages.Delete(ctx, id); err != nil {
		return err
	}

	rl.fanOut(room.Name, sid, msg, EvtMessageRemoved)
	rl.Notify.SendTo(sid, MessageEvent{Type: EvtRemoveSuccess, Message: msg})
	log.Debug().Str("module", "app.relay").Str("room", string(room.Name)).Str("message", string(id)).Msg("message removed")
	return nil
}

func (rl *Relay) fanOut(name domain.RoomName, from core.SessionID, msg *domain.Message, evt string) {
	if msg.Visibility == domain.VisibilityPrivate {
		if msg.Recipient != nil {
			rl.Notify.SendToUser(msg.Recipient.ID, MessageEvent{Type: evt, Message: msg})
		}
		return
	}
	rl.Notify.BroadcastExcept(name, from, MessageEvent{Type: evt, Message: msg})
}

// History returns the chat the caller may see in their current room.
func (rl *Relay) History(ctx context.Context, sid core.SessionID) (domain.RoomName, []*domain.Message, error) {
	ident, room, err := rl.senderInRoom(ctx, sid)
	if err != nil {
		return "", nil, err
	}
	msgs, err := rl.Messages.History(ctx, room.ID, ident.ID)
	if err != nil {
		return "", nil, err
	}
	return room.Name, msgs, nil
}

// HistoryFor is the HTTP-facing variant: the viewer is identified by
// token, the room by name.
func (rl *Relay) HistoryFor(ctx context.Context, viewer domain.UserID, name domain.RoomName) ([]*domain.Message, error) {
	room, err := rl.Registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return rl.Messages.History(ctx, room.ID, viewer)
}
