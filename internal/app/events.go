package app

import (
	"encoding/json"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbound event names. Clients switch on the "type" field.
const (
	EvtCreateRoomSuccess    = "createRoomSuccess"
	EvtJoinRoomSuccess      = "joinRoomSuccess"
	EvtAdminRejoinedSuccess = "adminRejoinedSuccess"
	EvtUserJoined           = "userJoined"
	EvtUserLeft             = "userLeft"
	EvtToBroadcaster        = "userChangedToBroadcaster"
	EvtToAudience           = "userChangedToAudience"
	EvtAdminLeft            = "adminLeft"
	EvtRoomEnded            = "roomEnded"
	EvtBroadcasterToken     = "broadcasterToken"
	EvtAudienceToken        = "audienceToken"
	EvtAskedForPerms        = "userAskedForPerms"
	EvtMessage              = "message"
	EvtMessageSent          = "sendMessageSuccess"
	EvtMessageRemoved       = "messageRemoved"
	EvtRemoveSuccess        = "removeMessageSuccess"
	EvtChatHistory          = "chatHistory"
	EvtError                = "errorMessage"
)

// RoomEvent carries a full room snapshot plus the caller's media token.
type RoomEvent struct {
	Type  string       `json:"type"`
	Room  *domain.Room `json:"room"`
	Token string       `json:"token"`
}

// UserEvent announces a member arriving or leaving.
type UserEvent struct {
	Type string          `json:"type"`
	User domain.Identity `json:"user"`
	Room domain.RoomName `json:"room"`
}

// RoleChangeEvent is the explicit role-transition payload.
type RoleChangeEvent struct {
	Type string          `json:"type"`
	User domain.Identity `json:"user"`
	Role domain.Role     `json:"role"`
	Room domain.RoomName `json:"room"`
}

// TokenEvent delivers a freshly issued media token to one member.
type TokenEvent struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type RoomEndedEvent struct {
	Type string          `json:"type"`
	Room domain.RoomName `json:"room"`
}

type MessageEvent struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message"`
}

type ChatHistoryEvent struct {
	Type     string            `json:"type"`
	Room     domain.RoomName   `json:"room"`
	Messages []*domain.Message `json:"messages"`
}

type ErrorEvent struct {
	Type   string    `json:"type"`
	Kind   core.Kind `json:"kind"`
	Reason string    `json:"reason"`
}

// NewErrorEvent converts an operation error into the single errorMessage
// notification sent to the originating connection.
func NewErrorEvent(err error) ErrorEvent {
	return ErrorEvent{Type: EvtError, Kind: core.KindOf(err), Reason: err.Error()}
}

// Notifier addresses events to live connections through the presence
// directory. Delivery is best effort; slow consumers are dropped by the
// connection's own backpressure, never waited on.
type Notifier struct {
	Presence *Presence
}

func (n *Notifier) send(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.notify").Msg("event marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.notify").Msg("event dropped")
	}
}

// SendTo delivers an event to one connection.
func (n *Notifier) SendTo(sid core.SessionID, v any) {
	sess, ok := n.Presence.SessionOf(sid)
	if !ok {
		return
	}
	n.send(sess.Signal(), v)
}

// SendToUser delivers an event to an identity's live connection, if any.
func (n *Notifier) SendToUser(id domain.UserID, v any) bool {
	_, sess, ok := n.Presence.ByUser(id)
	if !ok {
		return false
	}
	n.send(sess.Signal(), v)
	return true
}

// BroadcastRoom fans an event out to every connection bound to the room.
func (n *Notifier) BroadcastRoom(name domain.RoomName, v any) {
	for _, snap := range n.Presence.ConnectionsInRoom(name) {
		n.send(snap.Session.Signal(), v)
	}
}

// BroadcastExcept fans out to the room skipping one connection,
// normally the event's originator.
func (n *Notifier) BroadcastExcept(name domain.RoomName, except core.SessionID, v any) {
	for _, snap := range n.Presence.ConnectionsInRoom(name) {
		if snap.SID == except {
			continue
		}
		n.send(snap.Session.Signal(), v)
	}
}
