package app

import (
	"context"
	"testing"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatFixture seats alice (admin), bob and carol in one room.
func chatFixture(t *testing.T) (*fixture, map[string]core.SessionID, map[string]*fakeConn) {
	t.Helper()
	fx := newFixture(t)
	sids := make(map[string]core.SessionID)
	conns := make(map[string]*fakeConn)

	sids["alice"], conns["alice"] = fx.connect("alice")
	fx.mustCreate(t, sids["alice"], "friday-jazz")
	for _, u := range []string{"bob", "carol"} {
		sids[u], conns[u] = fx.connect(domain.UserID(u))
		fx.mustJoin(t, sids[u], "friday-jazz")
	}
	return fx, sids, conns
}

func TestRelayPublicMessage(t *testing.T) {
	fx, sids, conns := chatFixture(t)

	require.NoError(t, fx.relay.Send(context.Background(), sids["bob"], SendParams{Body: "hello room"}))

	for _, u := range []string{"alice", "carol"} {
		evt := conns[u].lastOfType(t, EvtMessage)
		msg := evt["message"].(map[string]any)
		assert.Equal(t, "hello room", msg["body"])
		assert.Equal(t, "public", msg["visibility"])
		assert.Equal(t, "bob", msg["sender"].(map[string]any)["id"])
	}

	ack := conns["bob"].lastOfType(t, EvtMessageSent)
	assert.Equal(t, "hello room", ack["message"].(map[string]any)["body"])
	assert.Empty(t, conns["bob"].eventsOfType(t, EvtMessage), "sender gets the ack, not the broadcast")
}

func TestRelayPrivateMessageReachesOnlyRecipient(t *testing.T) {
	fx, sids, conns := chatFixture(t)

	require.NoError(t, fx.relay.Send(context.Background(), sids["bob"], SendParams{
		Body: "psst", Visibility: domain.VisibilityPrivate, To: "carol",
	}))

	evt := conns["carol"].lastOfType(t, EvtMessage)
	msg := evt["message"].(map[string]any)
	assert.Equal(t, "psst", msg["body"])
	assert.Equal(t, "carol", msg["recipient"].(map[string]any)["id"])

	assert.Empty(t, conns["alice"].eventsOfType(t, EvtMessage), "private chat must not leak to bystanders")
	conns["bob"].lastOfType(t, EvtMessageSent)
}

func TestRelaySelfAddressedPrivateIsNormalized(t *testing.T) {
	fx, sids, conns := chatFixture(t)

	require.NoError(t, fx.relay.Send(context.Background(), sids["bob"], SendParams{
		Body: "note to self", Visibility: domain.VisibilityPrivate, To: "bob",
	}))

	ack := conns["bob"].lastOfType(t, EvtMessageSent)
	msg := ack["message"].(map[string]any)
	assert.Nil(t, msg["recipient"], "a self-addressed message carries no recipient")
	assert.Empty(t, conns["alice"].eventsOfType(t, EvtMessage))
	assert.Empty(t, conns["carol"].eventsOfType(t, EvtMessage))
}

func TestRelayRecipientOutsideRoom(t *testing.T) {
	fx, sids, _ := chatFixture(t)
	fx.connect("dave") // connected, but never joined

	err := fx.relay.Send(context.Background(), sids["bob"], SendParams{
		Body: "psst", Visibility: domain.VisibilityPrivate, To: "dave",
	})
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestRelaySenderMustBeInARoom(t *testing.T) {
	fx := newFixture(t)
	sid, _ := fx.connect("loner")

	err := fx.relay.Send(context.Background(), sid, SendParams{Body: "anyone?"})
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
}

func TestRelayRejectsEmptyBody(t *testing.T) {
	fx, sids, _ := chatFixture(t)
	err := fx.relay.Send(context.Background(), sids["bob"], SendParams{Body: ""})
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestRelayRemoveOwnMessage(t *testing.T) {
	fx, sids, conns := chatFixture(t)
	require.NoError(t, fx.relay.Send(context.Background(), sids["bob"], SendParams{Body: "oops"}))
	ack := conns["bob"].lastOfType(t, EvtMessageSent)
	id := domain.MessageID(ack["message"].(map[string]any)["id"].(string))

	require.NoError(t, fx.relay.Remove(context.Background(), sids["bob"], id))

	removed := conns["carol"].lastOfType(t, EvtMessageRemoved)
	assert.Equal(t, string(id), removed["message"].(map[string]any)["id"])
	conns["bob"].lastOfType(t, EvtRemoveSuccess)

	_, err := fx.messages.Get(context.Background(), id)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestRelayRemoveSomeoneElsesMessage(t *testing.T) {
	fx, sids, conns := chatFixture(t)
	require.NoError(t, fx.relay.Send(context.Background(), sids["bob"], SendParams{Body: "mine"}))
	ack := conns["bob"].lastOfType(t, EvtMessageSent)
	id := domain.MessageID(ack["message"].(map[string]any)["id"].(string))

	err := fx.relay.Remove(context.Background(), sids["carol"], id)
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
	_, getErr := fx.messages.Get(context.Background(), id)
	assert.NoError(t, getErr)
}

func TestRelayHistoryFiltersByViewer(t *testing.T) {
	fx, sids, _ := chatFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.relay.Send(ctx, sids["bob"], SendParams{Body: "public one"}))
	require.NoError(t, fx.relay.Send(ctx, sids["bob"], SendParams{
		Body: "for carol", Visibility: domain.VisibilityPrivate, To: "carol",
	}))

	name, msgs, err := fx.relay.History(ctx, sids["carol"])
	require.NoError(t, err)
	assert.Equal(t, domain.RoomName("friday-jazz"), name)
	require.Len(t, msgs, 2)

	_, msgs, err = fx.relay.History(ctx, sids["alice"])
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "public one", msgs[0].Body)
}

func TestRelayHistoryForByRoomName(t *testing.T) {
	fx, sids, _ := chatFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.relay.Send(ctx, sids["bob"], SendParams{Body: "public one"}))

	msgs, err := fx.relay.HistoryFor(ctx, "anyone", "friday-jazz")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = fx.relay.HistoryFor(ctx, "anyone", "never-was")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestRoomEndDeletesChat(t *testing.T) {
	fx, sids, conns := chatFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.relay.Send(ctx, sids["bob"], SendParams{Body: "soon gone"}))
	ack := conns["bob"].lastOfType(t, EvtMessageSent)
	id := domain.MessageID(ack["message"].(map[string]any)["id"].(string))

	require.NoError(t, fx.coord.EndRoom(ctx, sids["alice"]))

	_, err := fx.messages.Get(ctx, id)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}
