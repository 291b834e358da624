package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame handed to it so tests can assert on the
// decoded event stream. Timer callbacks deliver from other goroutines,
// hence the lock.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{} }

func (f *fakeConn) TrySend(frame core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// events decodes every recorded frame into a generic map keyed by the
// wire field names.
func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, frame := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(frame, &m))
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range f.events(t) {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeConn) lastOfType(t *testing.T, typ string) map[string]any {
	t.Helper()
	evts := f.eventsOfType(t, typ)
	require.NotEmpty(t, evts, "expected at least one %q event", typ)
	return evts[len(evts)-1]
}

func (f *fakeConn) waitForType(t *testing.T, typ string, d time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if evts := f.eventsOfType(t, typ); len(evts) > 0 {
			return evts[len(evts)-1]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %q event within %s", typ, d)
	return nil
}

// fakeIssuer mints deterministic tokens and can be switched to fail.
type fakeIssuer struct {
	fail bool
}

func (f *fakeIssuer) Issue(room domain.RoomName, uid uint32, role core.MediaRole) (string, error) {
	if f.fail {
		return "", fmt.Errorf("issuer unavailable")
	}
	return fmt.Sprintf("%s/%d/%s", room, uid, role), nil
}

// fixture wires a coordinator and relay over in-memory collaborators
// with timers short enough to observe in a test.
type fixture struct {
	registry core.RoomRegistry
	presence *Presence
	messages core.MessageStore
	issuer   *fakeIssuer
	coord    *Coordinator
	relay    *Relay
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		registry: core.NewMemRegistry(),
		presence: NewPresence(),
		messages: core.NewMemMessageStore(time.Minute),
		issuer:   &fakeIssuer{},
	}
	fx.coord = NewCoordinator(CoordinatorConfig{
		Registry:     fx.registry,
		Presence:     fx.presence,
		Guard:        core.NewPendingGuard(0),
		Messages:     fx.messages,
		Tokens:       fx.issuer,
		Categories:   []string{"music", "tech"},
		RoomLifetime: time.Hour,
		AdminGrace:   40 * time.Millisecond,
	})
	fx.relay = NewRelay(fx.registry, fx.presence, fx.messages, fx.coord.Notifier())
	return fx
}

var nextUID uint32

// connect registers a live session for the user and returns its
// connection and session id.
func (fx *fixture) connect(user domain.UserID) (core.SessionID, *fakeConn) {
	sid := core.SessionID("sid-" + string(user))
	return sid, fx.connectOn(sid, user)
}

// connectOn binds a session under an explicit session id, for tests
// running the same identity over several connections.
func (fx *fixture) connectOn(sid core.SessionID, user domain.UserID) *fakeConn {
	nextUID++
	conn := newFakeConn()
	ident := &domain.Identity{ID: user, DisplayName: string(user), MediaUID: nextUID}
	fx.presence.Bind(sid, core.NewMemberSession(ident, conn), nil)
	return conn
}

func (fx *fixture) mustCreate(t *testing.T, sid core.SessionID, name domain.RoomName) {
	t.Helper()
	require.NoError(t, fx.coord.CreateRoom(context.Background(), sid, CreateRoomParams{
		Name:       name,
		Category:   "music",
		Visibility: domain.VisibilityPublic,
	}))
}

func (fx *fixture) mustJoin(t *testing.T, sid core.SessionID, name domain.RoomName) {
	t.Helper()
	require.NoError(t, fx.coord.JoinRoom(context.Background(), sid, name))
}
