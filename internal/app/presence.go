package app

import (
	"context"
	"sync"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	RoomName domain.RoomName
	Session  core.MemberSession
	Cancel   context.CancelFunc
}

// Presence maps live connections to identities and their current room.
// It is purely in-process and never a source of truth for membership,
// only for fast fan-out addressing.
type Presence struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	byUser   map[domain.UserID]core.SessionID
}

func NewPresence() *Presence {
	return &Presence{
		sessions: make(map[core.SessionID]*sessionEntry),
		byUser:   make(map[domain.UserID]core.SessionID),
	}
}

// Bind registers a freshly authenticated connection.
func (p *Presence) Bind(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	p.byUser[sess.Meta().ID] = sid
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Str("user", string(sess.Meta().ID)).Msg("bound session")
}

// BindRoom attaches the connection to a room. A connection may be bound
// to at most one room at a time.
func (p *Presence) BindRoom(sid core.SessionID, name domain.RoomName) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.sessions[sid]
	if !ok {
		return core.NotFoundf("no live session")
	}
	if entry.RoomName != "" {
		return core.Conflictf("you are already in room %q", entry.RoomName)
	}
	entry.RoomName = name
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Str("room", string(name)).Msg("bound room")
	return nil
}

// ClearRoom detaches the connection from its room without dropping the
// session itself.
func (p *Presence) ClearRoom(sid core.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.sessions[sid]; ok {
		entry.RoomName = ""
	}
}

func (p *Presence) Unbind(sid core.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.sessions[sid]; ok {
		if cur, live := p.byUser[entry.Session.Meta().ID]; live && cur == sid {
			delete(p.byUser, entry.Session.Meta().ID)
		}
	}
	delete(p.sessions, sid)
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("unbound session")
}

func (p *Presence) SessionOf(sid core.SessionID) (core.MemberSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// RoomOf returns the room the connection is currently bound to.
func (p *Presence) RoomOf(sid core.SessionID) (domain.RoomName, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.sessions[sid]
	if !ok || entry.RoomName == "" {
		return "", false
	}
	return entry.RoomName, true
}

// ByUser finds the live connection of an identity, if any.
func (p *Presence) ByUser(id domain.UserID) (core.SessionID, core.MemberSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sid, ok := p.byUser[id]
	if !ok {
		return "", nil, false
	}
	entry, ok := p.sessions[sid]
	if !ok {
		return "", nil, false
	}
	return sid, entry.Session, true
}

type presenceSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

// ConnectionsInRoom snapshots the connections bound to a room for
// fan-out.
func (p *Presence) ConnectionsInRoom(name domain.RoomName) []presenceSnap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]presenceSnap, 0, len(p.sessions))
	for sid, e := range p.sessions {
		if e.RoomName == name {
			out = append(out, presenceSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

// Cancel fires the connection's cancel func, tearing down its pumps.
func (p *Presence) Cancel(sid core.SessionID) bool {
	p.mu.RLock()
	e, ok := p.sessions[sid]
	p.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("canceled session")
	return true
}
