package core

import (
	"context"

	"github.com/mkamel/airwave/internal/domain"
)

// Frame is a raw outbound payload.
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds an authenticated identity and its transport
// endpoint. This is what the presence directory stores and fans out to.
type MemberSession interface {
	Meta() *domain.Identity
	Signal() SignalConnection
}

type memberSession struct {
	meta *domain.Identity
	conn SignalConnection
}

func NewMemberSession(meta *domain.Identity, conn SignalConnection) MemberSession {
	return &memberSession{meta: meta, conn: conn}
}

func (m *memberSession) Meta() *domain.Identity   { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.conn }

// IdentityProvider resolves a connection credential to a stable
// identity. External collaborator; default impl lives in adapters/auth.
type IdentityProvider interface {
	Authenticate(ctx context.Context, credential string) (*domain.Identity, error)
}

// MediaRole is what the external media transport understands: a
// publisher may transmit audio, a subscriber only receives.
type MediaRole string

const (
	MediaPublisher  MediaRole = "publisher"
	MediaSubscriber MediaRole = "subscriber"
)

// TokenIssuer mints short-lived tokens for the external media
// transport. External collaborator; default impl lives in adapters/media.
type TokenIssuer interface {
	Issue(room domain.RoomName, uid uint32, role MediaRole) (string, error)
}
