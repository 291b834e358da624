package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mkamel/airwave/internal/domain"
)

// MessageStore keeps room chat for a short TTL. There is no permanent
// chat history; expired messages vanish without a removal notice.
type MessageStore interface {
	// Append stamps CreatedAt/ExpiresAt and stores the message.
	Append(ctx context.Context, msg *domain.Message) error
	Get(ctx context.Context, id domain.MessageID) (*domain.Message, error)
	Delete(ctx context.Context, id domain.MessageID) error
	// History returns unexpired messages the viewer may see: public
	// ones plus private ones sent by or addressed to the viewer.
	History(ctx context.Context, roomID domain.RoomID, viewer domain.UserID) ([]*domain.Message, error)
	// DeleteRoom drops all chat for an ended room.
	DeleteRoom(ctx context.Context, roomID domain.RoomID) error
}

type memMessageStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	messages map[domain.MessageID]*domain.Message
	now      func() time.Time
}

func NewMemMessageStore(ttl time.Duration) MessageStore {
	return &memMessageStore{
		ttl:      ttl,
		messages: make(map[domain.MessageID]*domain.Message),
		now:      time.Now,
	}
}

// sweep drops expired entries. Caller holds the lock.
func (s *memMessageStore) sweep(now time.Time) {
	for id, msg := range s.messages {
		if now.After(msg.ExpiresAt) {
			delete(s.messages, id)
		}
	}
}

func (s *memMessageStore) Append(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	msg.CreatedAt = now
	msg.ExpiresAt = now.Add(s.ttl)
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *memMessageStore) Get(_ context.Context, id domain.MessageID) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok || s.now().After(msg.ExpiresAt) {
		return nil, NotFoundf("message not found")
	}
	cp := *msg
	return &cp, nil
}

func (s *memMessageStore) Delete(_ context.Context, id domain.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return NotFoundf("message not found")
	}
	delete(s.messages, id)
	return nil
}

func (s *memMessageStore) History(_ context.Context, roomID domain.RoomID, viewer domain.UserID) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.now())
	out := make([]*domain.Message, 0)
	for _, msg := range s.messages {
		if msg.RoomID != roomID {
			continue
		}
		if msg.Visibility == domain.VisibilityPrivate {
			addressee := domain.UserID("")
			if msg.Recipient != nil {
				addressee = msg.Recipient.ID
			}
			if msg.Sender.ID != viewer && addressee != viewer {
				continue
			}
		}
		cp := *msg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memMessageStore) DeleteRoom(_ context.Context, roomID domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, msg := range s.messages {
		if msg.RoomID == roomID {
			delete(s.messages, id)
		}
	}
	return nil
}
