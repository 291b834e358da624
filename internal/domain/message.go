package domain

import (
	"errors"
	"time"
)

type MessageID string

const (
	MaxMessageLen = 500
)

var (
	ErrMessageEmpty   = errors.New("message body empty")
	ErrMessageTooLong = errors.New("message body must be at most 500 characters")
)

// Message is one chat utterance scoped to a room. An empty Recipient
// means the message is public (or a self-addressed private message that
// was normalized to have no visible addressee).
type Message struct {
	ID         MessageID  `json:"id"`
	RoomID     RoomID     `json:"roomId"`
	RoomName   RoomName   `json:"roomName"`
	Sender     Identity   `json:"sender"`
	Recipient  *Identity  `json:"recipient,omitempty"`
	Body       string     `json:"body"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

func ValidateMessageBody(body string) error {
	if len(body) == 0 {
		return ErrMessageEmpty
	}
	if len(body) > MaxMessageLen {
		return ErrMessageTooLong
	}
	return nil
}
