// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 36
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

type UserID string

// Identity is the stable user identity resolved by the identity
// provider. MediaUID is the numeric uid the media transport knows the
// user by.
type Identity struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	MediaUID    uint32 `json:"mediaUid"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(displayName string, mediaUID uint32) (*Identity, error) {
	if len(displayName) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &Identity{
		ID:          UserID(uuid.NewString()),
		DisplayName: displayName,
		MediaUID:    mediaUID,
	}, nil
}
