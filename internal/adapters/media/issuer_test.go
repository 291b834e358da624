package media

import (
	"testing"
	"time"

	"github.com/mkamel/airwave/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueDecodeRoundTrip(t *testing.T) {
	iss := NewJWTIssuer("app-1", "media-secret", time.Minute)

	token, err := iss.Issue("friday-jazz", 7, core.MediaPublisher)
	require.NoError(t, err)

	claims, err := iss.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "app-1", claims.AppID)
	assert.Equal(t, "friday-jazz", claims.Channel)
	assert.Equal(t, uint32(7), claims.UID)
	assert.Equal(t, core.MediaPublisher, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestDecodeRejectsForeignToken(t *testing.T) {
	token, err := NewJWTIssuer("app-1", "one-secret", time.Minute).Issue("friday-jazz", 7, core.MediaSubscriber)
	require.NoError(t, err)

	_, err = NewJWTIssuer("app-1", "other-secret", time.Minute).Decode(token)
	assert.Error(t, err)
}

func TestIssuerDefaultTTL(t *testing.T) {
	iss := NewJWTIssuer("app-1", "media-secret", 0)
	token, err := iss.Issue("friday-jazz", 7, core.MediaSubscriber)
	require.NoError(t, err)

	claims, err := iss.Decode(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}
