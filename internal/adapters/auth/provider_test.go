package auth

import (
	"context"
	"testing"
	"time"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAuthenticateRoundTrip(t *testing.T) {
	p := NewJWTProvider("top-secret")
	want := domain.Identity{ID: "u-42", DisplayName: "Alice", Avatar: "a.png", MediaUID: 7}

	cred, err := p.Mint(want, time.Minute)
	require.NoError(t, err)

	got, err := p.Authenticate(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, &want, got)
}

func TestAuthenticateMissingCredential(t *testing.T) {
	p := NewJWTProvider("top-secret")
	_, err := p.Authenticate(context.Background(), "")
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
}

func TestAuthenticateExpiredToken(t *testing.T) {
	p := NewJWTProvider("top-secret")
	cred, err := p.Mint(domain.Identity{ID: "u-42", DisplayName: "Alice"}, -time.Minute)
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), cred)
	require.Error(t, err)
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestAuthenticateWrongSecret(t *testing.T) {
	cred, err := NewJWTProvider("one-secret").Mint(domain.Identity{ID: "u-42", DisplayName: "Alice"}, time.Minute)
	require.NoError(t, err)

	_, err = NewJWTProvider("other-secret").Authenticate(context.Background(), cred)
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
}

func TestAuthenticateGarbage(t *testing.T) {
	p := NewJWTProvider("top-secret")
	_, err := p.Authenticate(context.Background(), "not-a-token")
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
}
