// Package auth is the default identity provider: it resolves a signed
// bearer token to a stable identity without any user-store round trip.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
)

// IdentityClaims is the token shape the provider accepts.
type IdentityClaims struct {
	DisplayName string `json:"name"`
	Avatar      string `json:"photo,omitempty"`
	MediaUID    uint32 `json:"uid"`
	jwt.RegisteredClaims
}

type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

// Authenticate parses and verifies the credential. Expired or malformed
// tokens come back as forbidden so the adapter can reject the
// connection with a reason instead of crashing it.
func (p *JWTProvider) Authenticate(_ context.Context, credential string) (*domain.Identity, error) {
	if credential == "" {
		return nil, core.Forbiddenf("you are not logged in")
	}

	token, err := jwt.ParseWithClaims(credential, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.Forbiddenf("your session expired, please log in again")
		}
		return nil, core.Forbiddenf("invalid credentials")
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || claims.Subject == "" {
		return nil, core.Forbiddenf("invalid credentials")
	}

	return &domain.Identity{
		ID:          domain.UserID(claims.Subject),
		DisplayName: claims.DisplayName,
		Avatar:      claims.Avatar,
		MediaUID:    claims.MediaUID,
	}, nil
}

// Mint signs a credential for the identity. Used by tests and local
// tooling; production tokens come from the account service.
func (p *JWTProvider) Mint(ident domain.Identity, ttl time.Duration) (string, error) {
	claims := IdentityClaims{
		DisplayName: ident.DisplayName,
		Avatar:      ident.Avatar,
		MediaUID:    ident.MediaUID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(ident.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
