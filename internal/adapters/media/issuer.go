// Package media is the default media-token issuer. It mints signed,
// time-limited transport credentials carrying the channel, the member's
// media uid and the granted role; a deployment fronted by a managed RTC
// vendor swaps this for the vendor's token builder.
package media

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
)

type TokenClaims struct {
	AppID   string         `json:"app"`
	Channel string         `json:"channel"`
	UID     uint32         `json:"uid"`
	Role    core.MediaRole `json:"role"`
	jwt.RegisteredClaims
}

type JWTIssuer struct {
	appID  string
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(appID, secret string, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTIssuer{appID: appID, secret: []byte(secret), ttl: ttl}
}

func (i *JWTIssuer) Issue(room domain.RoomName, uid uint32, role core.MediaRole) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		AppID:   i.appID,
		Channel: string(room),
		UID:     uid,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Decode verifies a token this issuer minted. Handy for tests and for
// debugging tooling; clients normally just forward the opaque string.
func (i *JWTIssuer) Decode(token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
