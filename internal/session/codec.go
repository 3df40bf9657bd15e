package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/astrasemi/assistant/internal/constants"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

// Payload is the data carried by the session cookie.
type Payload struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
}

func (p Payload) IsAdmin() bool {
	return p.Role == "admin"
}

type claims struct {
	Payload
	jwt.RegisteredClaims
}

// Codec signs and verifies session cookie values with HMAC-SHA256.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = constants.SessionDefaultTTL
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of an encoded token.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode returns a signed token for the payload.
func (c *Codec) Encode(p Payload) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Payload: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token signature and expiry and returns its payload.
// Signature comparison is constant time (crypto/hmac.Equal inside jwt).
func (c *Codec) Decode(token string) (*Payload, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || cl.Username == "" {
		return nil, ErrInvalidToken
	}

	p := cl.Payload
	return &p, nil
}
