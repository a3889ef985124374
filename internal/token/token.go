// Package token issues the bearer tokens players use to reclaim their seat after a
// dropped connection.
package token

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "trashtalk"

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims identifies the seat a session token belongs to
type Claims struct {
	Room     string `json:"room"`
	PlayerID string `json:"pid,omitempty"`
	Host     bool   `json:"host,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an issuer. An empty secret is replaced by a random one, which
// invalidates every token on restart.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	return &Issuer{secret: key, ttl: ttl}, nil
}

// Issue signs a token for a player seat, or for the host screen when host is set
func (i *Issuer) Issue(room, playerID string, host bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		Room:     room,
		PlayerID: playerID,
		Host:     host,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks the signature and expiry of a token
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Room == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
