package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed = errors.New("token: malformed")
	ErrSignature = errors.New("token: bad signature")
	ErrExpired   = errors.New("token: expired")
)

// Payload is what a session token asserts.
type Payload struct {
	UserID    string
	Role      string
	ExpiresAt int64
}

type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and checks HS256 JWTs.
type Signer struct {
	secret []byte
}

// NewSigner uses the given secret. It must be at least 32 bytes.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("token: secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Signer{secret: secret}, nil
}

// NewRandomSigner generates a fresh 32-byte secret. Tokens do not survive a restart.
func NewRandomSigner() (*Signer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("token: generate secret: %w", err)
	}
	return &Signer{secret: key}, nil
}

// Issue signs p and returns the encoded token.
func (s *Signer) Issue(p Payload) (string, error) {
	c := claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Unix(p.ExpiresAt, 0)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tok as of now and returns its payload.
func (s *Signer) Verify(tok string, now time.Time) (Payload, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tok, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Payload{}, ErrSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return Payload{}, ErrExpired
	case err != nil:
		return Payload{}, ErrMalformed
	}
	if c.Subject == "" {
		return Payload{}, ErrMalformed
	}
	return Payload{UserID: c.Subject, Role: c.Role, ExpiresAt: c.ExpiresAt.Unix()}, nil
}
