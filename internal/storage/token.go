package storage

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// linkClaims are the statements carried inside a local-mode link token:
// the target object key plus the standard expiry.
type linkClaims struct {
	jwt.RegisteredClaims
	Key string `json:"key"`
}

// Signer mints and verifies the HMAC-signed tokens behind local-mode
// download and share links. Tokens are stateless: target key and expiry
// travel inside the token and are re-verified on every use, which is the
// same trust model the remote backend gets from provider-signed URLs.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer bound to the process-wide secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign returns a token granting access to key until now+ttl, plus the
// expiry it embedded.
func (s *Signer) Sign(key string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := s.now().Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Key: key,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign link token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the granted key. Every
// failure mode collapses into ErrExpiredOrInvalid so a caller learns
// nothing about whether the key exists or why the token was rejected.
func (s *Signer) Verify(tokenString string) (string, error) {
	claims := &linkClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))

	if err != nil || !token.Valid || claims.Key == "" {
		return "", ErrExpiredOrInvalid
	}
	return claims.Key, nil
}
