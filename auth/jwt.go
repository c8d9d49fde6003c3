// Package auth provides request transformers that attach credentials to outgoing API calls.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/status-im/apisharp"
)

var ErrEmptySecret = errors.New("jwt secret is required")

type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues short-lived HS256 tokens
type Signer struct {
	Secret   string
	Issuer   string
	Subject  string
	Audience []string
	Scope    string
	// TTL defaults to 10 minutes
	TTL time.Duration

	now func() time.Time
}

func (s *Signer) ttl() time.Duration {
	if s.TTL <= 0 {
		return 10 * time.Minute
	}
	return s.TTL
}

func (s *Signer) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Sign returns a fresh token and its expiry
func (s *Signer) Sign() (string, time.Time, error) {
	if s.Secret == "" {
		return "", time.Time{}, ErrEmptySecret
	}

	now := s.clock()
	exp := now.Add(s.ttl())
	claims := Claims{
		Scope: s.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   s.Subject,
			Audience:  s.Audience,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses a token issued with secret and checks its signature and expiry
func Verify(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

// BearerTransform signs a token per request and sets it as the Authorization header.
// A signing failure leaves the payload untouched; the server's rejection then surfaces through ValidateResponse.
func BearerTransform(s *Signer) func(apisharp.Payload) apisharp.Payload {
	return func(p apisharp.Payload) apisharp.Payload {
		token, _, err := s.Sign()
		if err != nil {
			return p
		}
		if p.Headers == nil {
			p.Headers = map[string]string{}
		}
		p.Headers["Authorization"] = "Bearer " + token
		return p
	}
}
