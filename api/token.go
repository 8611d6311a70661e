package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linesmerrill/change-order-api/models"
)

// claims is the JWT body issued to participants
type claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. It is the identity
// verifier for both HTTP requests and websocket connections.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService returns a TokenService signing with secret
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for identity
func (t *TokenService) Issue(identity models.Identity) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("token secret is not set")
	}
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	return token.SignedString(t.secret)
}

// Verify checks a credential, with or without the "Bearer " prefix, and returns
// the identity it carries. Every failure wraps models.ErrAuthRejected.
func (t *TokenService) Verify(_ context.Context, credential string) (models.Identity, error) {
	credential = strings.TrimSpace(credential)
	if len(credential) > 7 && strings.EqualFold(credential[:7], "bearer ") {
		credential = strings.TrimSpace(credential[7:])
	}
	if credential == "" || len(t.secret) == 0 {
		return models.Identity{}, models.ErrAuthRejected
	}

	c := &claims{}
	_, err := jwt.ParseWithClaims(credential, c, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", models.ErrAuthRejected, err)
	}
	if c.Subject == "" || !c.Role.Valid() {
		return models.Identity{}, fmt.Errorf("%w: token carries no usable identity", models.ErrAuthRejected)
	}
	return models.Identity{Username: c.Subject, Role: c.Role}, nil
}
