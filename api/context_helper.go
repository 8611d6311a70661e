package api

import (
	"context"

	"github.com/linesmerrill/change-order-api/models"
)

type identityKey struct{}

// WithIdentity stores the verified identity on the request context
func WithIdentity(parent context.Context, identity models.Identity) context.Context {
	return context.WithValue(parent, identityKey{}, identity)
}

// IdentityFromContext returns the identity set by the auth middleware
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(models.Identity)
	return identity, ok
}
