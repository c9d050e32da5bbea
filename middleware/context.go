package middleware

import (
	"context"

	"github.com/relife/service-api/internal/observability"
	"github.com/relife/service-api/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the authenticated identity
	IdentityKey contextKey = "identity"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return observability.ContextWithRequestID(ctx, requestID)
}

// GetIdentityFromContext retrieves the authenticated identity from context
func GetIdentityFromContext(ctx context.Context) *models.AuthenticatedIdentity {
	if val := ctx.Value(IdentityKey); val != nil {
		if identity, ok := val.(*models.AuthenticatedIdentity); ok {
			return identity
		}
	}
	return nil
}

// WithIdentity adds the authenticated identity to the context
func WithIdentity(ctx context.Context, identity *models.AuthenticatedIdentity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}
