package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/relife/service-api/internal/observability"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/services"
	"github.com/relife/service-api/utils"
	"go.uber.org/zap"
)

// Authenticator defines the interface for authenticating bearer credentials
type Authenticator interface {
	// Authenticate verifies the credential and optionally resolves the caller's roles
	Authenticate(ctx context.Context, credential string, wantRoles bool) (*models.AuthenticatedIdentity, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	authenticator Authenticator
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authenticator Authenticator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		logger:        logger,
	}
}

const unauthorizedMessage = "Could not validate credentials"

// RequireAuth requires a valid bearer credential. Roles are not resolved.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return m.authenticate(false, next)
}

// RequireAuthWithRoles requires a valid bearer credential and resolves the
// caller's realm roles
func (m *AuthMiddleware) RequireAuthWithRoles(next http.Handler) http.Handler {
	return m.authenticate(true, next)
}

func (m *AuthMiddleware) authenticate(wantRoles bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := observability.LoggerFromContext(ctx, m.logger)

		token := extractBearerToken(r)
		if token == "" {
			logger.Warn("rejected request", zap.Error(services.ErrMissingBearer))
			_ = utils.WriteUnauthorized(w, services.ErrMissingBearer.Message)
			return
		}

		identity, err := m.authenticator.Authenticate(ctx, token, wantRoles)
		if err != nil {
			// The authenticator already logged the failing stage
			if !services.IsUnauthorizedError(err) {
				logger.Error("unexpected authentication error", zap.Error(err))
			}
			_ = utils.WriteUnauthorized(w, unauthorizedMessage)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
	})
}

// RequireAdmin requires an identity carrying the admin role.
// This must run after RequireAuthWithRoles; identities without resolved roles are rejected.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := observability.LoggerFromContext(ctx, m.logger)

		identity := GetIdentityFromContext(ctx)
		if identity == nil {
			logger.Error("identity not found in context")
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		if err := services.RequireAdmin(identity); err != nil {
			logger.Warn("insufficient permissions",
				zap.String("user_id", identity.UserID()),
				zap.Error(err))
			_ = utils.WriteForbidden(w, "User does not have admin role")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
