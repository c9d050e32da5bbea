package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/relife/service-api/dataapi"
	"github.com/relife/service-api/middleware"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/repositories"
	"github.com/relife/service-api/services"
)

// RepositoryProvider hands out repositories bound to a data access handle
type RepositoryProvider interface {
	// ForUser returns repositories acting with the identity's own credential
	ForUser(identity *models.AuthenticatedIdentity) (*repositories.UserRepositories, error)

	// ForService returns repositories acting with the service key
	ForService() *repositories.ServiceRepositories
}

// identityFromRequest returns the identity stored by the auth middleware
func identityFromRequest(r *http.Request) (*models.AuthenticatedIdentity, error) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		return nil, services.ErrUnauthorized
	}
	return identity, nil
}

// userRepositories resolves the caller's identity and its scoped repositories
func userRepositories(r *http.Request, provider RepositoryProvider) (*models.AuthenticatedIdentity, *repositories.UserRepositories, error) {
	identity, err := identityFromRequest(r)
	if err != nil {
		return nil, nil, err
	}

	repos, err := provider.ForUser(identity)
	if err != nil {
		if errors.Is(err, dataapi.ErrNoCredential) {
			return nil, nil, services.NewDomainError(services.ErrorTypeUnauthorized, "authentication failed", err)
		}
		return nil, nil, services.ErrInternal.WithCause(fmt.Errorf("create data access handle: %w", err))
	}

	return identity, repos, nil
}
