package dataapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/relife/service-api/config"
	"github.com/relife/service-api/models"
)

// ErrNoCredential is returned when a scoped handle is requested for an
// identity that carries no credential
var ErrNoCredential = errors.New("identity has no credential")

// ServiceHandle is a data API connection authorized by the service key.
// It bypasses Row Level Security and must only serve operations allowed to see all data.
type ServiceHandle struct {
	*Client
}

// ScopedHandle is a data API connection authorized by one caller's credential.
// Row Level Security applies to everything it does.
type ScopedHandle struct {
	*Client
	userID string
}

// UserID returns the id of the user the handle acts for
func (h *ScopedHandle) UserID() string {
	return h.userID
}

// Factory builds access handles from the identity backend settings
type Factory struct {
	baseURL    string
	serviceKey string
	timeout    time.Duration
	transport  http.RoundTripper
}

// NewFactory creates a new handle factory
func NewFactory(cfg config.IdentityBackendConfig) *Factory {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Factory{
		baseURL:    cfg.URL,
		serviceKey: cfg.ServiceKey,
		timeout:    timeout,
		transport:  http.DefaultTransport,
	}
}

// ServiceHandle returns a new handle authorized by the service key
func (f *Factory) ServiceHandle() *ServiceHandle {
	return &ServiceHandle{
		Client: newClient(f.baseURL, f.serviceKey, f.serviceKey, f.timeout, f.transport),
	}
}

// ScopedHandle returns a new handle authorized by the identity's own credential.
// It never falls back to the service key.
func (f *Factory) ScopedHandle(identity *models.AuthenticatedIdentity) (*ScopedHandle, error) {
	if identity == nil {
		return nil, ErrNoCredential
	}

	credential := identity.Credential()
	if strings.TrimSpace(credential) == "" {
		return nil, ErrNoCredential
	}

	return &ScopedHandle{
		Client: newClient(f.baseURL, f.serviceKey, credential, f.timeout, f.transport),
		userID: identity.UserID(),
	}, nil
}
