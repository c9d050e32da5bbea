package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/relife/service-api/config"
	"github.com/relife/service-api/internal/upstream"
	"github.com/relife/service-api/models"
	gotrue "github.com/supabase-community/gotrue-go"
)

var (
	// ErrInvalidCredential is returned when the identity backend does not accept the credential
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrTokenExpired is returned when a JWT credential is already expired
	ErrTokenExpired = errors.New("token expired")
)

const authPath = "/auth/v1"

// BackendError carries the status and error text of a rejected verification
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("identity backend returned status %d: %s", e.StatusCode, e.Body)
}

// Client verifies bearer credentials against the Supabase Auth (GoTrue) API.
// Requests are sent with the service role key as apikey; the caller's credential
// is only ever the token under verification.
type Client struct {
	baseURL    string
	serviceKey string
	timeout    time.Duration
	transport  http.RoundTripper
	now        func() time.Time
}

// NewClient creates a new identity backend client
func NewClient(cfg config.IdentityBackendConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		timeout:    timeout,
		transport:  http.DefaultTransport,
		now:        time.Now,
	}
}

// VerifyToken exchanges a bearer credential for the user it belongs to
func (c *Client) VerifyToken(ctx context.Context, credential string) (*models.IdentityRecord, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, fmt.Errorf("%w: empty credential", ErrInvalidCredential)
	}

	if err := c.checkExpiry(credential); err != nil {
		return nil, err
	}

	transport := upstream.NewTransport(ctx, c.transport)
	auth := gotrue.New("", c.serviceKey).
		WithCustomGoTrueURL(c.baseURL + authPath).
		WithClient(http.Client{Timeout: c.timeout, Transport: transport}).
		WithToken(credential)

	user, err := auth.GetUser()
	if err != nil {
		if transport.Failed() {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, &BackendError{
				StatusCode: transport.Status(),
				Body:       err.Error(),
			})
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if user == nil || user.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: user without id", ErrInvalidCredential)
	}

	return &models.IdentityRecord{
		UserID:   user.ID.String(),
		Email:    user.Email,
		Metadata: models.NewIdentityMetadata(user.UserMetadata),
	}, nil
}

// checkExpiry rejects JWT credentials whose exp claim has passed, saving a
// round trip. Credentials that are not JWTs are left to the backend.
func (c *Client) checkExpiry(credential string) error {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(credential, claims); err != nil {
		return nil
	}

	if claims.ExpiresAt != nil && !c.now().Before(claims.ExpiresAt.Time) {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, ErrTokenExpired)
	}

	return nil
}
