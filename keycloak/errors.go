package keycloak

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthorizationServerUnavailable is returned when the client-credentials exchange fails
	ErrAuthorizationServerUnavailable = errors.New("authorization server unavailable")

	// ErrRoleLookupFailed is returned when the role-mapping endpoint answers with a non-2xx status
	ErrRoleLookupFailed = errors.New("role lookup failed")

	// ErrMalformedRolePayload is returned when the role-mapping response cannot be trusted
	ErrMalformedRolePayload = errors.New("malformed role payload")
)

// UpstreamError carries the upstream status and body for diagnostics.
// It is wrapped by one of the sentinel errors above.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("keycloak %s: status %d, body: %s", e.Op, e.StatusCode, e.Body)
}
