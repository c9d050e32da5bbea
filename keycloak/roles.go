package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relife/service-api/models"
	"github.com/relife/service-api/utils"
)

const maxErrorBody = 4 << 10

// RoleResolver reads a user's realm role mappings from the Keycloak admin API
type RoleResolver struct {
	httpClient *http.Client
}

// NewRoleResolver creates a new role resolver
func NewRoleResolver(timeout time.Duration) *RoleResolver {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &RoleResolver{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// AdminBaseURL maps a realm issuer URL onto the admin API of the same realm,
// e.g. https://idp/realms/r1 -> https://idp/admin/realms/r1
func AdminBaseURL(issuerURL string) string {
	return strings.TrimRight(strings.Replace(issuerURL, "/realms", "/admin/realms", 1), "/")
}

// RoleMappingsURL returns the realm role-mapping endpoint for a user
func RoleMappingsURL(issuerURL, subjectID string) string {
	return AdminBaseURL(issuerURL) + "/users/" + url.PathEscape(subjectID) + "/role-mappings/realm"
}

// ResolveRoles fetches the realm roles mapped to subjectID
func (r *RoleResolver) ResolveRoles(ctx context.Context, issuerURL string, token AdminToken, subjectID string) ([]models.Role, error) {
	if token.IsZero() {
		return nil, fmt.Errorf("%w: missing admin token", ErrRoleLookupFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, RoleMappingsURL(issuerURL, subjectID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRoleLookupFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.value)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoleLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %w", ErrRoleLookupFailed, &UpstreamError{
			Op:         "role-mappings",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}

	return decodeRoles(resp.Body)
}

// decodeRoles parses a role-mapping array. Any entry missing id or name fails
// the whole payload; entries are never dropped.
func decodeRoles(body io.Reader) ([]models.Role, error) {
	var entries []json.RawMessage
	if err := json.NewDecoder(body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRolePayload, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedRolePayload)
	}

	roles := make([]models.Role, 0, len(entries))
	for i, entry := range entries {
		var role models.Role
		if err := json.Unmarshal(entry, &role); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedRolePayload, i, err)
		}
		if err := utils.ValidateStruct(role); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedRolePayload, i, err)
		}
		roles = append(roles, role)
	}

	return roles, nil
}
