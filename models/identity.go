package models

import (
	"encoding/json"
	"strings"
)

// IdentityRecord is the user returned by the identity backend for a verified credential
type IdentityRecord struct {
	UserID   string           `json:"id"`
	Email    string           `json:"email,omitempty"`
	Metadata IdentityMetadata `json:"user_metadata"`
}

// IdentityMetadata is the provider-supplied user metadata.
// When the user signed in through Keycloak, Issuer holds the realm issuer URL
// and ProviderID the Keycloak user id.
type IdentityMetadata struct {
	Issuer     string                 `json:"-"`
	ProviderID string                 `json:"-"`
	Raw        map[string]interface{} `json:"-"`
}

// NewIdentityMetadata builds metadata from the raw user_metadata map
func NewIdentityMetadata(raw map[string]interface{}) IdentityMetadata {
	m := IdentityMetadata{Raw: raw}
	if iss, ok := raw["iss"].(string); ok {
		m.Issuer = iss
	}
	if sub, ok := raw["provider_id"].(string); ok {
		m.ProviderID = sub
	}
	return m
}

// IssuerURL returns the realm issuer URL and whether it is present
func (m IdentityMetadata) IssuerURL() (string, bool) {
	iss := strings.TrimSpace(m.Issuer)
	return iss, iss != ""
}

// SubjectID returns the authorization-server user id and whether it is present
func (m IdentityMetadata) SubjectID() (string, bool) {
	sub := strings.TrimSpace(m.ProviderID)
	return sub, sub != ""
}

// UnmarshalJSON decodes the raw user_metadata object
func (m *IdentityMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = NewIdentityMetadata(raw)
	return nil
}

// MarshalJSON encodes the raw user_metadata object
func (m IdentityMetadata) MarshalJSON() ([]byte, error) {
	if m.Raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.Raw)
}

// Role is a Keycloak realm role mapping
type Role struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Composite   *bool   `json:"composite,omitempty"`
	ClientRole  *bool   `json:"clientRole,omitempty"`
	ContainerID *string `json:"containerId,omitempty"`
}

// AuthenticatedIdentity is the result of authenticating a request.
// Values are immutable; WithRoles returns a copy.
type AuthenticatedIdentity struct {
	credential    string
	record        IdentityRecord
	roles         []Role
	rolesResolved bool
	adminRoleName string
}

// NewAuthenticatedIdentity creates an identity without roles
func NewAuthenticatedIdentity(credential string, record IdentityRecord, adminRoleName string) *AuthenticatedIdentity {
	return &AuthenticatedIdentity{
		credential:    credential,
		record:        record,
		adminRoleName: adminRoleName,
	}
}

// WithRoles returns a copy of the identity with the resolved roles attached
func (a *AuthenticatedIdentity) WithRoles(roles []Role) *AuthenticatedIdentity {
	cp := *a
	cp.roles = make([]Role, len(roles))
	copy(cp.roles, roles)
	cp.rolesResolved = true
	return &cp
}

// Credential returns the bearer credential the identity was authenticated with
func (a *AuthenticatedIdentity) Credential() string {
	return a.credential
}

// Record returns the verified identity record
func (a *AuthenticatedIdentity) Record() IdentityRecord {
	return a.record
}

// UserID returns the identity backend user id
func (a *AuthenticatedIdentity) UserID() string {
	return a.record.UserID
}

// Email returns the user's email, empty when unknown
func (a *AuthenticatedIdentity) Email() string {
	return a.record.Email
}

// Roles returns a copy of the resolved roles. The second result is false when
// role resolution was not performed, which is not the same as having no roles.
func (a *AuthenticatedIdentity) Roles() ([]Role, bool) {
	if !a.rolesResolved {
		return nil, false
	}
	roles := make([]Role, len(a.roles))
	copy(roles, a.roles)
	return roles, true
}

// HasRole checks if the resolved roles contain the given role name (case-sensitive)
func (a *AuthenticatedIdentity) HasRole(name string) bool {
	if a == nil || !a.rolesResolved || name == "" {
		return false
	}
	for _, role := range a.roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the resolved roles contain the configured admin role.
// An identity built without role resolution is never an admin.
func (a *AuthenticatedIdentity) IsAdmin() bool {
	if a == nil {
		return false
	}
	return a.HasRole(a.adminRoleName)
}

type authenticatedIdentityJSON struct {
	UserID       string           `json:"user_id"`
	Email        string           `json:"email,omitempty"`
	UserMetadata IdentityMetadata `json:"user_metadata"`
	Roles        *[]Role          `json:"keycloak_roles,omitempty"`
	IsAdmin      bool             `json:"is_admin"`
}

// MarshalJSON renders the identity for API responses. The credential is never included.
func (a *AuthenticatedIdentity) MarshalJSON() ([]byte, error) {
	out := authenticatedIdentityJSON{
		UserID:       a.record.UserID,
		Email:        a.record.Email,
		UserMetadata: a.record.Metadata,
		IsAdmin:      a.IsAdmin(),
	}
	if a.rolesResolved {
		roles := a.roles
		if roles == nil {
			roles = []Role{}
		}
		out.Roles = &roles
	}
	return json.Marshal(out)
}
