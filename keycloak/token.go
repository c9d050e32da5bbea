package keycloak

import "time"

const redacted = "[REDACTED]"

// AdminToken is a short-lived realm admin token obtained through a
// client-credentials exchange. Its value can only be read inside this package,
// so it cannot end up in logs or API responses by accident.
type AdminToken struct {
	value  string
	Expiry time.Time
}

// NewAdminToken wraps a raw access token
func NewAdminToken(value string, expiry time.Time) AdminToken {
	return AdminToken{value: value, Expiry: expiry}
}

// IsZero reports whether the token is empty
func (t AdminToken) IsZero() bool {
	return t.value == ""
}

// String implements fmt.Stringer without exposing the token
func (t AdminToken) String() string {
	return redacted
}

// GoString keeps %#v from printing the token
func (t AdminToken) GoString() string {
	return "keycloak.AdminToken{" + redacted + "}"
}

// MarshalJSON keeps the token out of encoded output
func (t AdminToken) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
