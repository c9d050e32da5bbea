package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenPath = "/protocol/openid-connect/token"

// TokenExchanger obtains realm admin tokens with the OAuth2 client-credentials grant.
// The realm is taken from the issuer of the identity being processed, so every
// call builds its own token endpoint; nothing is cached between calls.
type TokenExchanger struct {
	httpClient *http.Client
}

// NewTokenExchanger creates a new token exchanger
func NewTokenExchanger(timeout time.Duration) *TokenExchanger {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &TokenExchanger{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// TokenURL returns the token endpoint of the realm identified by issuerURL
func TokenURL(issuerURL string) string {
	return strings.TrimRight(issuerURL, "/") + tokenPath
}

// Exchange posts a client_credentials grant to the realm's token endpoint
func (e *TokenExchanger) Exchange(ctx context.Context, issuerURL, clientID, clientSecret string) (AdminToken, error) {
	if strings.TrimSpace(issuerURL) == "" {
		return AdminToken{}, fmt.Errorf("%w: empty issuer URL", ErrAuthorizationServerUnavailable)
	}

	conf := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     TokenURL(issuerURL),
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	tok, err := conf.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return AdminToken{}, fmt.Errorf("%w: %w", ErrAuthorizationServerUnavailable, &UpstreamError{
				Op:         "token",
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			})
		}
		return AdminToken{}, fmt.Errorf("%w: %v", ErrAuthorizationServerUnavailable, err)
	}

	if tok.AccessToken == "" {
		return AdminToken{}, fmt.Errorf("%w: no access_token in response", ErrAuthorizationServerUnavailable)
	}

	return NewAdminToken(tok.AccessToken, tok.Expiry), nil
}
