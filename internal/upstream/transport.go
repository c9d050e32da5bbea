// Package upstream adapts third-party API clients that build their own
// requests to the caller's context.
package upstream

import (
	"context"
	"net/http"
	"sync"
)

// Transport binds every request it carries to ctx and remembers the status
// of the last response. Clients that accept an http.Client or a parent
// RoundTripper but no context use it to honour cancellation, and callers read
// Status when the client folds the status code into an error string.
type Transport struct {
	ctx  context.Context
	base http.RoundTripper

	mu     sync.Mutex
	status int
}

// NewTransport creates a transport for one call. A nil base uses http.DefaultTransport.
func NewTransport(ctx context.Context, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{ctx: ctx, base: base}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req.WithContext(t.ctx))
	if resp != nil {
		t.mu.Lock()
		t.status = resp.StatusCode
		t.mu.Unlock()
	}
	return resp, err
}

// Status returns the status code of the last response, 0 when none arrived
func (t *Transport) Status() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Failed reports whether a response arrived with a non-2xx status
func (t *Transport) Failed() bool {
	status := t.Status()
	return status != 0 && (status < 200 || status > 299)
}
