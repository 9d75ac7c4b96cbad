package auth

import (
	"context"
	"encoding/base64"
	"net/http"
)

// BasicAuthProvider injects an HTTP basic auth header derived from a
// username/password pair.
type BasicAuthProvider struct {
	username string
	password string
}

// NewBasicAuthProvider creates a basic auth provider with the given credentials.
func NewBasicAuthProvider(username, password string) *BasicAuthProvider {
	return &BasicAuthProvider{
		username: username,
		password: password,
	}
}

// Token returns the base64-encoded credential pair.
func (p *BasicAuthProvider) Token(ctx context.Context) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(p.username + ":" + p.password)), nil
}

// InjectHeader sets the Authorization header using HTTP basic auth.
func (p *BasicAuthProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	req.SetBasicAuth(p.username, p.password)
	return nil
}

// Close is a no-op for basic auth providers.
func (p *BasicAuthProvider) Close() error {
	return nil
}
