package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultRefreshMargin = 30 * time.Second

// ClientCredentialsProvider obtains bearer tokens via the OAuth2 client
// credentials grant and caches them until shortly before expiry.
type ClientCredentialsProvider struct {
	tokenURL      string
	clientID      string
	clientSecret  string
	scopes        []string
	refreshMargin time.Duration
	httpClient    *http.Client

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

type tokenEndpointResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
}

// NewClientCredentialsProvider creates a provider for the given token
// endpoint and client credentials.
func NewClientCredentialsProvider(tokenURL, clientID, clientSecret string, scopes []string) *ClientCredentialsProvider {
	return &ClientCredentialsProvider{
		tokenURL:      tokenURL,
		clientID:      clientID,
		clientSecret:  clientSecret,
		scopes:        scopes,
		refreshMargin: defaultRefreshMargin,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Token returns a cached token when still valid, otherwise fetches a fresh
// one from the token endpoint.
func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cachedToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.cachedToken, nil
	}

	token, expiresIn, err := p.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	p.cachedToken = token
	p.tokenExpiry = time.Now().Add(time.Duration(expiresIn)*time.Second - p.refreshMargin)
	return token, nil
}

// InjectHeader sets the Authorization header with a valid bearer token.
func (p *ClientCredentialsProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	token, err := p.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Close discards the cached token.
func (p *ClientCredentialsProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cachedToken = ""
	return nil
}

func (p *ClientCredentialsProvider) fetchToken(ctx context.Context) (string, int, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
	}
	if len(p.scopes) > 0 {
		form.Set("scope", strings.Join(p.scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token endpoint request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var parsed tokenEndpointResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", 0, fmt.Errorf("parse token response: %w", err)
	}
	if parsed.Error != "" {
		return "", 0, fmt.Errorf("token endpoint error: %s", parsed.Error)
	}
	if parsed.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned no access token")
	}

	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return parsed.AccessToken, expiresIn, nil
}
