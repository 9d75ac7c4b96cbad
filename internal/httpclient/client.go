package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// AuthProvider supplies authentication tokens and injects them into HTTP requests.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
	InjectHeader(ctx context.Context, req *http.Request) error
	Close() error
}

// RequestSpec enumerates exactly the options recognized for one captured
// request. There is no loose option bag; anything not listed here is not a
// request parameter.
type RequestSpec struct {
	Method   string
	Target   string // absolute URL, or a path resolved against the builder's base URL
	Headers  map[string]string
	Query    url.Values // merged into the target's query string
	Cookies  map[string]string
	Body     string
	BodyFile string
}

// RequestBuilder assembles http.Requests from RequestSpecs, resolving targets
// against an optional base URL and injecting authentication.
type RequestBuilder struct {
	base         *url.URL
	authProvider AuthProvider
}

// NewRequestBuilder creates a builder without a base URL; every spec must then
// carry an absolute target.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{}
}

// NewRequestBuilderWithBase creates a builder that resolves relative targets
// against base. An empty base behaves like NewRequestBuilder.
func NewRequestBuilderWithBase(base string) (*RequestBuilder, error) {
	builder := &RequestBuilder{}

	base = strings.TrimSpace(base)
	if base != "" {
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		if !parsed.IsAbs() {
			return nil, fmt.Errorf("base URL %q must be absolute", base)
		}
		builder.base = parsed
	}

	return builder, nil
}

// NewRequestBuilderWithAuth creates a builder with an auth provider for
// automatic token injection.
func NewRequestBuilderWithAuth(base string, provider AuthProvider) (*RequestBuilder, error) {
	builder, err := NewRequestBuilderWithBase(base)
	if err != nil {
		return nil, err
	}
	builder.authProvider = provider
	return builder, nil
}

// Build constructs a fully prepared http.Request from spec.
func (b *RequestBuilder) Build(ctx context.Context, spec *RequestSpec) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if spec == nil {
		return nil, errors.New("request spec cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := b.resolveTarget(spec.Target)
	if err != nil {
		return nil, err
	}

	if len(spec.Query) > 0 {
		merged := target.Query()
		for key, values := range spec.Query {
			for _, value := range values {
				merged.Add(key, value)
			}
		}
		target.RawQuery = merged.Encode()
	}

	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = http.MethodGet
	}

	bodySource, err := NewBodySource(spec)
	if err != nil {
		return nil, err
	}
	reader, err := bodySource.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	if err := applyHeaders(req, spec.Headers); err != nil {
		return nil, err
	}
	applyCookies(req, spec.Cookies)

	if length, ok := bodySource.ContentLength(); ok {
		req.ContentLength = length
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return bodySource.NewReader()
	}

	if b.authProvider != nil {
		if err := b.authProvider.InjectHeader(ctx, req); err != nil {
			return nil, fmt.Errorf("auth provider inject header: %w", err)
		}
	}

	return req, nil
}

func (b *RequestBuilder) resolveTarget(target string) (*url.URL, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target URL: %w", err)
	}

	if b.base != nil {
		return b.base.ResolveReference(parsed), nil
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("target %q is relative and no base URL is configured", target)
	}
	return parsed, nil
}

func applyHeaders(req *http.Request, headers map[string]string) error {
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if canonicalKey == "" {
			return fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(value, "\r\n") {
			return fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		req.Header.Set(canonicalKey, value)
	}
	return nil
}

// applyCookies attaches cookies in sorted name order so built requests are
// deterministic.
func applyCookies(req *http.Request, cookies map[string]string) {
	if len(cookies) == 0 {
		return
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: cookies[name]})
	}
}

// NewClient creates an HTTP client with a tuned transport. When
// followRedirects is false the client returns the first response as-is
// instead of chasing Location headers.
func NewClient(timeout time.Duration, followRedirects bool) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	if !followRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}
