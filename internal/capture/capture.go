// Package capture performs HTTP exchanges and records each one as a HAR
// entry in a trace archive.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/harfire/internal/auth"
	"github.com/torosent/harfire/internal/config"
	"github.com/torosent/harfire/internal/har"
	"github.com/torosent/harfire/internal/httpclient"
	"github.com/torosent/harfire/internal/sink"
	"github.com/torosent/harfire/internal/tracing"
)

// RecordError reports that the HTTP exchange itself succeeded but recording
// the entry failed. The caller still receives the response alongside it.
type RecordError struct {
	Err error
}

func (e *RecordError) Error() string { return fmt.Sprintf("record entry: %v", e.Err) }
func (e *RecordError) Unwrap() error { return e.Err }

// Result is the caller-visible outcome of one captured exchange. The recorded
// entry is derived from the same data, so recording never mutates what the
// caller observes.
type Result struct {
	Status     int
	StatusText string
	Header     http.Header
	Cookies    []*http.Cookie
	Body       []byte
	FinalURL   string
}

// Capture wraps an HTTP client so every executed request is appended to a
// trace sink as a HAR entry. A Capture owns its sink: it opens it at
// construction and releases it in Close.
//
// A Capture is intended for use from a single goroutine. Concurrent Execute
// calls are not coordinated; entries would then be appended in completion
// order rather than call order.
type Capture struct {
	client  *http.Client
	builder *httpclient.RequestBuilder
	sink    sink.Sink
	path    string

	tracer    trace.Tracer
	propagate bool

	mu     sync.Mutex
	closed bool
}

// Option customizes a Capture beyond its configuration.
type Option func(*Capture)

// WithSink substitutes the trace sink, taking over ownership of it.
func WithSink(s sink.Sink) Option {
	return func(c *Capture) { c.sink = s }
}

// WithClient substitutes the underlying HTTP client.
func WithClient(client *http.Client) Option {
	return func(c *Capture) { c.client = client }
}

// WithTracer enables span creation around each exchange and, when propagate
// is set, injection of W3C trace context headers into captured requests.
func WithTracer(tracer trace.Tracer, propagate bool) Option {
	return func(c *Capture) {
		c.tracer = tracer
		c.propagate = propagate
	}
}

// New creates a Capture from cfg. Unless WithSink overrides it, the trace
// archive is opened at cfg.Output, or at a generated default path when
// cfg.Output is empty.
func New(cfg *config.Config, opts ...Option) (*Capture, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	provider, err := newAuthProvider(cfg.Auth)
	if err != nil {
		return nil, err
	}
	builder, err := httpclient.NewRequestBuilderWithAuth(cfg.BaseURL, provider)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		client:  httpclient.NewClient(cfg.Timeout, cfg.FollowRedirects),
		builder: builder,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sink == nil {
		fileSink, err := sink.NewFileSink(cfg.Output)
		if err != nil {
			return nil, err
		}
		c.sink = fileSink
		c.path = fileSink.Path()
	}

	return c, nil
}

// TracePath returns the resolved archive path, or "" when an injected sink
// has no file backing.
func (c *Capture) TracePath() string { return c.path }

// Execute performs one HTTP exchange and appends the recorded entry to the
// sink. The returned Result reflects the exchange exactly as the underlying
// client produced it.
//
// When the exchange succeeds but recording fails, Execute returns the Result
// together with a *RecordError so callers can distinguish transport failures
// from recording failures.
func (c *Capture) Execute(ctx context.Context, spec *httpclient.RequestSpec) (*Result, error) {
	if c.isClosed() {
		return nil, sink.ErrSinkClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := c.builder.Build(ctx, spec)
	if err != nil {
		return nil, err
	}

	var span trace.Span
	if c.tracer != nil {
		ctx, span = tracing.StartRequestSpan(ctx, c.tracer, req.Method, req.URL.String())
		req = req.WithContext(ctx)
		if c.propagate {
			tracing.InjectHTTPHeaders(ctx, req.Header)
		}
	}

	snap := snapshotRequest(req)

	start := time.Now().UTC()
	resp, err := c.client.Do(req)
	if err != nil {
		if span != nil {
			tracing.EndSpan(span, err)
		}
		return nil, fmt.Errorf("execute %s %s: %w", snap.method, snap.url, err)
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		if span != nil {
			tracing.EndSpan(span, readErr)
		}
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	result := &Result{
		Status:     resp.StatusCode,
		StatusText: reasonPhrase(resp),
		Header:     resp.Header,
		Cookies:    resp.Cookies(),
		Body:       body,
		FinalURL:   finalURL(resp),
	}
	if span != nil {
		tracing.EndSpan(span, nil, attribute.Int("http.response.status_code", result.Status))
	}

	entry, err := har.BuildEntry(start, snap, responseSnapshot{result})
	if err != nil {
		return result, &RecordError{Err: err}
	}
	if err := c.sink.Append(entry); err != nil {
		return result, &RecordError{Err: err}
	}

	return result, nil
}

// Close finalizes the trace archive. A second Close is a no-op.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.sink.Close()
}

func (c *Capture) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newAuthProvider(cfg config.AuthConfig) (auth.Provider, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case config.AuthTypeStatic:
		return auth.NewStaticTokenProvider(cfg.StaticToken), nil
	case config.AuthTypeBasic:
		return auth.NewBasicAuthProvider(cfg.Username, cfg.Password), nil
	case config.AuthTypeClientCredentials:
		return auth.NewClientCredentialsProvider(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scopes), nil
	default:
		return nil, fmt.Errorf("auth type %q is not supported", cfg.Type)
	}
}

// requestSnapshot freezes the prepared request's fields before the transport
// sends it, so the recorded entry describes what the capture built rather
// than any transport-internal rewrite.
type requestSnapshot struct {
	method  string
	url     string
	headers []*har.Header
	cookies []*har.Cookie
	body    string
	mime    string
	hasBody bool
}

var _ har.RequestView = (*requestSnapshot)(nil)

func (s *requestSnapshot) Method() string         { return s.method }
func (s *requestSnapshot) TargetURL() string      { return s.url }
func (s *requestSnapshot) Headers() []*har.Header { return s.headers }
func (s *requestSnapshot) Cookies() []*har.Cookie { return s.cookies }
func (s *requestSnapshot) Body() (string, string, bool) {
	return s.body, s.mime, s.hasBody
}

func snapshotRequest(req *http.Request) *requestSnapshot {
	snap := &requestSnapshot{
		method:  req.Method,
		url:     req.URL.String(),
		headers: flattenHeader(req.Header),
	}

	for _, cookie := range req.Cookies() {
		snap.cookies = append(snap.cookies, &har.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	if req.GetBody != nil && req.ContentLength != 0 {
		if reader, err := req.GetBody(); err == nil {
			data, readErr := io.ReadAll(reader)
			_ = reader.Close()
			if readErr == nil && len(data) > 0 {
				snap.body = string(data)
				snap.mime = req.Header.Get("Content-Type")
				snap.hasBody = true
			}
		}
	}

	return snap
}

// responseSnapshot adapts a Result to the entry builder's response view.
type responseSnapshot struct {
	r *Result
}

var _ har.ResponseView = responseSnapshot{}

func (s responseSnapshot) Status() int        { return s.r.Status }
func (s responseSnapshot) StatusText() string { return s.r.StatusText }
func (s responseSnapshot) Headers() []*har.Header {
	return flattenHeader(s.r.Header)
}
func (s responseSnapshot) Cookies() []*har.Cookie {
	cookies := make([]*har.Cookie, 0, len(s.r.Cookies))
	for _, cookie := range s.r.Cookies {
		cookies = append(cookies, &har.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	return cookies
}
func (s responseSnapshot) ContentText() string { return string(s.r.Body) }
func (s responseSnapshot) ContentType() string { return s.r.Header.Get("Content-Type") }
func (s responseSnapshot) FinalURL() string    { return s.r.FinalURL }

// flattenHeader enumerates an http.Header into one record per value, in
// sorted key order for deterministic output.
func flattenHeader(header http.Header) []*har.Header {
	if len(header) == 0 {
		return nil
	}

	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var records []*har.Header
	for _, key := range keys {
		for _, value := range header[key] {
			records = append(records, &har.Header{Name: key, Value: value})
		}
	}
	return records
}

// reasonPhrase extracts the reason phrase from a response status line,
// falling back to the standard text for the code.
func reasonPhrase(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if strings.HasPrefix(resp.Status, prefix) {
		return strings.TrimPrefix(resp.Status, prefix)
	}
	return http.StatusText(resp.StatusCode)
}

func finalURL(resp *http.Response) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return ""
}
