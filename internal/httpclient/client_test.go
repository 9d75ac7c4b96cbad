package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestBuild_WithHeadersAndBody(t *testing.T) {
	spec := &RequestSpec{
		Method: "post",
		Target: "http://example.com/api",
		Headers: map[string]string{
			"content-type": "application/json",
			"X-Trace-Id":   "12345",
		},
		Body: `{"hello":"world"}`,
	}

	builder := NewRequestBuilder()
	req, err := builder.Build(context.Background(), spec)
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %s", req.Method)
	}
	if req.URL.String() != spec.Target {
		t.Fatalf("expected URL %s, got %s", spec.Target, req.URL.String())
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected canonical Content-Type header, got %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	if string(bodyBytes) != spec.Body {
		t.Fatalf("expected body %q, got %q", spec.Body, string(bodyBytes))
	}
	if req.ContentLength != int64(len(spec.Body)) {
		t.Fatalf("expected content length %d, got %d", len(spec.Body), req.ContentLength)
	}

	if req.GetBody == nil {
		t.Fatal("expected request to support body replay")
	}
	replayBody, err := req.GetBody()
	if err != nil {
		t.Fatalf("expected replay body, got error: %v", err)
	}
	replayBytes, err := io.ReadAll(replayBody)
	if err != nil {
		t.Fatalf("read replay body failed: %v", err)
	}
	if string(replayBytes) != spec.Body {
		t.Fatalf("expected replay body %q, got %q", spec.Body, string(replayBytes))
	}
}

func TestBuild_DefaultMethod(t *testing.T) {
	builder := NewRequestBuilder()
	req, err := builder.Build(context.Background(), &RequestSpec{Target: "http://example.com/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != http.MethodGet {
		t.Fatalf("expected GET default, got %s", req.Method)
	}
}

func TestBuild_ResolvesAgainstBase(t *testing.T) {
	builder, err := NewRequestBuilderWithBase("https://api.example.com/v2/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := builder.Build(context.Background(), &RequestSpec{Target: "items?x=1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.URL.String() != "https://api.example.com/v2/items?x=1" {
		t.Fatalf("unexpected resolved URL %s", req.URL.String())
	}
}

func TestBuild_RelativeTargetWithoutBase(t *testing.T) {
	builder := NewRequestBuilder()
	if _, err := builder.Build(context.Background(), &RequestSpec{Target: "/items"}); err == nil {
		t.Fatal("expected error for relative target without base")
	}
}

func TestBuild_InvalidBase(t *testing.T) {
	if _, err := NewRequestBuilderWithBase("not-absolute"); err == nil {
		t.Fatal("expected error for relative base URL")
	}
}

func TestBuild_MergesQueryParameters(t *testing.T) {
	builder := NewRequestBuilder()
	spec := &RequestSpec{
		Target: "http://example.com/search?q=widgets",
		Query:  url.Values{"page": {"2"}, "tag": {"a", "b"}},
	}

	req, err := builder.Build(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	query := req.URL.Query()
	if query.Get("q") != "widgets" {
		t.Errorf("expected original query preserved, got %q", query.Get("q"))
	}
	if query.Get("page") != "2" {
		t.Errorf("expected page=2 merged, got %q", query.Get("page"))
	}
	if tags := query["tag"]; len(tags) != 2 {
		t.Errorf("expected both tag values, got %v", tags)
	}
}

func TestBuild_Cookies(t *testing.T) {
	builder := NewRequestBuilder()
	spec := &RequestSpec{
		Target:  "http://example.com/",
		Cookies: map[string]string{"session": "abc", "csrf": "xyz"},
	}

	req, err := builder.Build(context.Background(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cookies := req.Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	// Sorted by name for determinism.
	if cookies[0].Name != "csrf" || cookies[1].Name != "session" {
		t.Errorf("expected cookies in sorted order, got %s, %s", cookies[0].Name, cookies[1].Name)
	}
}

func TestBuild_RejectsInvalidHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "empty key", headers: map[string]string{"": "v"}},
		{name: "newline in key", headers: map[string]string{"X-Bad\nKey": "v"}},
		{name: "newline in value", headers: map[string]string{"X-Key": "bad\r\nvalue"}},
	}

	builder := NewRequestBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &RequestSpec{Target: "http://example.com/", Headers: tt.headers}
			if _, err := builder.Build(context.Background(), spec); err == nil {
				t.Fatal("expected header validation error")
			}
		})
	}
}

func TestBuild_NilSpec(t *testing.T) {
	if _, err := NewRequestBuilder().Build(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil spec")
	}
}

func TestBuild_AuthInjection(t *testing.T) {
	builder, err := NewRequestBuilderWithAuth("", staticAuth{token: "tok-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := builder.Build(context.Background(), &RequestSpec{Target: "http://example.com/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok-1" {
		t.Fatalf("expected bearer token injected, got %q", got)
	}
}

type staticAuth struct{ token string }

func (a staticAuth) Token(ctx context.Context) (string, error) { return a.token, nil }
func (a staticAuth) InjectHeader(ctx context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.token)
	return nil
}
func (a staticAuth) Close() error { return nil }

func TestNewClient_RedirectPolicy(t *testing.T) {
	var redirected bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/from":
			http.Redirect(w, r, "/to", http.StatusFound)
		case "/to":
			redirected = true
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	t.Run("follows by default", func(t *testing.T) {
		redirected = false
		client := NewClient(5*time.Second, true)
		resp, err := client.Get(server.URL + "/from")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
		if !redirected {
			t.Error("expected redirect to be followed")
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("stops when disabled", func(t *testing.T) {
		redirected = false
		client := NewClient(5*time.Second, false)
		resp, err := client.Get(server.URL + "/from")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
		if redirected {
			t.Error("expected redirect not to be followed")
		}
		if resp.StatusCode != http.StatusFound {
			t.Errorf("expected 302, got %d", resp.StatusCode)
		}
	})
}

func TestNewClient_NegativeTimeout(t *testing.T) {
	client := NewClient(-1*time.Second, true)
	if client.Timeout != 0 {
		t.Fatalf("expected negative timeout clamped to 0, got %v", client.Timeout)
	}
}
