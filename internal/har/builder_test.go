package har

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeRequest struct {
	method  string
	url     string
	headers []*Header
	cookies []*Cookie
	body    string
	mime    string
	hasBody bool
}

func (f *fakeRequest) Method() string     { return f.method }
func (f *fakeRequest) TargetURL() string  { return f.url }
func (f *fakeRequest) Headers() []*Header { return f.headers }
func (f *fakeRequest) Cookies() []*Cookie { return f.cookies }
func (f *fakeRequest) Body() (string, string, bool) {
	return f.body, f.mime, f.hasBody
}

type fakeResponse struct {
	status      int
	statusText  string
	headers     []*Header
	cookies     []*Cookie
	content     string
	contentType string
	finalURL    string
}

func (f *fakeResponse) Status() int         { return f.status }
func (f *fakeResponse) StatusText() string  { return f.statusText }
func (f *fakeResponse) Headers() []*Header  { return f.headers }
func (f *fakeResponse) Cookies() []*Cookie  { return f.cookies }
func (f *fakeResponse) ContentText() string { return f.content }
func (f *fakeResponse) ContentType() string { return f.contentType }
func (f *fakeResponse) FinalURL() string    { return f.finalURL }

func okResponse() *fakeResponse {
	return &fakeResponse{
		status:     200,
		statusText: "OK",
		finalURL:   "http://example.com/items",
	}
}

func TestBuildEntry_QueryStringExpansion(t *testing.T) {
	req := &fakeRequest{
		method: "GET",
		url:    "http://example.com/items?a=1&a=2&b=3",
	}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []QueryString{
		{Name: "a", Value: "1"},
		{Name: "a", Value: "2"},
		{Name: "b", Value: "3"},
	}
	got := entry.Request.QueryString
	if len(got) != len(want) {
		t.Fatalf("expected %d query records, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Name != w.Name || got[i].Value != w.Value {
			t.Errorf("record %d: expected (%s,%s), got (%s,%s)", i, w.Name, w.Value, got[i].Name, got[i].Value)
		}
	}

	if strings.ContainsAny(entry.Request.URL, "?#") {
		t.Errorf("recorded URL must not contain query or fragment, got %q", entry.Request.URL)
	}
	if entry.Request.URL != "http://example.com/items" {
		t.Errorf("expected stripped URL, got %q", entry.Request.URL)
	}
}

func TestBuildEntry_FragmentDropped(t *testing.T) {
	req := &fakeRequest{
		method: "GET",
		url:    "https://example.com/docs?page=2#section-3",
	}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Request.URL != "https://example.com/docs" {
		t.Errorf("expected fragment and query stripped, got %q", entry.Request.URL)
	}
	if len(entry.Request.QueryString) != 1 {
		t.Fatalf("expected one query record, got %d", len(entry.Request.QueryString))
	}
}

func TestBuildEntry_EncodedQueryParameters(t *testing.T) {
	req := &fakeRequest{
		method: "GET",
		url:    "http://example.com/search?q=hello+world&lang=en%2Dus",
	}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	qs := entry.Request.QueryString
	if len(qs) != 2 {
		t.Fatalf("expected 2 query records, got %d", len(qs))
	}
	if qs[0].Name != "q" || qs[0].Value != "hello world" {
		t.Errorf("expected decoded (q,hello world), got (%s,%s)", qs[0].Name, qs[0].Value)
	}
	if qs[1].Name != "lang" || qs[1].Value != "en-us" {
		t.Errorf("expected decoded (lang,en-us), got (%s,%s)", qs[1].Name, qs[1].Value)
	}
}

func TestBuildEntry_HeadersSize(t *testing.T) {
	tests := []struct {
		name    string
		headers []*Header
		want    int
	}{
		{
			name: "no headers",
			want: 0,
		},
		{
			name: "single header",
			headers: []*Header{
				{Name: "Accept", Value: "application/json"},
			},
			want: len("Accept: application/json"),
		},
		{
			name: "joined with newline",
			headers: []*Header{
				{Name: "Accept", Value: "*/*"},
				{Name: "X-Trace-Id", Value: "abc"},
			},
			want: len("Accept: */*\nX-Trace-Id: abc"),
		},
		{
			name: "multibyte values counted in bytes",
			headers: []*Header{
				{Name: "X-Greeting", Value: "héllo"},
			},
			want: len([]byte("X-Greeting: héllo")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &fakeRequest{
				method:  "GET",
				url:     "http://example.com/",
				headers: tt.headers,
			}
			entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if entry.Request.HeadersSize != tt.want {
				t.Errorf("expected headersSize %d, got %d", tt.want, entry.Request.HeadersSize)
			}
		})
	}
}

func TestBuildEntry_BodyAbsent(t *testing.T) {
	req := &fakeRequest{method: "GET", url: "http://example.com/"}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Request.PostData != nil {
		t.Error("expected no postData for a bodyless request")
	}
	if entry.Request.BodySize != 0 {
		t.Errorf("expected bodySize 0, got %d", entry.Request.BodySize)
	}
}

func TestBuildEntry_BodyRoundTrips(t *testing.T) {
	body := `{"name":"widget","count":3}`
	req := &fakeRequest{
		method:  "POST",
		url:     "http://example.com/items",
		body:    body,
		mime:    "application/json",
		hasBody: true,
	}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Request.PostData == nil {
		t.Fatal("expected postData to be present")
	}
	if entry.Request.PostData.Text != body {
		t.Errorf("expected body to round-trip, got %q", entry.Request.PostData.Text)
	}
	if entry.Request.PostData.MimeType != "application/json" {
		t.Errorf("expected mimeType application/json, got %q", entry.Request.PostData.MimeType)
	}
	if entry.Request.BodySize != len(body) {
		t.Errorf("expected bodySize %d, got %d", len(body), entry.Request.BodySize)
	}
}

func TestBuildEntry_BodyWithoutContentType(t *testing.T) {
	req := &fakeRequest{
		method:  "POST",
		url:     "http://example.com/items",
		body:    "raw payload",
		hasBody: true,
	}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Request.PostData == nil {
		t.Fatal("expected postData to be present")
	}
	if entry.Request.PostData.MimeType != "" {
		t.Errorf("expected empty mimeType fallback, got %q", entry.Request.PostData.MimeType)
	}
}

func TestBuildEntry_RejectsZeroStart(t *testing.T) {
	req := &fakeRequest{method: "GET", url: "http://example.com/"}

	entry, err := BuildEntry(time.Time{}, req, okResponse())
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
	if entry != nil {
		t.Error("expected no entry on invalid start time")
	}
}

func TestBuildEntry_TimeMatchesWallClock(t *testing.T) {
	req := &fakeRequest{method: "GET", url: "http://example.com/"}

	start := time.Now().UTC().Add(-50 * time.Millisecond)
	entry, err := BuildEntry(start, req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Time < 50 {
		t.Errorf("expected time >= 50ms, got %f", entry.Time)
	}
	// Generous upper bound to absorb scheduling jitter.
	if entry.Time > 5000 {
		t.Errorf("expected time close to elapsed wall clock, got %f", entry.Time)
	}
}

func TestBuildEntry_TimeNeverNegative(t *testing.T) {
	req := &fakeRequest{method: "GET", url: "http://example.com/"}

	entry, err := BuildEntry(time.Now().UTC().Add(time.Hour), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Time != 0 {
		t.Errorf("expected time clamped to 0 for future start, got %f", entry.Time)
	}
}

func TestBuildEntry_TimingsWaitEqualsTime(t *testing.T) {
	req := &fakeRequest{method: "GET", url: "http://example.com/"}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Timings == nil {
		t.Fatal("expected timings to be present")
	}
	if entry.Timings.Wait != entry.Time {
		t.Errorf("expected wait %f to equal time %f", entry.Timings.Wait, entry.Time)
	}
	if entry.Timings.Send != 0 || entry.Timings.Receive != 0 {
		t.Errorf("expected send and receive to be 0, got %f and %f", entry.Timings.Send, entry.Timings.Receive)
	}
}

func TestBuildEntry_ResponseFields(t *testing.T) {
	resp := &fakeResponse{
		status:     404,
		statusText: "Not Found",
		headers: []*Header{
			{Name: "Content-Type", Value: "text/plain"},
		},
		cookies:     []*Cookie{{Name: "session", Value: "tok"}},
		content:     "missing",
		contentType: "text/plain",
		finalURL:    "http://example.com/final",
	}
	req := &fakeRequest{method: "GET", url: "http://example.com/"}

	entry, err := BuildEntry(time.Now().UTC(), req, resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := entry.Response
	if r.Status != 404 || r.StatusText != "Not Found" {
		t.Errorf("expected 404 Not Found, got %d %s", r.Status, r.StatusText)
	}
	if r.Content.Size != len("missing") {
		t.Errorf("expected content size %d, got %d", len("missing"), r.Content.Size)
	}
	if r.Content.Text != "missing" {
		t.Errorf("expected content text to round-trip, got %q", r.Content.Text)
	}
	if r.Content.MimeType != "text/plain" {
		t.Errorf("expected mimeType text/plain, got %q", r.Content.MimeType)
	}
	if r.BodySize != len("missing") {
		t.Errorf("expected bodySize %d, got %d", len("missing"), r.BodySize)
	}
	if r.RedirectURL != "http://example.com/final" {
		t.Errorf("expected redirectURL to carry the final URL, got %q", r.RedirectURL)
	}
	if r.HeadersSize != len("Content-Type: text/plain") {
		t.Errorf("unexpected response headersSize %d", r.HeadersSize)
	}
	if len(r.Cookies) != 1 || r.Cookies[0].Name != "session" {
		t.Errorf("expected one session cookie, got %+v", r.Cookies)
	}
}

func TestBuildEntry_MethodUppercasedAndVersionFixed(t *testing.T) {
	req := &fakeRequest{method: "post", url: "http://example.com/items"}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Request.Method != "POST" {
		t.Errorf("expected method POST, got %s", entry.Request.Method)
	}
	if entry.Request.HTTPVersion != ProtocolVersion {
		t.Errorf("expected request httpVersion %s, got %s", ProtocolVersion, entry.Request.HTTPVersion)
	}
	if entry.Response.HTTPVersion != ProtocolVersion {
		t.Errorf("expected response httpVersion %s, got %s", ProtocolVersion, entry.Response.HTTPVersion)
	}
}

func TestBuildEntry_EmptyCollectionsNotNil(t *testing.T) {
	req := &fakeRequest{method: "GET", url: "http://example.com/"}

	entry, err := BuildEntry(time.Now().UTC(), req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Request.Headers == nil || entry.Request.Cookies == nil || entry.Request.QueryString == nil {
		t.Error("expected request collections to be empty slices, not nil")
	}
	if entry.Response.Headers == nil || entry.Response.Cookies == nil {
		t.Error("expected response collections to be empty slices, not nil")
	}
	if entry.Cache == nil {
		t.Error("expected empty cache placeholder to be present")
	}
}

func TestBuildEntry_StartedDateTimeRoundTrips(t *testing.T) {
	req := &fakeRequest{method: "GET", url: "http://example.com/"}

	start := time.Date(2026, 8, 30, 12, 0, 0, 123456789, time.UTC)
	entry, err := BuildEntry(start, req, okResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, entry.StartedDateTime)
	if err != nil {
		t.Fatalf("startedDateTime is not RFC3339: %v", err)
	}
	if !parsed.Equal(start) {
		t.Errorf("expected startedDateTime %v, got %v", start, parsed)
	}
}
