package har

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ProtocolVersion is the HTTP version label recorded for requests and
// responses. The capture request is assembled before the transport negotiates
// a protocol, so entries carry a fixed HTTP/1.1 label.
const ProtocolVersion = "HTTP/1.1"

// ErrInvalidTimestamp is returned when the start instant is not a usable
// timezone-aware time (the zero time carries no real instant or zone).
var ErrInvalidTimestamp = errors.New("start time must be a non-zero, timezone-aware instant")

// BuildEntry converts one request/response exchange into a HAR entry.
//
// start must be the instant the request was handed to the transport; the
// elapsed time recorded in the entry is measured from start to the moment
// BuildEntry runs, which callers should arrange to be the moment the response
// became available. The function performs no I/O and does not mutate its
// inputs.
func BuildEntry(start time.Time, req RequestView, resp ResponseView) (*Entry, error) {
	if start.IsZero() {
		return nil, ErrInvalidTimestamp
	}

	harReq, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	if elapsed < 0 {
		elapsed = 0
	}
	elapsedMs := float64(elapsed) / float64(time.Millisecond)

	return &Entry{
		StartedDateTime: start.Format(time.RFC3339Nano),
		Time:            elapsedMs,
		Request:         harReq,
		Response:        buildResponse(resp),
		Cache:           &Cache{},
		Timings: &Timings{
			// The underlying client exposes no phase-level timing, so the
			// whole elapsed duration is attributed to the wait phase.
			Send:    0,
			Wait:    elapsedMs,
			Receive: 0,
		},
	}, nil
}

func buildRequest(req RequestView) (*Request, error) {
	target, err := url.Parse(req.TargetURL())
	if err != nil {
		return nil, fmt.Errorf("parse request URL: %w", err)
	}

	query := parseQueryOrdered(target.RawQuery)

	// The recorded URL carries scheme, authority and path only. The query is
	// represented exclusively via queryString and the fragment is dropped.
	recorded := *target
	recorded.RawQuery = ""
	recorded.Fragment = ""
	recorded.RawFragment = ""

	headers := req.Headers()
	harReq := &Request{
		Method:      strings.ToUpper(req.Method()),
		URL:         recorded.String(),
		HTTPVersion: ProtocolVersion,
		Headers:     nonNilHeaders(headers),
		QueryString: query,
		Cookies:     nonNilCookies(req.Cookies()),
		HeadersSize: headerBlockSize(headers),
	}

	if text, mimeType, present := req.Body(); present && text != "" {
		harReq.PostData = &PostData{MimeType: mimeType, Text: text}
		harReq.BodySize = len(text)
	}

	return harReq, nil
}

func buildResponse(resp ResponseView) *Response {
	headers := resp.Headers()
	text := resp.ContentText()

	return &Response{
		Status:      resp.Status(),
		StatusText:  resp.StatusText(),
		HTTPVersion: ProtocolVersion,
		Headers:     nonNilHeaders(headers),
		Cookies:     nonNilCookies(resp.Cookies()),
		Content: &Content{
			Size:     len(text),
			MimeType: resp.ContentType(),
			Text:     text,
		},
		RedirectURL: resp.FinalURL(),
		HeadersSize: headerBlockSize(headers),
		BodySize:    len(text),
	}
}

// parseQueryOrdered expands a raw query string into one QueryString record per
// occurrence, preserving document order. Components that fail to unescape are
// kept verbatim rather than dropped.
func parseQueryOrdered(rawQuery string) []*QueryString {
	params := []*QueryString{}
	if rawQuery == "" {
		return params
	}

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		params = append(params, &QueryString{Name: name, Value: value})
	}

	return params
}

// headerBlockSize computes the UTF-8 byte length of the newline-joined
// "Name: value" header block, 0 when there are no headers.
func headerBlockSize(headers []*Header) int {
	if len(headers) == 0 {
		return 0
	}
	lines := make([]string, 0, len(headers))
	for _, h := range headers {
		lines = append(lines, h.Name+": "+h.Value)
	}
	return len(strings.Join(lines, "\n"))
}

// HAR consumers expect header/cookie collections to serialize as arrays,
// never null.
func nonNilHeaders(headers []*Header) []*Header {
	if headers == nil {
		return []*Header{}
	}
	return headers
}

func nonNilCookies(cookies []*Cookie) []*Cookie {
	if cookies == nil {
		return []*Cookie{}
	}
	return cookies
}
