package har

// RequestView exposes the outgoing-request fields the entry builder reads.
// Any HTTP client adapter that can answer these accessors can be recorded.
type RequestView interface {
	// Method returns the HTTP verb.
	Method() string

	// TargetURL returns the fully resolved request URL, including any query
	// string and fragment.
	TargetURL() string

	// Headers returns the request headers in their enumeration order. A
	// repeated header name yields one element per occurrence.
	Headers() []*Header

	// Cookies returns the request cookies as name/value pairs.
	Cookies() []*Cookie

	// Body returns the encoded request body and its declared content type.
	// present is false when the request carries no body.
	Body() (text, mimeType string, present bool)
}

// ResponseView exposes the incoming-response fields the entry builder reads.
type ResponseView interface {
	// Status returns the HTTP status code.
	Status() int

	// StatusText returns the reason phrase.
	StatusText() string

	// Headers returns the response headers in their enumeration order.
	Headers() []*Header

	// Cookies returns the response cookies as name/value pairs.
	Cookies() []*Cookie

	// ContentText returns the decoded response body.
	ContentText() string

	// ContentType returns the response Content-Type header, or "" when absent.
	ContentType() string

	// FinalURL returns the response URL after any redirects were followed.
	FinalURL() string
}
