// Package httpclient builds and configures the HTTP requests that harfire
// captures.
//
// A [RequestSpec] enumerates exactly the recognized request options: method,
// target, headers, query parameters, cookies, body and body file. The
// [RequestBuilder] turns specs into prepared http.Requests, resolving
// relative targets against an optional base URL:
//
//	builder, err := httpclient.NewRequestBuilderWithBase("https://api.example.com")
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx, &httpclient.RequestSpec{Method: "GET", Target: "/items"})
//
// For requests requiring authentication, use [NewRequestBuilderWithAuth] with
// a provider from [github.com/torosent/harfire/internal/auth].
//
// [NewClient] creates the underlying http.Client with a tuned transport and
// optional redirect following:
//
//	client := httpclient.NewClient(30*time.Second, true)
//	resp, err := client.Do(req)
package httpclient
