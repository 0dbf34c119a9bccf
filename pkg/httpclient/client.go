// Package httpclient provides composable http.RoundTripper middleware for
// outbound API calls: request IDs, request logging, retries, throttling, and
// OpenTelemetry instrumentation.
package httpclient

import "net/http"

// Middleware wraps an http.RoundTripper with additional behaviour.
type Middleware func(http.RoundTripper) http.RoundTripper

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Wrap applies middlewares to rt. The first middleware is the outermost: it
// sees the request first and the response last. A nil rt defaults to
// http.DefaultTransport.
func Wrap(rt http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}
