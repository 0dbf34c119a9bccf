package httpclient

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Instrument returns a middleware that wraps the transport with OpenTelemetry
// HTTP client instrumentation: one span per outbound request plus the
// standard client metrics.
func Instrument(serviceName string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return otelhttp.NewTransport(next,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return serviceName + " " + r.Method + " " + r.URL.Path
			}),
		)
	}
}
