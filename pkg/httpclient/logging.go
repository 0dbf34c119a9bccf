package httpclient

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LogRequests returns a middleware that logs every outbound request with its
// method, URL, status, and duration. The logger comes from the request
// context via zctx; when a trace span is active its trace ID is attached.
func LogRequests() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			lg := zctx.From(req.Context())
			if sc := trace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
				lg = lg.With(zap.String("trace_id", sc.TraceID().String()))
			}

			start := time.Now()
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
				zap.Duration("duration", elapsed),
			}
			if err != nil {
				lg.Warn("Request failed", append(fields, zap.Error(err))...)
				return nil, err
			}

			lg.Debug("Request completed", append(fields, zap.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}
