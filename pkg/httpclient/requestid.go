package httpclient

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID returns a middleware that stamps every outbound request with an
// X-Request-ID header so calls can be correlated with backend logs. A header
// already set by the caller is kept if it is valid: at most 128 bytes of
// printable ASCII (0x20-0x7E).
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !isValidRequestID(req.Header.Get("X-Request-ID")) {
				req = req.Clone(req.Context())
				req.Header.Set("X-Request-ID", uuid.New().String())
			}
			return next.RoundTrip(req)
		})
	}
}

func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}
