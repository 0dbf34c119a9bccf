package httpclient

import (
	"io"
	"net/http"
	"time"
)

// RetryConfig controls the retry middleware.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the first retry; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
}

// Retry returns a middleware that retries idempotent requests (GET and HEAD,
// or any request with no body) on transport errors, 5xx responses, and 429,
// with exponential backoff. A GET or HEAD carrying a body is only retried
// when the body can be rewound via GetBody. Context cancellation stops the
// retry loop.
func Retry(cfg RetryConfig) Middleware {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !retryable(req) {
				return next.RoundTrip(req)
			}

			var (
				resp *http.Response
				err  error
			)
			delay := cfg.BaseDelay
			for attempt := 1; ; attempt++ {
				resp, err = next.RoundTrip(req)
				if attempt >= cfg.MaxAttempts || !shouldRetry(resp, err) {
					return resp, err
				}

				// The response will be replaced; release the connection.
				if resp != nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
				}

				// The first attempt consumed the body; rewind it for the next.
				if req.Body != nil && req.Body != http.NoBody {
					body, rewindErr := req.GetBody()
					if rewindErr != nil {
						return nil, rewindErr
					}
					req = req.Clone(req.Context())
					req.Body = body
				}

				select {
				case <-req.Context().Done():
					return nil, req.Context().Err()
				case <-time.After(delay):
				}

				delay *= 2
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			}
		})
	}
}

// retryable reports whether the request can be safely re-sent: GET and HEAD,
// or any request without a body. A request carrying a body must also be
// rewindable through GetBody, since the first attempt consumes it.
func retryable(req *http.Request) bool {
	hasBody := req.Body != nil && req.Body != http.NoBody
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return !hasBody || req.GetBody != nil
	}
	return !hasBody
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}
