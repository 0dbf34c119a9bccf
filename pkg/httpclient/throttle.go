package httpclient

import (
	"net/http"
	"sync"
	"time"
)

// ThrottleConfig configures the outbound sliding window throttle.
type ThrottleConfig struct {
	// Max is the maximum number of requests per window.
	Max int
	// Window is the duration of each sliding window.
	Window time.Duration
}

// throttle tracks request counts across two adjacent windows for the sliding
// window estimate.
type throttle struct {
	cfg ThrottleConfig

	mu        sync.Mutex
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

// Throttle returns a middleware that keeps the client within Max requests per
// Window, waiting before sending when the budget is exhausted. The sliding
// window weighs the previous window by its overlap with the current one, so
// bursts at window edges cannot double the effective rate.
func Throttle(cfg ThrottleConfig) Middleware {
	t := &throttle{cfg: cfg}
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			for {
				wait, ok := t.reserve(time.Now())
				if ok {
					break
				}
				select {
				case <-req.Context().Done():
					return nil, req.Context().Err()
				case <-time.After(wait):
				}
			}
			return next.RoundTrip(req)
		})
	}
}

// reserve records a request at time now when the budget allows it. Otherwise
// it returns how long the caller should wait before trying again.
func (t *throttle) reserve(now time.Time) (wait time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.currStart.IsZero() {
		t.currStart = now
	}

	// Rotate when the current window has elapsed.
	if elapsed := now.Sub(t.currStart); elapsed >= t.cfg.Window {
		t.prevCount = t.currCount
		t.prevStart = t.currStart
		t.currCount = 0
		t.currStart = now.Truncate(t.cfg.Window)
		if now.Sub(t.prevStart) >= 2*t.cfg.Window {
			t.prevCount = 0
		}
	}

	elapsed := now.Sub(t.currStart)
	overlap := 1.0 - elapsed.Seconds()/t.cfg.Window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	weighted := t.prevCount*overlap + t.currCount

	if int(weighted) >= t.cfg.Max {
		return t.cfg.Window - elapsed, false
	}

	t.currCount++
	return 0, true
}
