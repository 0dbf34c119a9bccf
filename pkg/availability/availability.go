// Package availability monitors whether the remote backend is reachable.
//
// Each registered check runs periodically in a background goroutine. Checks
// use consecutive failure/success thresholds so a single dropped request does
// not flap the storefront into offline mode: a check must fail
// failureThreshold times in a row before being marked unavailable, and
// succeed successThreshold times before being marked available again.
package availability

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// CheckFunc probes one backend dependency. It returns nil when the
// dependency is reachable.
type CheckFunc func(ctx context.Context) error

// check holds the configuration and runtime state for a single probe.
//
// run() is serialized by the Monitor's probe mutex, so the consecutive
// counters need no synchronization of their own. available and lastErr are
// read from arbitrary goroutines and use atomics.
type check struct {
	name             string
	timeout          time.Duration
	fn               CheckFunc
	failureThreshold int
	successThreshold int

	available atomic.Bool
	lastErr   atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func (c *check) run(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(probeCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.consecutiveOK = 0
		c.consecutiveFails++
		if c.consecutiveFails >= c.failureThreshold {
			c.available.Store(false)
		}
	} else {
		c.consecutiveFails = 0
		c.consecutiveOK++
		if c.consecutiveOK >= c.successThreshold {
			c.available.Store(true)
		}
	}
}

// Status describes the current state of one check.
type Status struct {
	Name      string
	Available bool
	Err       error
}

// Monitor runs availability checks and aggregates their state. The
// storefront uses it to gate checkout while the backend is unreachable.
type Monitor struct {
	// mu protects checks and cancel. Registration happens before Start.
	mu     sync.RWMutex
	checks []*check
	cancel context.CancelFunc
	done   chan struct{}

	// probeMu serializes probe execution: RunOnce may be called directly
	// while the Start loop is running.
	probeMu sync.Mutex
}

// NewMonitor creates a Monitor with no checks.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// AddCheck registers a probe. Checks start out available; the backend has to
// prove itself down, not up.
func (m *Monitor) AddCheck(name string, timeout time.Duration, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: 3,
		successThreshold: 1,
	}
	c.available.Store(true)
	m.checks = append(m.checks, c)
}

// Start launches the background probe loop. Probes run once immediately and
// then every interval until Stop is called or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go m.loop(ctx, interval)
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	m.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce executes every check a single time. It is called by the probe loop
// and can be called directly for a one-shot probe before a critical action;
// overlapping calls are serialized.
func (m *Monitor) RunOnce(ctx context.Context) {
	m.mu.RLock()
	checks := make([]*check, len(m.checks))
	copy(checks, m.checks)
	m.mu.RUnlock()

	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	for _, c := range checks {
		c.run(ctx)
	}
}

// Stop halts the probe loop and waits for it to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Available reports whether every check currently considers the backend
// reachable. A Monitor with no checks is always available.
func (m *Monitor) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.checks {
		if !c.available.Load() {
			return false
		}
	}
	return true
}

// StatusAll returns the current state of every check.
func (m *Monitor) StatusAll() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, len(m.checks))
	for i, c := range m.checks {
		var err error
		if p := c.lastErr.Load(); p != nil {
			err = *p
		}
		out[i] = Status{Name: c.name, Available: c.available.Load(), Err: err}
	}
	return out
}

// HTTPCheck returns a CheckFunc that considers the backend reachable when a
// GET to url completes with a 2xx status.
func HTTPCheck(client *http.Client, url string) CheckFunc {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "build request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return errors.Wrap(err, "probe backend")
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return errors.Errorf("backend returned status %d", resp.StatusCode)
		}
		return nil
	}
}
