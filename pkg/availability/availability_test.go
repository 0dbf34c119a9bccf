package availability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flappable is a CheckFunc whose outcome can be switched at runtime.
type flappable struct {
	fail atomic.Bool
}

func (f *flappable) check(_ context.Context) error {
	if f.fail.Load() {
		return errors.New("unreachable")
	}
	return nil
}

func TestMonitor_NoChecksIsAvailable(t *testing.T) {
	m := NewMonitor()
	assert.True(t, m.Available())
}

func TestMonitor_StartsOptimistic(t *testing.T) {
	m := NewMonitor()
	m.AddCheck("api", time.Second, func(context.Context) error { return nil })
	assert.True(t, m.Available())
}

func TestMonitor_RequiresThreeConsecutiveFailures(t *testing.T) {
	f := &flappable{}
	f.fail.Store(true)

	m := NewMonitor()
	m.AddCheck("api", time.Second, f.check)

	ctx := context.Background()
	m.RunOnce(ctx)
	assert.True(t, m.Available(), "one failure must not flip availability")
	m.RunOnce(ctx)
	assert.True(t, m.Available())
	m.RunOnce(ctx)
	assert.False(t, m.Available(), "third consecutive failure flips it")
}

func TestMonitor_SingleSuccessRecovers(t *testing.T) {
	f := &flappable{}
	f.fail.Store(true)

	m := NewMonitor()
	m.AddCheck("api", time.Second, f.check)

	ctx := context.Background()
	for range 3 {
		m.RunOnce(ctx)
	}
	require.False(t, m.Available())

	f.fail.Store(false)
	m.RunOnce(ctx)
	assert.True(t, m.Available())
}

func TestMonitor_InterleavedFailuresDoNotAccumulate(t *testing.T) {
	f := &flappable{}
	m := NewMonitor()
	m.AddCheck("api", time.Second, f.check)

	ctx := context.Background()
	for range 5 {
		f.fail.Store(true)
		m.RunOnce(ctx)
		f.fail.Store(false)
		m.RunOnce(ctx)
	}
	assert.True(t, m.Available(), "a success resets the failure streak")
}

func TestMonitor_ConcurrentRunOnceKeepsFailureStreak(t *testing.T) {
	f := &flappable{}
	f.fail.Store(true)

	m := NewMonitor()
	m.AddCheck("api", time.Second, f.check)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RunOnce(context.Background())
		}()
	}
	wg.Wait()

	assert.False(t, m.Available(), "six serialized failures must flip availability")
}

func TestMonitor_StatusAllReportsLastError(t *testing.T) {
	f := &flappable{}
	f.fail.Store(true)

	m := NewMonitor()
	m.AddCheck("api", time.Second, f.check)
	m.RunOnce(context.Background())

	statuses := m.StatusAll()
	require.Len(t, statuses, 1)
	assert.Equal(t, "api", statuses[0].Name)
	assert.Error(t, statuses[0].Err)
}

func TestMonitor_StartStop(t *testing.T) {
	var probes atomic.Int32
	m := NewMonitor()
	m.AddCheck("api", time.Second, func(context.Context) error {
		probes.Add(1)
		return nil
	})

	m.Start(context.Background(), 10*time.Millisecond)
	assert.Eventually(t, func() bool { return probes.Load() >= 2 },
		time.Second, 5*time.Millisecond)
	m.Stop()

	after := probes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, probes.Load(), "no probes after Stop")
}

func TestHTTPCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthy" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx := context.Background()
	assert.NoError(t, HTTPCheck(srv.Client(), srv.URL+"/healthy")(ctx))
	assert.Error(t, HTTPCheck(srv.Client(), srv.URL+"/down")(ctx))
}
