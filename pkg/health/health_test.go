package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func serve(t *testing.T, h http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func fail(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func pass(context.Context) error { return nil }

func TestLive_Passing(t *testing.T) {
	h := New()
	h.Add(Liveness, "a", time.Second, pass)

	code, body := serve(t, h.LiveHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLive_FailsAfterThreshold(t *testing.T) {
	h := New()
	h.Add(Liveness, "db", time.Second, fail("connection refused"))
	p := h.probes[Liveness][0]
	ctx := context.Background()

	for range FailureThreshold - 1 {
		p.run(ctx)
	}
	code, _ := serve(t, h.LiveHandler())
	assert.Equal(t, http.StatusOK, code, "below threshold must stay healthy")

	p.run(ctx)
	code, body := serve(t, h.LiveHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestProbe_RecoversOnSuccess(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	h := New()
	h.Add(Readiness, "flappy", time.Second, func(context.Context) error {
		if failing.Load() {
			return errors.New("down")
		}
		return nil
	})
	h.SetReady(true)
	p := h.probes[Readiness][0]

	for range FailureThreshold {
		p.run(context.Background())
	}
	assert.False(t, h.Ready())

	failing.Store(false)
	p.run(context.Background())
	assert.True(t, h.Ready())
}

func TestReady_ManualFlag(t *testing.T) {
	h := New()
	h.Add(Readiness, "db", time.Second, pass)

	code, body := serve(t, h.ReadyHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	code, _ = serve(t, h.ReadyHandler())
	assert.Equal(t, http.StatusOK, code)
}

func TestStart_RunsChecks(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Add(Readiness, "count", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	h.Stop()

	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, calls.Load(), "no checks after Stop")
	h.Stop()
}

func TestCheck_Timeout(t *testing.T) {
	h := New()
	h.Add(Liveness, "slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	p := h.probes[Liveness][0]
	for range FailureThreshold {
		p.run(context.Background())
	}
	_, body := serve(t, h.LiveHandler())
	assert.Equal(t, context.DeadlineExceeded.Error(), body.Checks["slow"])
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, PingCheck(pinger{})(ctx))
	require.Error(t, PingCheck(pinger{err: errors.New("x")})(ctx))
	require.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	require.Error(t, GoroutineCountCheck(0)(ctx))
}
