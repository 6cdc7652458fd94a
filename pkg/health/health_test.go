package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func hitEndpoint(endpoint http.HandlerFunc, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("one", time.Second, passing())
	h.AddLivenessCheck("two", time.Second, passing())

	w := hitEndpoint(h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, w.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failing("connection refused"))

	ctx := context.Background()

	// Two consecutive failures stay under the threshold of three.
	h.liveness[0].run(ctx)
	h.liveness[0].run(ctx)
	assert.Equal(t, http.StatusOK, hitEndpoint(h.LiveEndpoint, "/livez").Code)

	// The third failure flips the probe.
	h.liveness[0].run(ctx)
	w := hitEndpoint(h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestReadyEndpoint_ManualGate(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passing())

	// Not marked ready yet.
	w := hitEndpoint(h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, hitEndpoint(h.ReadyEndpoint, "/readyz").Code)
	assert.True(t, h.IsReady())

	// Draining during shutdown.
	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, hitEndpoint(h.ReadyEndpoint, "/readyz").Code)
	assert.False(t, h.IsReady())
}

func TestProbeRecovery(t *testing.T) {
	calls := 0
	flaky := func(context.Context) error {
		calls++
		if calls <= 3 {
			return errors.New("still warming up")
		}
		return nil
	}

	h := New()
	h.AddReadinessCheck("cache", time.Second, flaky)
	h.SetReady(true)

	ctx := context.Background()
	for range 3 {
		h.readiness[0].run(ctx)
	}
	assert.False(t, h.IsReady())

	// One success is enough to recover.
	h.readiness[0].run(ctx)
	assert.True(t, h.IsReady())
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
