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

type body struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func serve(t *testing.T, fn http.HandlerFunc) (int, body) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var b body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return w.Code, b
}

func ok(context.Context) error { return nil }

func fail(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		runs       int
		wantStatus int
	}{
		{name: "starts healthy", runs: 0, wantStatus: http.StatusOK},
		{name: "below threshold", runs: 2, wantStatus: http.StatusOK},
		{name: "at threshold", runs: 3, wantStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.Register(Liveness, "db", fail("connection refused"))
			for range tt.runs {
				h.checks[Liveness][0].run(context.Background())
			}

			code, b := serve(t, h.LiveEndpoint)
			assert.Equal(t, tt.wantStatus, code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "unhealthy", b.Status)
				assert.Equal(t, "connection refused", b.Checks["db"])
			} else {
				assert.Equal(t, "ok", b.Status)
			}
		})
	}
}

func TestCheckRecovers(t *testing.T) {
	h := New()
	failing := true
	h.Register(Readiness, "offers", func(context.Context) error {
		if failing {
			return errors.New("empty")
		}
		return nil
	}, WithThresholds(1, 2))
	h.SetReady(true)

	c := h.checks[Readiness][0]
	c.run(context.Background())
	assert.False(t, h.IsReady())

	failing = false
	c.run(context.Background())
	assert.False(t, h.IsReady(), "one pass is below the success threshold")
	c.run(context.Background())
	assert.True(t, h.IsReady())
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("not ready by default", func(t *testing.T) {
		h := New()
		h.Register(Readiness, "db", ok)

		code, b := serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, b.Checks, "_readiness")
	})
	t.Run("ready", func(t *testing.T) {
		h := New()
		h.Register(Readiness, "db", ok)
		h.SetReady(true)

		code, b := serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", b.Status)
		assert.Empty(t, b.Checks)
	})
	t.Run("one failing check", func(t *testing.T) {
		h := New()
		h.Register(Readiness, "db", ok)
		h.Register(Readiness, "offers", fail("no offers loaded"), WithThresholds(1, 1))
		h.SetReady(true)
		h.checks[Readiness][1].run(context.Background())

		code, b := serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "no offers loaded", b.Checks["offers"])
		assert.NotContains(t, b.Checks, "db")
	})
	t.Run("drain", func(t *testing.T) {
		h := New()
		h.SetReady(true)
		code, _ := serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)

		h.SetReady(false)
		code, _ = serve(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}

func TestStartStop(t *testing.T) {
	h := New()
	ran := make(chan struct{}, 1)
	h.Register(Liveness, "tick", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	h.Start(context.Background(), time.Hour)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("check did not run on start")
	}
	h.Stop()
	h.Stop()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingCheck(pinger{})(ctx))
	assert.ErrorContains(t, PingCheck(pinger{err: errors.New("refused")})(ctx), "refused")

	assert.NoError(t, GoroutineCountCheck(1<<20)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	count := func(n int, err error) func(context.Context) (int, error) {
		return func(context.Context) (int, error) { return n, err }
	}
	assert.NoError(t, NonEmptyCheck("offers", count(3, nil))(ctx))
	assert.EqualError(t, NonEmptyCheck("offers", count(0, nil))(ctx), "no offers loaded")
	assert.Error(t, NonEmptyCheck("offers", count(0, errors.New("boom")))(ctx))
}
