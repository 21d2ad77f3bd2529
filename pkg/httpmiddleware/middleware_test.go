package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "missing", incoming: "", reuse: false},
		{name: "valid", incoming: "abc-123", reuse: true},
		{name: "control chars", incoming: "bad\x01id", reuse: false},
		{name: "too long", incoming: strings.Repeat("x", 129), reuse: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			if tt.reuse {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}

func TestLoggingChain(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	lg := zap.New(core)

	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("Inside")
		w.WriteHeader(http.StatusTeapot)
	}),
		RequestID(),
		InjectLogger(lg),
		LogRequests(func(*http.Request) string { return "/api/things/{id}" }),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/things/7", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Inside", entries[0].Message)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])

	fields := entries[1].ContextMap()
	assert.Equal(t, "/api/things/{id}", fields["route"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestLogRequests_ServerErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), InjectLogger(zap.New(core)), LogRequests(nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "/x", entry.ContextMap()["route"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), InjectLogger(zap.New(core)), Recovery())

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}
