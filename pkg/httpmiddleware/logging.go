package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RouteFunc returns the route template that served r, or "" when unknown.
// It is called after the handler returns.
type RouteFunc func(r *http.Request) string

// InjectLogger stores lg in the request context, tagged with the request ID
// when RequestID ran earlier in the chain.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := lg
			if id := RequestIDFromContext(r.Context()); id != "" {
				l = l.With(zap.String("request_id", id))
			}
			next.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), l)))
		})
	}
}

// LogRequests writes one log line per request using the context logger.
// Server errors are logged at error level.
func LogRequests(route RouteFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			path := r.URL.Path
			if route != nil {
				if p := route(r); p != "" {
					path = p
				}
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", path),
				zap.Int("status", sw.code()),
				zap.Int("bytes", sw.bytes),
				zap.Duration("duration", time.Since(start)),
			}

			lg := zctx.From(r.Context())
			if sw.code() >= http.StatusInternalServerError {
				lg.Error("Request failed", fields...)
				return
			}
			lg.Info("Request", fields...)
		})
	}
}
