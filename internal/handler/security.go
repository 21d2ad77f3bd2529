package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/offer-engine/internal/domain/auth"
)

// RequireAPIKey rejects requests whose api_key header does not resolve to a
// key holding scope.
func (h *Handler) RequireAPIKey(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := h.auth.Authenticate(r.Context(), r.Header.Get(APIKeyHeader), scope)
			if errors.Is(err, auth.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if err != nil {
				h.fail(w, r, err)
				return
			}
			ctx := zctx.With(r.Context(), zap.String("api_key_id", info.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
