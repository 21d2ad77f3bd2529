package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/offer-engine/internal/domain/pricing"
)

// fail maps service errors to responses. Unknown errors are logged and
// reported as 500 without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		quantityErr *pricing.InvalidQuantityError
		productErr  *pricing.ProductNotFoundError
		lineErr     *pricing.DuplicateLineError
	)
	switch {
	case errors.Is(err, pricing.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &lineErr):
		writeError(w, http.StatusBadRequest, lineErr.Error())
	case errors.As(err, &quantityErr):
		writeError(w, http.StatusUnprocessableEntity, quantityErr.Error())
	case errors.As(err, &productErr):
		writeError(w, http.StatusUnprocessableEntity, productErr.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
