package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

type validateCouponRequest struct {
	Code       string
	ProductIDs []string
}

func (req *validateCouponRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "code":
			req.Code, err = d.Str()
		case "productIds":
			req.ProductIDs, err = strArr(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

// ValidateCoupon handles POST /coupons/validate. Rejected codes are reported
// with 200 and valid=false.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req validateCouponRequest
	if err := req.Decode(d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.pricing.ValidateCoupon(r.Context(), req.Code, req.ProductIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeValidation(e, req.Code, v)
	})
}
