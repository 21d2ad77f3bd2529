package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/jx"
)

// ApplicableOffers handles GET /offers/applicable.
//
// productId may be repeated or comma separated. autoApply defaults to true
// and couponOnly to false.
func (h *Handler) ApplicableOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	autoApply, err := boolParam(q.Get("autoApply"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "autoApply must be a boolean")
		return
	}
	couponOnly, err := boolParam(q.Get("couponOnly"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "couponOnly must be a boolean")
		return
	}

	offers, err := h.pricing.GetApplicableOffers(r.Context(), splitIDs(q["productId"]), autoApply, couponOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("offers", func(e *jx.Encoder) {
				e.ArrStart()
				for i := range offers {
					encodeOffer(e, &offers[i])
				}
				e.ArrEnd()
			})
		})
	})
}

func boolParam(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

func splitIDs(values []string) []string {
	var out []string
	for _, v := range values {
		for id := range strings.SplitSeq(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}
