package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/offer-engine/internal/domain/pricing"
)

type quoteRequest struct {
	Items      []pricing.Item
	CouponCode string
}

func (req *quoteRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var item pricing.Item
				if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					var err error
					switch string(key) {
					case "id":
						item.LineID, err = d.Str()
					case "productId":
						item.ProductID, err = d.Str()
					case "quantity":
						item.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		case "couponCode":
			var err error
			req.CouponCode, err = optStr(d)
			return err
		default:
			return d.Skip()
		}
	})
}

// CreateQuote handles POST /quotes. The response reports the automatic plan
// and, when a code was sent, the coupon verdict. The coupon discount is not
// folded into total.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req quoteRequest
	if err := req.Decode(d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := h.pricing.Resolve(r.Context(), pricing.Cart{Items: req.Items, CouponCode: req.CouponCode})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuote(e, req.CouponCode, q) })
}

func encodeQuote(e *jx.Encoder, code string, q *pricing.Quote) {
	discount := q.Plan.Total()
	e.Obj(func(e *jx.Encoder) {
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, q.Subtotal) })
		e.Field("automaticDiscount", func(e *jx.Encoder) { encodeMoney(e, discount) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, q.Subtotal.Sub(discount)) })
		e.Field("lines", func(e *jx.Encoder) {
			e.ArrStart()
			for _, lr := range q.Plan.Lines {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(lr.Line.ID) })
					e.Field("productId", func(e *jx.Encoder) { e.Str(lr.Line.ProductID) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(lr.Line.Quantity) })
					e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, lr.Line.UnitPrice) })
					e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, lr.Line.Subtotal()) })
					if lr.Selected == nil {
						e.Field("discount", func(e *jx.Encoder) { e.Num(jx.Num("0.00")) })
						e.Field("offer", func(e *jx.Encoder) { e.Null() })
					} else {
						sel := lr.Selected
						e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, sel.Amount) })
						e.Field("offer", func(e *jx.Encoder) { encodeOffer(e, &sel.Offer) })
					}
					e.Field("candidates", func(e *jx.Encoder) {
						e.ArrStart()
						for _, c := range lr.Candidates {
							e.Obj(func(e *jx.Encoder) {
								e.Field("offerId", func(e *jx.Encoder) { e.Str(c.Offer.ID) })
								e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, c.Amount) })
							})
						}
						e.ArrEnd()
					})
				})
			}
			e.ArrEnd()
		})
		if q.Coupon != nil {
			e.Field("coupon", func(e *jx.Encoder) { encodeValidation(e, code, q.Coupon) })
		}
	})
}
