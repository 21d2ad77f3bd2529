package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

func readBody(r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) > maxBodySize {
		return nil, errors.New("request body too large")
	}
	if len(data) == 0 {
		return nil, errors.New("request body required")
	}
	return jx.DecodeBytes(data), nil
}

// optStr decodes a string that may be null.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func strArr(d *jx.Decoder) ([]string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeOffer(e *jx.Encoder, o *offer.Offer) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(o.Name) })
		if o.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.Str(o.Description) })
		}
		e.Field("type", func(e *jx.Encoder) { e.Str(string(o.Type)) })
		e.Field("discountValue", func(e *jx.Encoder) { e.Num(jx.Num(o.DiscountValue.String())) })
		if o.MinQuantity > 0 {
			e.Field("minQuantity", func(e *jx.Encoder) { e.Int(o.MinQuantity) })
		}
		if o.MaxQuantity > 0 {
			e.Field("maxQuantity", func(e *jx.Encoder) { e.Int(o.MaxQuantity) })
		}
		e.Field("scope", func(e *jx.Encoder) { encodeScope(e, o.Scope) })
		e.Field("requiresCoupon", func(e *jx.Encoder) { e.Bool(o.IsCouponGated()) })
		if o.IsCouponGated() {
			e.Field("couponCode", func(e *jx.Encoder) { e.Str(o.CouponCode) })
		}
		e.Field("startDate", func(e *jx.Encoder) { encodeTime(e, o.StartDate) })
		e.Field("endDate", func(e *jx.Encoder) { encodeTime(e, o.EndDate) })
	})
}

func encodeScope(e *jx.Encoder, s offer.Scope) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("kind", func(e *jx.Encoder) { e.Str(s.Kind().String()) })
		if id, ok := s.ProductID(); ok {
			e.Field("productId", func(e *jx.Encoder) { e.Str(id) })
		}
		if id, ok := s.CategoryID(); ok {
			e.Field("categoryId", func(e *jx.Encoder) { e.Str(id) })
		}
	})
}

func encodeValidation(e *jx.Encoder, code string, v *offer.Validation) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(code) })
		e.Field("valid", func(e *jx.Encoder) { e.Bool(v.Valid) })
		e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, v.Amount) })
		if v.Reason != "" {
			e.Field("reason", func(e *jx.Encoder) { e.Str(v.Reason) })
		}
		if v.Offer != nil {
			e.Field("offer", func(e *jx.Encoder) { encodeOffer(e, v.Offer) })
		}
	})
}
