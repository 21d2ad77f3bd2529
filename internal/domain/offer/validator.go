package offer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rejection reasons reported by coupon validation.
const (
	ReasonInvalidOrExpired = "invalid or expired coupon code"
	ReasonNotApplicable    = "coupon does not apply to selected items"
)

// Validation is the verdict for a submitted coupon code. Business rejections
// are reported here with a Reason rather than as errors.
type Validation struct {
	Valid  bool
	Offer  *Offer
	Amount decimal.Decimal
	Reason string
}

// FindByCode returns the first offer whose coupon code equals code,
// ignoring case and surrounding whitespace.
func FindByCode(offers []Offer, code string) (*Offer, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false
	}
	for i := range offers {
		if offers[i].IsCouponGated() && strings.EqualFold(strings.TrimSpace(offers[i].CouponCode), code) {
			return &offers[i], true
		}
	}
	return nil, false
}

// ValidateCoupon checks code against the offer snapshot. When lines are
// given the offer must cover at least one of them and the amount is the sum
// of its discounts over the covered lines; otherwise the amount is the
// sample discount for one unit at sampleUnitPrice.
func ValidateCoupon(code string, offers []Offer, lines []Line, now time.Time, sampleUnitPrice decimal.Decimal) Validation {
	o, ok := FindByCode(offers, code)
	if !ok || !o.IsValid(now) {
		return Validation{Reason: ReasonInvalidOrExpired, Amount: zero}
	}

	matched := *o
	if len(lines) == 0 {
		return Validation{
			Valid:  true,
			Offer:  &matched,
			Amount: SampleAmount(&matched, sampleUnitPrice),
		}
	}

	if !matched.MatchesAny(lines) {
		return Validation{Offer: &matched, Reason: ReasonNotApplicable, Amount: zero}
	}

	amount := zero
	for _, l := range lines {
		if matched.Matches(l) {
			amount = amount.Add(CalculateLine(&matched, l))
		}
	}
	return Validation{Valid: true, Offer: &matched, Amount: amount}
}
