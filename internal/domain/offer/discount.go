package offer

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero

	// DefaultSampleUnitPrice is the reference unit price used to preview a
	// coupon's discount when no cart is available.
	DefaultSampleUnitPrice = decimal.NewFromInt(100)
)

// Strategy returns the calculation strategy the offer is evaluated with.
// Coupon-code offers use their CouponBasis when it names another known type
// and fall back to the percentage formula otherwise.
func (o *Offer) Strategy() Type {
	if o.Type != TypeCouponCode {
		return o.Type
	}
	switch o.CouponBasis {
	case TypeBuyOneGetOne, TypePercentage, TypeFlat, TypeQuantityBased, TypeFestivalSale:
		return o.CouponBasis
	default:
		return TypePercentage
	}
}

// Calculate returns the discount the offer yields for a line of quantity
// units at unitPrice. The result is rounded to 2 decimal places and always
// lies within [0, quantity*unitPrice].
func Calculate(o *Offer, quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if !subtotal.IsPositive() {
		return zero
	}
	if o.Type == TypeCouponCode && !o.withinQuantity(quantity) {
		return zero
	}

	var amount decimal.Decimal
	switch o.Strategy() {
	case TypePercentage, TypeFestivalSale:
		amount = percentageOf(subtotal, o.DiscountValue)
	case TypeFlat:
		amount = decimal.Min(o.DiscountValue, subtotal)
	case TypeBuyOneGetOne:
		if o.MinQuantity > 0 && quantity < o.MinQuantity {
			return zero
		}
		amount = unitPrice.Mul(decimal.NewFromInt(int64(quantity / 2)))
	case TypeQuantityBased:
		if !o.withinQuantity(quantity) {
			return zero
		}
		amount = percentageOf(subtotal, o.DiscountValue)
	default:
		return zero
	}

	return clamp(amount.Round(2), subtotal)
}

// CalculateLine is Calculate applied to a cart line.
func CalculateLine(o *Offer, line Line) decimal.Decimal {
	return Calculate(o, line.Quantity, line.UnitPrice)
}

// SampleAmount returns an illustrative discount for one unit priced at
// unitPrice. It must not be used for charging.
func SampleAmount(o *Offer, unitPrice decimal.Decimal) decimal.Decimal {
	return Calculate(o, 1, unitPrice)
}

// withinQuantity reports whether quantity satisfies the inclusive
// [MinQuantity, MaxQuantity] bounds, where zero bounds are open.
func (o *Offer) withinQuantity(quantity int) bool {
	if quantity < o.MinQuantity {
		return false
	}
	if o.MaxQuantity > 0 && quantity > o.MaxQuantity {
		return false
	}
	return true
}

func percentageOf(subtotal, pct decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(pct).Div(hundred)
}

// clamp bounds d to [0, upper].
func clamp(d, upper decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	if d.GreaterThan(upper) {
		return upper
	}
	return d
}
