package offer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Type enumerates the supported offer discount strategies.
type Type string

const (
	// TypeBuyOneGetOne makes every second unit of a line free.
	TypeBuyOneGetOne Type = "buy_one_get_one"
	// TypePercentage applies a percentage of the line subtotal.
	TypePercentage Type = "percentage_discount"
	// TypeFlat applies a fixed monetary amount capped at the line subtotal.
	TypeFlat Type = "flat_discount"
	// TypeQuantityBased applies a percentage once the line quantity is within bounds.
	TypeQuantityBased Type = "quantity_based_discount"
	// TypeCouponCode is evaluated with its CouponBasis strategy, percentage by default.
	TypeCouponCode Type = "coupon_code"
	// TypeFestivalSale is a storewide percentage promotion.
	TypeFestivalSale Type = "festival_sale"
)

// Types returns every known offer type.
func Types() []Type {
	return []Type{
		TypeBuyOneGetOne,
		TypePercentage,
		TypeFlat,
		TypeQuantityBased,
		TypeCouponCode,
		TypeFestivalSale,
	}
}

// Valid reports whether t is one of the known offer types.
func (t Type) Valid() bool {
	switch t {
	case TypeBuyOneGetOne, TypePercentage, TypeFlat, TypeQuantityBased, TypeCouponCode, TypeFestivalSale:
		return true
	default:
		return false
	}
}

// Offer is the declarative description of one promotion.
type Offer struct {
	ID          string
	Name        string
	Description string
	Type        Type
	// DiscountValue is a percentage or a currency amount depending on Type.
	DiscountValue decimal.Decimal
	// MinQuantity and MaxQuantity are inclusive line quantity bounds. Zero means unbounded.
	MinQuantity int
	MaxQuantity int
	Scope       Scope
	// CouponCode gates the offer behind a user-entered code when non-empty.
	CouponCode string
	// CouponBasis is the calculation strategy used by TypeCouponCode offers.
	CouponBasis Type
	StartDate   time.Time
	EndDate     time.Time
	Active      bool
}

// IsCouponGated reports whether the offer requires an explicit code to apply.
func (o *Offer) IsCouponGated() bool {
	return o.CouponCode != ""
}

// IsAutomatic reports whether the offer may be applied without user action.
func (o *Offer) IsAutomatic() bool {
	return o.CouponCode == ""
}

// Line is a read-only cart line supplied by checkout.
type Line struct {
	ID         string
	ProductID  string
	CategoryID string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// Subtotal returns quantity * unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository provides a full snapshot of the configured offers.
type Repository interface {
	List(ctx context.Context) ([]Offer, error)
}
