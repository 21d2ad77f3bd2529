package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

const (
	listOffersSQL = `SELECT id, name, description, offer_type, discount_value,
		COALESCE(min_quantity, 0), COALESCE(max_quantity, 0),
		COALESCE(product_id, ''), COALESCE(category_id, ''),
		COALESCE(coupon_code, ''), COALESCE(coupon_basis, ''),
		start_date, end_date, is_active
		FROM offers ORDER BY created_at, id`

	listCouponCodesSQL = `SELECT coupon_code FROM offers
		WHERE coupon_code IS NOT NULL AND coupon_code <> ''`

	upsertOfferSQL = `INSERT INTO offers (id, name, description, offer_type, discount_value,
		min_quantity, max_quantity, product_id, category_id, coupon_code, coupon_basis,
		start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NULLIF($7, 0), NULLIF($8, ''), NULLIF($9, ''),
			NULLIF($10, ''), NULLIF($11, ''), $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			offer_type = EXCLUDED.offer_type,
			discount_value = EXCLUDED.discount_value,
			min_quantity = EXCLUDED.min_quantity,
			max_quantity = EXCLUDED.max_quantity,
			product_id = EXCLUDED.product_id,
			category_id = EXCLUDED.category_id,
			coupon_code = EXCLUDED.coupon_code,
			coupon_basis = EXCLUDED.coupon_basis,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active`
)

var _ offer.Repository = (*OfferRepository)(nil)

// OfferRepository implements offer.Repository backed by PostgreSQL.
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository returns an OfferRepository that uses the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// List returns every configured offer in creation order.
func (r *OfferRepository) List(ctx context.Context) ([]offer.Offer, error) {
	rows, err := r.pool.Query(ctx, listOffersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}
	offers, err := pgx.CollectRows(rows, scanOffer)
	if err != nil {
		return nil, errors.Wrap(err, "scan offers")
	}
	return offers, nil
}

// ListCouponCodes returns every stored coupon code.
func (r *OfferRepository) ListCouponCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list coupon codes")
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan coupon codes")
	}
	return codes, nil
}

// Upsert inserts the offer or replaces the stored row with the same ID.
func (r *OfferRepository) Upsert(ctx context.Context, o *offer.Offer) error {
	productID, _ := o.Scope.ProductID()
	categoryID, _ := o.Scope.CategoryID()

	_, err := r.pool.Exec(ctx, upsertOfferSQL,
		o.ID, o.Name, o.Description, string(o.Type), o.DiscountValue,
		o.MinQuantity, o.MaxQuantity, productID, categoryID,
		o.CouponCode, string(o.CouponBasis),
		o.StartDate, o.EndDate, o.Active,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert offer %q", o.ID)
	}
	return nil
}

func scanOffer(row pgx.CollectableRow) (offer.Offer, error) {
	var (
		o           offer.Offer
		offerType   string
		value       decimal.Decimal
		minQty      int32
		maxQty      int32
		productID   string
		categoryID  string
		couponBasis string
		start, end  time.Time
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.Description, &offerType, &value,
		&minQty, &maxQty, &productID, &categoryID,
		&o.CouponCode, &couponBasis, &start, &end, &o.Active,
	)
	o.Type = offer.Type(offerType)
	o.DiscountValue = value
	o.MinQuantity = int(minQty)
	o.MaxQuantity = int(maxQty)
	o.Scope = offer.NewScope(productID, categoryID)
	o.CouponBasis = offer.Type(couponBasis)
	o.StartDate = start
	o.EndDate = end
	return o, err
}
