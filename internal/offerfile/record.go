// Package offerfile reads offers from JSON fixtures and gzip JSON-lines
// exports and loads them into the offer store.
package offerfile

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/catalog"
	"github.com/xenking/offer-engine/internal/domain/offer"
)

// Record is the file representation of an offer.
type Record struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Type          string          `json:"type"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	MinQuantity   int             `json:"minQuantity"`
	MaxQuantity   int             `json:"maxQuantity"`
	ProductID     string          `json:"productId"`
	CategoryID    string          `json:"categoryId"`
	CouponCode    string          `json:"couponCode"`
	CouponBasis   string          `json:"couponBasis"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	// Active defaults to true when omitted.
	Active *bool `json:"active"`
}

// Offer converts the record, rejecting structurally broken ones.
func (r *Record) Offer() (offer.Offer, error) {
	o := offer.Offer{
		ID:            strings.TrimSpace(r.ID),
		Name:          r.Name,
		Description:   r.Description,
		Type:          offer.Type(r.Type),
		DiscountValue: r.DiscountValue,
		MinQuantity:   r.MinQuantity,
		MaxQuantity:   r.MaxQuantity,
		Scope:         offer.NewScope(r.ProductID, r.CategoryID),
		CouponCode:    strings.TrimSpace(r.CouponCode),
		CouponBasis:   offer.Type(r.CouponBasis),
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Active:        r.Active == nil || *r.Active,
	}
	switch {
	case o.ID == "":
		return o, errors.New("id required")
	case !o.Type.Valid():
		return o, errors.Errorf("offer %s: unknown type %q", o.ID, r.Type)
	case o.CouponBasis != "" && !o.CouponBasis.Valid():
		return o, errors.Errorf("offer %s: unknown coupon basis %q", o.ID, r.CouponBasis)
	case o.MinQuantity < 0 || o.MaxQuantity < 0:
		return o, errors.Errorf("offer %s: negative quantity bound", o.ID)
	case o.StartDate.IsZero() || o.EndDate.IsZero():
		return o, errors.Errorf("offer %s: start and end dates required", o.ID)
	case o.EndDate.Before(o.StartDate):
		return o, errors.Errorf("offer %s: ends before it starts", o.ID)
	}
	return o, nil
}

// Product is the file representation of a catalog product.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID string          `json:"categoryId"`
	Price      decimal.Decimal `json:"price"`
}

// LoadOffers reads a JSON array of offer records.
func LoadOffers(path string) ([]offer.Offer, error) {
	var recs []Record
	if err := readJSON(path, &recs); err != nil {
		return nil, err
	}
	out := make([]offer.Offer, 0, len(recs))
	for i := range recs {
		o, err := recs[i].Offer()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: record %d", path, i)
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadProducts reads a JSON array of products.
func LoadProducts(path string) ([]catalog.Product, error) {
	var recs []Product
	if err := readJSON(path, &recs); err != nil {
		return nil, err
	}
	out := make([]catalog.Product, len(recs))
	for i, p := range recs {
		if p.ID == "" {
			return nil, errors.Errorf("%s: product %d has no id", path, i)
		}
		out[i] = catalog.Product{ID: p.ID, Name: p.Name, CategoryID: p.CategoryID, Price: p.Price}
	}
	return out, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}
