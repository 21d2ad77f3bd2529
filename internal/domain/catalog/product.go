package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product holds the catalog attributes the offer engine needs for scope
// matching and pricing.
type Product struct {
	ID         string
	Name       string
	CategoryID string
	Price      decimal.Decimal
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
